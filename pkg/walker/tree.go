package walker

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/logging"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// Tree is a scanned template directory.
type Tree struct {
	// Root is the template directory on disk
	Root string
	// Name is the base name of Root; it may contain placeholders
	Name string
	// Nodes in depth-first lexical order, parents before children
	Nodes []types.TemplateNode
}

// Source returns the on-disk path of a node.
func (t *Tree) Source(n types.TemplateNode) string {
	return filepath.Join(t.Root, filepath.FromSlash(n.RelPath))
}

// Scan walks the template directory at root. Symlinks are recorded, never
// followed. Special files such as sockets and devices are skipped.
func Scan(fsys types.FS, root string) (*Tree, error) {
	logger := logging.GetLogger("walker")

	root = filepath.Clean(root)
	info, err := fsys.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrFileNotFound, "template %s does not exist", root).
				WithDetail("path", root)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read template %s", root).
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrFileNotFound, "template %s is not a directory", root).
			WithDetail("path", root)
	}

	tree := &Tree{Root: root, Name: filepath.Base(root)}
	if err := tree.walk(fsys, logger, root, ""); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("root", root).
		Int("nodes", len(tree.Nodes)).
		Msg("Scanned template")
	return tree, nil
}

func (t *Tree) walk(fsys types.FS, logger zerolog.Logger, dir, rel string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot list %s", dir).
			WithDetail("path", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		childRel := path.Join(rel, entry.Name())

		info, err := fsys.Lstat(full)
		if err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", full).
				WithDetail("path", full)
		}

		mode := info.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			target, err := fsys.Readlink(full)
			if err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess, "cannot read link %s", full).
					WithDetail("path", full)
			}
			t.Nodes = append(t.Nodes, types.TemplateNode{
				RelPath:    childRel,
				Kind:       types.NodeSymlink,
				LinkTarget: target,
			})
		case mode.IsDir():
			t.Nodes = append(t.Nodes, types.TemplateNode{
				RelPath: childRel,
				Kind:    types.NodeDir,
				Mode:    mode.Perm(),
			})
			if err := t.walk(fsys, logger, full, childRel); err != nil {
				return err
			}
		case mode.IsRegular():
			t.Nodes = append(t.Nodes, types.TemplateNode{
				RelPath: childRel,
				Kind:    types.NodeFile,
				Mode:    mode.Perm(),
			})
		default:
			logger.Warn().
				Str("path", full).
				Str("mode", mode.String()).
				Msg("Skipping special file in template")
		}
	}
	return nil
}
