package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/filesystem"
	"github.com/arthur-debert/dirwand/pkg/logging"
	"github.com/arthur-debert/dirwand/pkg/placeholder"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// ExistsPolicy decides what happens when a copy's root already exists.
type ExistsPolicy string

const (
	// ExistsError fails the copy before anything is written
	ExistsError ExistsPolicy = "error"
	// ExistsOverwrite removes the existing root and writes a fresh tree
	ExistsOverwrite ExistsPolicy = "overwrite"
)

// ParseExistsPolicy validates a policy name. The empty string selects
// ExistsError.
func ParseExistsPolicy(s string) (ExistsPolicy, error) {
	switch ExistsPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExistsError:
		return ExistsError, nil
	case ExistsOverwrite:
		return ExistsOverwrite, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput,
		"unknown exists policy %q (want %q or %q)", s, ExistsError, ExistsOverwrite)
}

// DefaultCacheEntries bounds the content cache when Options leaves it unset.
const DefaultCacheEntries = 512

// dirPerm is used for every created directory. Only existence of
// template directories is replicated.
const dirPerm os.FileMode = 0755

// Options configures a Walker
type Options struct {
	FS       types.FS
	Sink     types.Sink
	OnExists ExistsPolicy
	// CacheEntries bounds the number of template files kept in memory
	// between copies. Negative disables the cache, zero uses the default.
	CacheEntries int
}

// Walker writes substituted copies of a template tree.
type Walker struct {
	fs     types.FS
	sink   types.Sink
	policy ExistsPolicy
	cache  *lru.Cache[string, []byte]
	logger zerolog.Logger
}

// CopyResult summarizes one copy.
type CopyResult struct {
	Index    int
	Root     string
	Dirs     int
	Files    int
	Symlinks int
	// Binary counts files copied without substitution
	Binary int
	// Partial is set when the write phase failed, leaving an incomplete tree
	Partial bool
}

// New creates a Walker
func New(opts Options) (*Walker, error) {
	w := &Walker{
		fs:     opts.FS,
		sink:   opts.Sink,
		policy: opts.OnExists,
		logger: logging.GetLogger("walker"),
	}
	if w.fs == nil {
		w.fs = filesystem.NewOS()
	}
	if w.policy == "" {
		w.policy = ExistsError
	}
	if _, err := ParseExistsPolicy(string(w.policy)); err != nil {
		return nil, err
	}

	size := opts.CacheEntries
	if size == 0 {
		size = DefaultCacheEntries
	}
	if size > 0 {
		cache, err := lru.New[string, []byte](size)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to create content cache")
		}
		w.cache = cache
	}
	return w, nil
}

// op is one planned write
type op struct {
	kind   types.NodeKind
	dest   string
	mode   os.FileMode
	data   []byte
	target string
	binary bool
}

// Copy writes the tree under destRoot with swaps applied. The copy root is
// destRoot joined with the substituted template name.
func (w *Walker) Copy(tree *Tree, destRoot string, swaps types.SwapSet) (CopyResult, error) {
	result := CopyResult{Index: swaps.Index}

	name, err := w.substitute(tree.Name, tree.Root, swaps)
	if err != nil {
		return w.fail(result, swaps, err)
	}
	result.Root = filepath.Join(destRoot, filepath.FromSlash(name))
	if err := checkInside(destRoot, result.Root, tree.Root, swaps); err != nil {
		return w.fail(result, swaps, err)
	}
	w.emit(types.Event{Kind: types.EventCopyStarted, Index: swaps.Index, Swaps: swaps, Path: result.Root})

	ops, err := w.plan(tree, result.Root, swaps)
	if err != nil {
		return w.fail(result, swaps, err)
	}

	if err := w.prepareRoot(result.Root, swaps); err != nil {
		return w.fail(result, swaps, err)
	}

	if err := w.write(ops, &result, swaps); err != nil {
		result.Partial = true
		return w.fail(result, swaps, err)
	}

	w.logger.Info().
		Int("copy", result.Index).
		Str("root", result.Root).
		Int("dirs", result.Dirs).
		Int("files", result.Files).
		Int("symlinks", result.Symlinks).
		Int("binary", result.Binary).
		Msg("Copy written")
	w.emit(types.Event{Kind: types.EventCopyDone, Index: swaps.Index, Swaps: swaps, Path: result.Root})
	return result, nil
}

// plan substitutes every path, link target and text file without writing.
func (w *Walker) plan(tree *Tree, root string, swaps types.SwapSet) ([]op, error) {
	ops := make([]op, 0, len(tree.Nodes))
	for _, node := range tree.Nodes {
		src := tree.Source(node)

		rel, err := w.substitute(node.RelPath, src, swaps)
		if err != nil {
			return nil, err
		}
		o := op{kind: node.Kind, dest: filepath.Join(root, filepath.FromSlash(rel)), mode: node.Mode}
		if err := checkInside(root, o.dest, src, swaps); err != nil {
			return nil, err
		}

		switch node.Kind {
		case types.NodeSymlink:
			if o.target, err = w.substitute(node.LinkTarget, src, swaps); err != nil {
				return nil, err
			}
		case types.NodeFile:
			content, err := w.read(src)
			if err != nil {
				return nil, err
			}
			out, substituted, err := placeholder.SubstituteBytes(content, swaps)
			if err != nil {
				return nil, withCopyDetails(err, src, swaps)
			}
			o.data = out
			o.binary = !substituted
		}
		ops = append(ops, o)
	}
	return ops, nil
}

func (w *Walker) prepareRoot(root string, swaps types.SwapSet) error {
	if _, err := w.fs.Lstat(root); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "cannot inspect %s", root).
			WithDetail("path", root).
			WithDetail("copy", swaps.Index)
	}

	if w.policy != ExistsOverwrite {
		return errors.Newf(errors.ErrDestinationExists, "destination %s already exists", root).
			WithDetail("path", root).
			WithDetail("copy", swaps.Index)
	}

	w.logger.Debug().Str("root", root).Msg("Removing existing destination")
	if err := w.fs.RemoveAll(root); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot remove existing destination %s", root).
			WithDetail("path", root).
			WithDetail("copy", swaps.Index)
	}
	return nil
}

func (w *Walker) write(ops []op, result *CopyResult, swaps types.SwapSet) error {
	if err := w.fs.MkdirAll(result.Root, dirPerm); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", result.Root).
			WithDetail("path", result.Root).
			WithDetail("copy", swaps.Index)
	}

	for _, o := range ops {
		switch o.kind {
		case types.NodeDir:
			if err := w.fs.MkdirAll(o.dest, dirPerm); err != nil {
				return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", o.dest).
					WithDetail("path", o.dest).
					WithDetail("copy", swaps.Index)
			}
			result.Dirs++

		case types.NodeSymlink:
			if err := w.fs.MkdirAll(filepath.Dir(o.dest), dirPerm); err != nil {
				return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(o.dest)).
					WithDetail("path", o.dest).
					WithDetail("copy", swaps.Index)
			}
			if err := w.fs.Symlink(o.target, o.dest); err != nil {
				return errors.Wrapf(err, errors.ErrSymlinkCreate, "cannot link %s -> %s", o.dest, o.target).
					WithDetail("path", o.dest).
					WithDetail("copy", swaps.Index)
			}
			result.Symlinks++

		case types.NodeFile:
			if err := w.fs.MkdirAll(filepath.Dir(o.dest), dirPerm); err != nil {
				return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", filepath.Dir(o.dest)).
					WithDetail("path", o.dest).
					WithDetail("copy", swaps.Index)
			}
			if err := w.fs.WriteFile(o.dest, o.data, o.mode); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", o.dest).
					WithDetail("path", o.dest).
					WithDetail("copy", swaps.Index)
			}
			// WriteFile is subject to umask
			if err := w.fs.Chmod(o.dest, o.mode); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot set mode on %s", o.dest).
					WithDetail("path", o.dest).
					WithDetail("copy", swaps.Index)
			}
			result.Files++
			if o.binary {
				result.Binary++
			}
		}
	}
	return nil
}

// Placeholders returns every key referenced by the tree's names, link
// targets and text file contents, in order of first appearance.
func (w *Walker) Placeholders(tree *Tree) ([]string, error) {
	seen := make(map[string]bool)
	var keys []string
	add := func(text string) {
		for _, k := range placeholder.FindTokens(text) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	add(tree.Name)
	for _, node := range tree.Nodes {
		add(node.RelPath)
		switch node.Kind {
		case types.NodeSymlink:
			add(node.LinkTarget)
		case types.NodeFile:
			content, err := w.read(tree.Source(node))
			if err != nil {
				return nil, err
			}
			if placeholder.IsText(content) {
				add(string(content))
			}
		}
	}
	return keys, nil
}

func (w *Walker) read(src string) ([]byte, error) {
	if w.cache != nil {
		if data, ok := w.cache.Get(src); ok {
			return data, nil
		}
	}
	data, err := w.fs.ReadFile(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", src).
			WithDetail("path", src)
	}
	if w.cache != nil {
		w.cache.Add(src, data)
	}
	return data, nil
}

func (w *Walker) substitute(text, src string, swaps types.SwapSet) (string, error) {
	out, err := placeholder.Substitute(text, swaps)
	if err != nil {
		return "", withCopyDetails(err, src, swaps)
	}
	return out, nil
}

func (w *Walker) fail(result CopyResult, swaps types.SwapSet, err error) (CopyResult, error) {
	w.logger.Error().
		Err(err).
		Int("copy", result.Index).
		Str("root", result.Root).
		Bool("partial", result.Partial).
		Msg("Copy failed")
	w.emit(types.Event{Kind: types.EventCopyFailed, Index: result.Index, Swaps: swaps, Path: result.Root, Err: err})
	return result, err
}

func (w *Walker) emit(e types.Event) {
	if w.sink != nil {
		w.sink.Event(e)
	}
}

// checkInside fails unless dest lies strictly below base. An empty value
// or ".." in a substituted name must never move a write or a RemoveAll onto
// base or past it.
func checkInside(base, dest, src string, swaps types.SwapSet) error {
	rel, err := filepath.Rel(base, dest)
	if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return errors.Newf(errors.ErrUnsafePath, "substituted path %s is not inside %s", dest, base).
		WithDetail("path", src).
		WithDetail("dest", dest).
		WithDetail("copy", swaps.Index)
}

func withCopyDetails(err error, src string, swaps types.SwapSet) error {
	var wandErr *errors.WandError
	if errors.As(err, &wandErr) {
		return wandErr.WithDetail("path", src).WithDetail("copy", swaps.Index)
	}
	return errors.Wrap(err, errors.ErrInternal, fmt.Sprintf("copy %d", swaps.Index)).
		WithDetail("path", src)
}
