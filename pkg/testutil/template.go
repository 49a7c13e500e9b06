package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTemplate is a template directory inside a temporary workspace, with a
// sibling output root that copies are written to.
type TestTemplate struct {
	Workspace string // Temporary directory holding both trees
	Name      string // Template directory name, may contain placeholders
	Dir       string // Full path to the template directory
	OutRoot   string // Directory copies are written into
}

// SetupTemplate creates an empty template directory named name and an
// empty output root next to it.
func SetupTemplate(t *testing.T, name string) *TestTemplate {
	t.Helper()

	workspace := t.TempDir()
	dir := filepath.Join(workspace, "templates", name)
	out := filepath.Join(workspace, "out")

	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.MkdirAll(out, 0755))

	return &TestTemplate{
		Workspace: workspace,
		Name:      name,
		Dir:       dir,
		OutRoot:   out,
	}
}

// AddFile adds a file to the template
func (tt *TestTemplate) AddFile(t *testing.T, rel, content string) string {
	t.Helper()
	return CreateFileMode(t, tt.Dir, rel, content, 0644)
}

// AddExecutable adds an executable file to the template
func (tt *TestTemplate) AddExecutable(t *testing.T, rel, content string) string {
	t.Helper()
	return CreateFileMode(t, tt.Dir, rel, content, 0755)
}

// AddBytes adds a file with raw content, used for binary fixtures.
func (tt *TestTemplate) AddBytes(t *testing.T, rel string, content []byte) string {
	t.Helper()

	path := filepath.Join(tt.Dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// AddDir adds a (possibly empty) directory to the template
func (tt *TestTemplate) AddDir(t *testing.T, rel string) string {
	t.Helper()
	return CreateDir(t, tt.Dir, rel)
}

// AddSymlink adds a symlink at rel pointing to target, stored verbatim.
func (tt *TestTemplate) AddSymlink(t *testing.T, rel, target string) string {
	t.Helper()

	link := filepath.Join(tt.Dir, rel)
	CreateSymlink(t, target, link)
	return link
}

// Out returns the path of rel inside the output root.
func (tt *TestTemplate) Out(rel ...string) string {
	return filepath.Join(append([]string{tt.OutRoot}, rel...)...)
}

// Entry is one entry of a tree snapshot taken by ReadTree.
type Entry struct {
	Kind    string // "dir", "file" or "symlink"
	Content string // file content or link target
	Mode    fs.FileMode
}

// ReadTree walks root without following symlinks and returns every entry
// keyed by its slash separated path relative to root. The root itself is
// not included.
func ReadTree(t *testing.T, root string) map[string]Entry {
	t.Helper()

	tree := make(map[string]Entry)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			tree[rel] = Entry{Kind: "symlink", Content: target}
		case info.IsDir():
			tree[rel] = Entry{Kind: "dir", Mode: info.Mode().Perm()}
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			tree[rel] = Entry{Kind: "file", Content: string(data), Mode: info.Mode().Perm()}
		}
		return nil
	})
	require.NoError(t, err)
	return tree
}

// TreePaths returns the sorted keys of a ReadTree snapshot.
func TreePaths(tree map[string]Entry) []string {
	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
