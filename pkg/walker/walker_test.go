package walker

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/filesystem"
	"github.com/arthur-debert/dirwand/pkg/placeholder"
	"github.com/arthur-debert/dirwand/pkg/testutil"
	"github.com/arthur-debert/dirwand/pkg/types"
)

type recorder struct {
	mu     sync.Mutex
	events []types.Event
}

func (r *recorder) Event(e types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []types.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]types.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func row(index int, kv ...string) types.SwapSet {
	var keys, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		keys = append(keys, kv[i])
		values = append(values, kv[i+1])
	}
	return types.NewSwapSet(index, keys, values)
}

func newWalker(t *testing.T, opts Options) *Walker {
	t.Helper()
	w, err := New(opts)
	require.NoError(t, err)
	return w
}

func scan(t *testing.T, dir string) *Tree {
	t.Helper()
	tree, err := Scan(filesystem.NewOS(), dir)
	require.NoError(t, err)
	return tree
}

func TestScanOrdersParentsFirst(t *testing.T) {
	testutil.SkipOnWindows(t)
	tmpl := testutil.SetupTemplate(t, "proj")
	tmpl.AddFile(t, "b.txt", "b")
	tmpl.AddFile(t, "a/z.txt", "z")
	tmpl.AddDir(t, "a/empty")
	tmpl.AddExecutable(t, "run.sh", "#!/bin/sh\n")
	tmpl.AddSymlink(t, "link", "b.txt")

	tree := scan(t, tmpl.Dir)

	assert.Equal(t, "proj", tree.Name)
	var paths []string
	for _, n := range tree.Nodes {
		paths = append(paths, n.RelPath)
	}
	assert.Equal(t, []string{"a", "a/empty", "a/z.txt", "b.txt", "link", "run.sh"}, paths)

	kinds := map[string]types.NodeKind{}
	for _, n := range tree.Nodes {
		kinds[n.RelPath] = n.Kind
	}
	assert.Equal(t, types.NodeDir, kinds["a/empty"])
	assert.Equal(t, types.NodeSymlink, kinds["link"])
	assert.Equal(t, types.NodeFile, kinds["run.sh"])
	assert.Equal(t, "b.txt", tree.Nodes[4].LinkTarget)
	assert.Equal(t, os.FileMode(0755), tree.Nodes[5].Mode)
}

func TestScanMissingTemplate(t *testing.T) {
	_, err := Scan(filesystem.NewOS(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
}

func TestScanTemplateIsFile(t *testing.T) {
	path := testutil.CreateFile(t, t.TempDir(), "file.txt", "x")
	_, err := Scan(filesystem.NewOS(), path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
}

func TestScanInMemory(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/tmpl/{name}/sub", 0755))
	require.NoError(t, fsys.WriteFile("/tmpl/{name}/sub/f.txt", []byte("hi {name}"), 0644))

	tree, err := Scan(fsys, "/tmpl/{name}")
	require.NoError(t, err)
	assert.Equal(t, "{name}", tree.Name)
	require.Len(t, tree.Nodes, 2)
	assert.Equal(t, "sub", tree.Nodes[0].RelPath)
	assert.Equal(t, "sub/f.txt", tree.Nodes[1].RelPath)
}

func TestCopyReplicatesPerRow(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "t_{num}")
	tmpl.AddFile(t, "f_{num}.yaml", "v: {x}\n")

	tree := scan(t, tmpl.Dir)
	sink := &recorder{}
	w := newWalker(t, Options{Sink: sink})

	r0, err := w.Copy(tree, tmpl.OutRoot, row(0, "num", "0", "x", "1"))
	require.NoError(t, err)
	r1, err := w.Copy(tree, tmpl.OutRoot, row(1, "num", "1", "x", "2"))
	require.NoError(t, err)

	assert.Equal(t, tmpl.Out("t_0"), r0.Root)
	assert.Equal(t, tmpl.Out("t_1"), r1.Root)
	assert.Equal(t, 1, r0.Files)
	assert.Equal(t, 1, r1.Index)

	assert.Equal(t, "v: 1\n", testutil.ReadFile(t, tmpl.Out("t_0", "f_0.yaml")))
	assert.Equal(t, "v: 2\n", testutil.ReadFile(t, tmpl.Out("t_1", "f_1.yaml")))

	assert.Equal(t, []types.EventKind{
		types.EventCopyStarted, types.EventCopyDone,
		types.EventCopyStarted, types.EventCopyDone,
	}, sink.kinds())
}

func TestCopyLeavesNoPlaceholders(t *testing.T) {
	testutil.SkipOnWindows(t)
	tmpl := testutil.SetupTemplate(t, "{app}")
	tmpl.AddFile(t, "{env}/config.toml", "name = \"{app}\"\nenv = \"{env}\"\n")
	tmpl.AddFile(t, "README.md", "# {app} for {env}\nliteral {not a key} and {}\n")
	tmpl.AddSymlink(t, "current", "{env}")

	tree := scan(t, tmpl.Dir)
	w := newWalker(t, Options{})
	res, err := w.Copy(tree, tmpl.OutRoot, row(0, "app", "shop", "env", "prod"))
	require.NoError(t, err)

	out := testutil.ReadTree(t, res.Root)
	for path, entry := range out {
		assert.False(t, placeholder.HasTokens(path), "path %s", path)
		assert.False(t, placeholder.HasTokens(entry.Content), "content of %s", path)
	}
	assert.Equal(t, "name = \"shop\"\nenv = \"prod\"\n", out["prod/config.toml"].Content)
	assert.Equal(t, "# shop for prod\nliteral {not a key} and {}\n", out["README.md"].Content)
	assert.Equal(t, testutil.Entry{Kind: "symlink", Content: "prod"}, out["current"])
}

func TestCopyBinaryVerbatim(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "bin")
	blob := []byte{0x89, 'P', 'N', 'G', 0x00, '{', 'x', '}', 0xff, 0xfe}
	tmpl.AddBytes(t, "image_{x}.png", blob)

	tree := scan(t, tmpl.Dir)
	w := newWalker(t, Options{})
	res, err := w.Copy(tree, tmpl.OutRoot, row(0, "x", "7"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Binary)

	got, err := os.ReadFile(tmpl.Out("bin", "image_7.png"))
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestCopyPreservesExecutableBit(t *testing.T) {
	testutil.SkipOnWindows(t)
	tmpl := testutil.SetupTemplate(t, "tool")
	tmpl.AddExecutable(t, "bin/run-{n}.sh", "#!/bin/sh\necho {n}\n")
	tmpl.AddFile(t, "notes.txt", "plain")

	tree := scan(t, tmpl.Dir)
	w := newWalker(t, Options{})
	_, err := w.Copy(tree, tmpl.OutRoot, row(0, "n", "3"))
	require.NoError(t, err)

	assert.True(t, testutil.IsExecutable(t, tmpl.Out("tool", "bin", "run-3.sh")))
	assert.False(t, testutil.IsExecutable(t, tmpl.Out("tool", "notes.txt")))
	assert.Equal(t, "#!/bin/sh\necho 3\n", testutil.ReadFile(t, tmpl.Out("tool", "bin", "run-3.sh")))
}

func TestCopyCreatesEmptyDirectories(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "proj")
	tmpl.AddDir(t, "logs/{n}")
	tmpl.AddDir(t, "cache")

	tree := scan(t, tmpl.Dir)
	w := newWalker(t, Options{})
	res, err := w.Copy(tree, tmpl.OutRoot, row(0, "n", "5"))
	require.NoError(t, err)

	assert.True(t, testutil.DirExists(t, tmpl.Out("proj", "logs", "5")))
	assert.True(t, testutil.DirExists(t, tmpl.Out("proj", "cache")))
	assert.Equal(t, 3, res.Dirs)
}

func TestCopyDanglingSymlinkIsRecreated(t *testing.T) {
	testutil.SkipOnWindows(t)
	tmpl := testutil.SetupTemplate(t, "proj")
	tmpl.AddSymlink(t, "data", "/srv/{site}/data")

	tree := scan(t, tmpl.Dir)
	w := newWalker(t, Options{})
	res, err := w.Copy(tree, tmpl.OutRoot, row(0, "site", "blog"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Symlinks)

	link := tmpl.Out("proj", "data")
	assert.True(t, testutil.SymlinkExists(t, link))
	assert.Equal(t, "/srv/blog/data", testutil.ReadSymlink(t, link))
}

func TestCopyUnresolvedPlaceholderWritesNothing(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "proj_{n}")
	tmpl.AddFile(t, "a.txt", "{n}")
	tmpl.AddFile(t, "z.txt", "{missing} and {other}")

	tree := scan(t, tmpl.Dir)
	sink := &recorder{}
	w := newWalker(t, Options{Sink: sink})
	res, err := w.Copy(tree, tmpl.OutRoot, row(2, "n", "1"))

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnresolvedPlaceholder))
	details := errors.GetErrorDetails(err)
	assert.Equal(t, []string{"missing", "other"}, details["missing"])
	assert.Equal(t, 2, details["copy"])
	assert.Equal(t, filepath.Join(tmpl.Dir, "z.txt"), details["path"])
	assert.False(t, res.Partial)

	_, statErr := os.Stat(tmpl.Out("proj_1"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []types.EventKind{types.EventCopyStarted, types.EventCopyFailed}, sink.kinds())
}

func TestCopyUnresolvedInTemplateName(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "{site}")
	tmpl.AddFile(t, "a.txt", "a")

	w := newWalker(t, Options{})
	_, err := w.Copy(scan(t, tmpl.Dir), tmpl.OutRoot, row(0, "n", "1"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnresolvedPlaceholder))
}

func TestCopyExistingDestination(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "site_{n}")
	tmpl.AddFile(t, "index.html", "<h1>{n}</h1>")
	tree := scan(t, tmpl.Dir)

	stale := testutil.CreateFile(t, tmpl.OutRoot, "site_1/stale.txt", "old")

	t.Run("error policy", func(t *testing.T) {
		w := newWalker(t, Options{})
		_, err := w.Copy(tree, tmpl.OutRoot, row(0, "n", "1"))
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrDestinationExists))
		assert.True(t, testutil.FileExists(t, stale))
		assert.False(t, testutil.FileExists(t, tmpl.Out("site_1", "index.html")))
	})

	t.Run("overwrite policy", func(t *testing.T) {
		w := newWalker(t, Options{OnExists: ExistsOverwrite})
		_, err := w.Copy(tree, tmpl.OutRoot, row(0, "n", "1"))
		require.NoError(t, err)
		assert.False(t, testutil.FileExists(t, stale))
		assert.Equal(t, "<h1>1</h1>", testutil.ReadFile(t, tmpl.Out("site_1", "index.html")))
	})
}

func TestCopyRejectsRootOutsideDestination(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "{name}")
	tmpl.AddFile(t, "f.txt", "{name}")
	keep := testutil.CreateFile(t, tmpl.Workspace, "keep.txt", "keep")
	tree := scan(t, tmpl.Dir)

	w := newWalker(t, Options{OnExists: ExistsOverwrite})
	_, err := w.Copy(tree, tmpl.OutRoot, row(0, "name", "a"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{"empty value", ""},
		{"parent", ".."},
		{"nested parent", "a/../.."},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recorder{}
			w := newWalker(t, Options{OnExists: ExistsOverwrite, Sink: sink})
			_, err := w.Copy(tree, tmpl.OutRoot, row(i+1, "name", tt.value))

			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrUnsafePath), "got %v", err)
			assert.Equal(t, i+1, errors.GetErrorDetails(err)["copy"])
			assert.Equal(t, []types.EventKind{types.EventCopyFailed}, sink.kinds())

			assert.Equal(t, "a", testutil.ReadFile(t, tmpl.Out("a", "f.txt")))
			assert.Equal(t, "keep", testutil.ReadFile(t, keep))
			assert.True(t, testutil.FileExists(t, filepath.Join(tmpl.Dir, "f.txt")))
		})
	}
}

func TestCopyRejectsNodeOutsideCopyRoot(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "proj")
	tmpl.AddFile(t, "{dir}/x.txt", "x")
	tree := scan(t, tmpl.Dir)

	tests := []struct {
		name  string
		value string
	}{
		{"empty value collapses onto root", ""},
		{"parent escapes root", ".."},
		{"grandparent escapes output", "../.."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWalker(t, Options{})
			res, err := w.Copy(tree, tmpl.OutRoot, row(0, "dir", tt.value))

			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrUnsafePath), "got %v", err)
			assert.False(t, res.Partial)
			assert.False(t, testutil.DirExists(t, tmpl.Out("proj")))
			assert.False(t, testutil.FileExists(t, filepath.Join(tmpl.OutRoot, "x.txt")))
			assert.False(t, testutil.FileExists(t, filepath.Join(tmpl.Workspace, "x.txt")))
		})
	}
}

func TestCopyAllowsEmptyValueInsidePath(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "proj")
	tmpl.AddFile(t, "conf{suffix}/x.txt", "x{suffix}")
	tree := scan(t, tmpl.Dir)

	w := newWalker(t, Options{})
	_, err := w.Copy(tree, tmpl.OutRoot, row(0, "suffix", ""))

	require.NoError(t, err)
	assert.Equal(t, "x", testutil.ReadFile(t, tmpl.Out("proj", "conf", "x.txt")))
}

func TestCopyWriteFailureIsPartial(t *testing.T) {
	testutil.SkipOnWindows(t)
	tmpl := testutil.SetupTemplate(t, "proj")
	tmpl.AddFile(t, "a/file.txt", "x")
	tree := scan(t, tmpl.Dir)

	// A read-only destination root makes every write fail after planning.
	readOnly := testutil.CreateDir(t, tmpl.Workspace, "ro")
	require.NoError(t, os.Chmod(readOnly, 0555))
	t.Cleanup(func() { _ = os.Chmod(readOnly, 0755) })
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	w := newWalker(t, Options{})
	res, err := w.Copy(tree, readOnly, row(0))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDirCreate))
	assert.True(t, res.Partial)
	assert.Equal(t, filepath.Join(readOnly, "proj"), res.Root)
}

func TestPlaceholders(t *testing.T) {
	testutil.SkipOnWindows(t)
	tmpl := testutil.SetupTemplate(t, "{app}")
	tmpl.AddFile(t, "{env}.conf", "port={port}\nhost={app}\n")
	tmpl.AddBytes(t, "blob.bin", []byte{0, '{', 'b', '}'})
	tmpl.AddSymlink(t, "link", "{target}")

	w := newWalker(t, Options{})
	keys, err := w.Placeholders(scan(t, tmpl.Dir))
	require.NoError(t, err)
	// Nodes are visited in lexical order: blob.bin, link, {env}.conf
	assert.Equal(t, []string{"app", "target", "env", "port"}, keys)
}

func TestContentCacheServesRepeatedCopies(t *testing.T) {
	tmpl := testutil.SetupTemplate(t, "c_{i}")
	src := tmpl.AddFile(t, "f.txt", "value {i}")
	tree := scan(t, tmpl.Dir)

	w := newWalker(t, Options{CacheEntries: 4})
	_, err := w.Copy(tree, tmpl.OutRoot, row(0, "i", "0"))
	require.NoError(t, err)

	// Later copies come from the cache, not the changed file on disk.
	require.NoError(t, os.WriteFile(src, []byte("changed"), 0644))
	_, err = w.Copy(tree, tmpl.OutRoot, row(1, "i", "1"))
	require.NoError(t, err)
	assert.Equal(t, "value 1", testutil.ReadFile(t, tmpl.Out("c_1", "f.txt")))

	uncached := newWalker(t, Options{CacheEntries: -1})
	_, err = uncached.Copy(tree, tmpl.OutRoot, row(2, "i", "2"))
	require.NoError(t, err)
	assert.Equal(t, "changed", testutil.ReadFile(t, tmpl.Out("c_2", "f.txt")))
}

func TestParseExistsPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ExistsPolicy
		wantErr bool
	}{
		{"", ExistsError, false},
		{"error", ExistsError, false},
		{" Overwrite ", ExistsOverwrite, false},
		{"merge", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExistsPolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := New(Options{OnExists: "merge"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "merge"))
}
