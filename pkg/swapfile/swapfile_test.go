package swapfile

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/filesystem"
	"github.com/arthur-debert/dirwand/pkg/swaps"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/arthur-debert/dirwand/pkg/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("swaps.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("swaps.yml"))
	assert.Equal(t, FormatYAML, FormatFor("swaps"))
	assert.Equal(t, FormatTOML, FormatFor("swaps.TOML"))
}

func TestLoadYAML(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.MkdirAll("/job", 0755))
	require.NoError(t, fs.WriteFile("/job/values.txt", []byte("0\n1\n0\n"), 0644))
	require.NoError(t, fs.WriteFile("/job/swaps.yaml", []byte(`
num:
  range: 1-3
name:
  list: [alpha, 2, true]
flag:
  file: values.txt
`), 0644))

	specs, err := Load(fs, "/job/swaps.yaml")
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, types.ValueSpec{Key: "num", Form: types.FormRange, Range: "1-3", Source: types.SourceSwapfile}, specs[0])
	assert.Equal(t, []string{"alpha", "2", "true"}, specs[1].List)
	assert.Equal(t, types.FormFile, specs[2].Form)
	assert.Equal(t, "/job/values.txt", specs[2].Path)

	resolved, err := values.NewResolver(fs).Resolve(specs[2])
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "0"}, resolved)
}

func TestLoadRelativeFileFallsBackToWorkingDir(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.WriteFile("/job/swaps.yaml", []byte("flag:\n  file: elsewhere.txt\n"), 0644))

	specs, err := Load(fs, "/job/swaps.yaml")
	require.NoError(t, err)
	assert.Equal(t, "elsewhere.txt", specs[0].Path)
}

func TestLoadTOML(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.WriteFile("/swaps.toml", []byte(`
zeta = { range = "0-1" }

[alpha]
list = ["a", 1]

[mid]
file = "/v.txt"
`), 0644))

	specs, err := Load(fs, "/swaps.toml")
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, "zeta", specs[0].Key)
	assert.Equal(t, "0-1", specs[0].Range)
	assert.Equal(t, "alpha", specs[1].Key)
	assert.Equal(t, []string{"a", "1"}, specs[1].List)
	assert.Equal(t, "mid", specs[2].Key)
	assert.Equal(t, "/v.txt", specs[2].Path)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		code    errors.ErrorCode
	}{
		{"not a mapping", "/a.yaml", "- 1\n- 2\n", errors.ErrSwapfileParse},
		{"scalar entry", "/b.yaml", "num: 1-3\n", errors.ErrSwapfileParse},
		{"two sources", "/c.yaml", "num:\n  range: 1-3\n  list: [a]\n", errors.ErrSwapfileParse},
		{"no source", "/d.yaml", "num: {}\n", errors.ErrSwapfileParse},
		{"unknown field", "/e.yaml", "num:\n  values: [1]\n", errors.ErrSwapfileParse},
		{"list not a sequence", "/f.yaml", "num:\n  list: a\n", errors.ErrSwapfileParse},
		{"broken yaml", "/g.yaml", "num: [\n", errors.ErrSwapfileParse},
		{"broken toml", "/h.toml", "num = [\n", errors.ErrSwapfileParse},
		{"toml scalar entry", "/i.toml", "num = 3\n", errors.ErrSwapfileParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := filesystem.NewMemory()
			require.NoError(t, fs.WriteFile(tt.path, []byte(tt.content), 0644))

			_, err := Load(fs, tt.path)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filesystem.NewMemory(), "/missing.yaml")
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileNotFound))
}

func TestLoadEmpty(t *testing.T) {
	fs := filesystem.NewMemory()
	require.NoError(t, fs.WriteFile("/empty.yaml", nil, 0644))

	specs, err := Load(fs, "/empty.yaml")
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			fs := filesystem.NewOS()
			path := filepath.Join(dir, "nested", name)

			table := swaps.Product([]string{"b", "a"}, [][]string{{"1", "2"}, {"x", "y"}})
			require.NoError(t, Save(fs, path, table))

			specs, err := Load(fs, path)
			require.NoError(t, err)
			require.Len(t, specs, 2)
			assert.Equal(t, "b", specs[0].Key)
			assert.Equal(t, []string{"1", "1", "2", "2"}, specs[0].List)
			assert.Equal(t, "a", specs[1].Key)
			assert.Equal(t, []string{"x", "y", "x", "y"}, specs[1].List)

			reloaded, err := swaps.BuildDirect(specs, values.NewResolver(fs))
			require.NoError(t, err)
			assert.Equal(t, table.Len(), reloaded.Len())
			for i := range table.Rows {
				assert.Equal(t, table.Rows[i].Map(), reloaded.Rows[i].Map())
			}
		})
	}
}
