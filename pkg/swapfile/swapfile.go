package swapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// Format is the on-disk encoding of a swapfile
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the format from the file extension
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// entry is the decoded value of one swapfile key
type entry struct {
	key      string
	rangeSet bool
	rng      string
	listSet  bool
	list     []string
	fileSet  bool
	file     string
}

func (e entry) spec(fs types.FS, swapfileDir string) (types.ValueSpec, error) {
	set := 0
	for _, b := range []bool{e.rangeSet, e.listSet, e.fileSet} {
		if b {
			set++
		}
	}
	if set != 1 {
		return types.ValueSpec{}, errors.Newf(errors.ErrSwapfileParse,
			"swapfile key %q must define exactly one of range, list or file", e.key).
			WithDetail("key", e.key)
	}

	var spec types.ValueSpec
	switch {
	case e.rangeSet:
		spec = types.RangeSpec(e.key, e.rng)
	case e.listSet:
		spec = types.ListSpec(e.key, e.list...)
	default:
		spec = types.FileSpec(e.key, resolveRelative(fs, swapfileDir, e.file))
	}
	spec.Source = types.SourceSwapfile
	return spec, nil
}

func resolveRelative(fs types.FS, dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	candidate := filepath.Join(dir, path)
	if _, err := fs.Stat(candidate); err == nil {
		return candidate
	}
	return path
}

// Load reads the swapfile at path into value specs, in document order
func Load(fs types.FS, path string) ([]types.ValueSpec, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrFileNotFound, "swapfile %s does not exist", path).
				WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read swapfile %s", path).
			WithDetail("path", path)
	}

	var entries []entry
	switch FormatFor(path) {
	case FormatTOML:
		entries, err = decodeTOML(data)
	default:
		entries, err = decodeYAML(data)
	}
	if err != nil {
		if errors.GetErrorCode(err) == errors.ErrUnknown {
			err = errors.Wrapf(err, errors.ErrSwapfileParse, "cannot parse swapfile %s", path)
		}
		if we, ok := err.(*errors.WandError); ok {
			return nil, we.WithDetail("path", path)
		}
		return nil, err
	}

	dir := filepath.Dir(path)
	specs := make([]types.ValueSpec, 0, len(entries))
	for _, e := range entries {
		spec, err := e.spec(fs, dir)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Save writes every column of table as a list entry, in key order
func Save(fs types.FS, path string, table types.SwapTable) error {
	var (
		data []byte
		err  error
	)
	switch FormatFor(path) {
	case FormatTOML:
		data, err = encodeTOML(table)
	default:
		data, err = encodeYAML(table)
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot encode swapfile %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, errors.ErrDirCreate, "cannot create %s", dir)
		}
	}
	if err := fs.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write swapfile %s", path).
			WithDetail("path", path)
	}
	return nil
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
