// Package values resolves raw value specifications into the ordered list
// of strings a placeholder takes across copies.
package values

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/filesystem"
	"github.com/arthur-debert/dirwand/pkg/types"
)

var rangePattern = regexp.MustCompile(`^\s*(\d+)\s*-\s*(\d+)\s*$`)

// MaxRangeValues is the largest number of values a single range may expand to.
const MaxRangeValues = 1_000_000

// Resolver turns ValueSpecs into value sequences
type Resolver struct {
	fs types.FS
}

// NewResolver creates a resolver reading value files through fs.
// A nil fs uses the OS filesystem.
func NewResolver(fs types.FS) *Resolver {
	if fs == nil {
		fs = filesystem.NewOS()
	}
	return &Resolver{fs: fs}
}

// Resolve produces the ordered values described by spec
func (r *Resolver) Resolve(spec types.ValueSpec) ([]string, error) {
	var (
		values []string
		err    error
	)
	switch spec.Form {
	case types.FormRange:
		values, err = ParseRange(spec.Range)
	case types.FormList:
		values, err = resolveList(spec.List)
	case types.FormFile:
		values, err = r.ReadValueFile(spec.Path)
	default:
		err = errors.Newf(errors.ErrInvalidInput, "unknown value form %q", spec.Form)
	}
	if err != nil {
		if we, ok := err.(*errors.WandError); ok {
			return nil, we.WithDetail("key", spec.Key)
		}
		return nil, err
	}
	return values, nil
}

// ParseRange expands an inclusive "a-b" range. a > b counts down.
func ParseRange(raw string) ([]string, error) {
	m := rangePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, errors.Newf(errors.ErrMalformedRange,
			"malformed range %q, expected start-end such as 1-10", raw).
			WithDetail("range", raw)
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrMalformedRange, "malformed range start in %q", raw)
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrMalformedRange, "malformed range end in %q", raw)
	}

	// Both bounds are non-negative, so the span cannot overflow.
	step, span := 1, end-start
	if start > end {
		step, span = -1, start-end
	}
	if span >= MaxRangeValues {
		return nil, errors.Newf(errors.ErrMalformedRange,
			"range %q has more than %d values", raw, MaxRangeValues).
			WithDetail("range", raw)
	}
	count := span + 1
	values := make([]string, 0, count)
	for i, v := 0, start; i < count; i, v = i+1, v+step {
		values = append(values, strconv.Itoa(v))
	}
	return values, nil
}

func resolveList(list []string) ([]string, error) {
	if len(list) == 0 {
		return nil, errors.New(errors.ErrInvalidInput, "empty value list")
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

// ReadValueFile reads one value per line from path. Trailing blank lines
// are dropped and a trailing carriage return is stripped from each line.
func (r *Resolver) ReadValueFile(path string) ([]string, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(err, errors.ErrValueFileNotFound,
				"value file %s does not exist", path).WithDetail("path", path)
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess,
			"cannot read value file %s", path).WithDetail("path", path)
	}
	return SplitLines(string(data)), nil
}

// SplitLines splits text into lines, stripping "\r" and trailing blank lines
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ParseCLIValue infers the form of a "--key value" argument: an existing
// file is a value file, anything containing a dash is a range.
func ParseCLIValue(fs types.FS, key, raw string) (types.ValueSpec, error) {
	if fs == nil {
		fs = filesystem.NewOS()
	}
	if info, err := fs.Stat(raw); err == nil && !info.IsDir() {
		spec := types.FileSpec(key, raw)
		spec.Source = types.SourceCLI
		return spec, nil
	}
	if strings.Contains(raw, "-") {
		spec := types.RangeSpec(key, raw)
		spec.Source = types.SourceCLI
		return spec, nil
	}
	return types.ValueSpec{}, errors.Newf(errors.ErrInvalidInput,
		"invalid swap value %q for --%s: expected a range (1-5) or a file of values", raw, key).
		WithDetail("key", key)
}
