// Package swaps builds the swap table: one row of placeholder values per
// output copy.
//
// Direct mode zips equal-length value sequences element-wise. Cartesian
// mode produces every combination of independent sequences, first key
// outermost and last key varying fastest.
package swaps

import (
	"fmt"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
)

// Resolver resolves a single ValueSpec into its values
type Resolver interface {
	Resolve(spec types.ValueSpec) ([]string, error)
}

// Merge combines command line specs with swapfile specs. Command line
// keys come first. A key declared twice, in either source, is an error.
func Merge(cli, file []types.ValueSpec) ([]types.ValueSpec, error) {
	merged := make([]types.ValueSpec, 0, len(cli)+len(file))
	seen := make(map[string]string, len(cli)+len(file))

	add := func(spec types.ValueSpec, fallback string) error {
		source := spec.Source
		if source == "" {
			source = fallback
		}
		if prev, ok := seen[spec.Key]; ok {
			return errors.Newf(errors.ErrDuplicateKey,
				"placeholder %q is declared more than once (%s and %s)", spec.Key, prev, source).
				WithDetail("key", spec.Key)
		}
		seen[spec.Key] = source
		spec.Source = source
		merged = append(merged, spec)
		return nil
	}

	for _, spec := range cli {
		if err := add(spec, types.SourceCLI); err != nil {
			return nil, err
		}
	}
	for _, spec := range file {
		if err := add(spec, types.SourceSwapfile); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func resolveAll(specs []types.ValueSpec, r Resolver) ([]string, [][]string, error) {
	keys := make([]string, 0, len(specs))
	columns := make([][]string, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Key == "" {
			return nil, nil, errors.New(errors.ErrInvalidInput, "placeholder key must not be empty")
		}
		if seen[spec.Key] {
			return nil, nil, errors.Newf(errors.ErrDuplicateKey,
				"placeholder %q is declared more than once", spec.Key).WithDetail("key", spec.Key)
		}
		seen[spec.Key] = true

		values, err := r.Resolve(spec)
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, spec.Key)
		columns = append(columns, values)
	}
	return keys, columns, nil
}

// BuildDirect resolves every spec and zips the sequences into rows. All
// sequences must have the same length. With no specs the table holds a
// single empty row, so a command without placeholders still runs once.
func BuildDirect(specs []types.ValueSpec, r Resolver) (types.SwapTable, error) {
	keys, columns, err := resolveAll(specs, r)
	if err != nil {
		return types.SwapTable{}, err
	}
	return Zip(keys, columns)
}

// Zip builds a table from equal-length columns, one per key
func Zip(keys []string, columns [][]string) (types.SwapTable, error) {
	if len(keys) != len(columns) {
		return types.SwapTable{}, errors.Newf(errors.ErrInternal,
			"%d keys but %d columns", len(keys), len(columns))
	}
	if len(keys) == 0 {
		return types.SwapTable{
			Keys: []string{},
			Rows: []types.SwapSet{types.NewSwapSet(0, nil, nil)},
		}, nil
	}

	n := len(columns[0])
	for i := range columns {
		if len(columns[i]) != n {
			lengths := make(map[string]int, len(keys))
			for j, k := range keys {
				lengths[k] = len(columns[j])
			}
			return types.SwapTable{}, errors.Newf(errors.ErrLengthMismatch,
				"placeholders need the same number of values: %s has %d, %s has %d",
				keys[0], n, keys[i], len(columns[i])).
				WithDetail("lengths", lengths)
		}
	}

	rows := make([]types.SwapSet, n)
	row := make([]string, len(keys))
	for i := 0; i < n; i++ {
		for j := range keys {
			row[j] = columns[j][i]
		}
		rows[i] = types.NewSwapSet(i, keys, row)
	}
	return types.SwapTable{Keys: append([]string(nil), keys...), Rows: rows}, nil
}

// BuildCartesian resolves every spec independently and returns the full
// cartesian product. A key with no values produces an empty table.
func BuildCartesian(specs []types.ValueSpec, r Resolver) (types.SwapTable, error) {
	keys, columns, err := resolveAll(specs, r)
	if err != nil {
		return types.SwapTable{}, err
	}
	return Product(keys, columns), nil
}

// Product returns every combination of the columns in stable nested order
func Product(keys []string, columns [][]string) types.SwapTable {
	table := types.SwapTable{Keys: append([]string{}, keys...)}
	if len(keys) == 0 {
		return table
	}

	total := 1
	for _, col := range columns {
		total *= len(col)
	}
	if total == 0 {
		return table
	}

	table.Rows = make([]types.SwapSet, 0, total)
	idx := make([]int, len(columns))
	row := make([]string, len(columns))
	for n := 0; n < total; n++ {
		for j := range columns {
			row[j] = columns[j][idx[j]]
		}
		table.Rows = append(table.Rows, types.NewSwapSet(n, keys, row))

		// odometer increment, last key fastest
		for j := len(idx) - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < len(columns[j]) {
				break
			}
			idx[j] = 0
		}
	}
	return table
}

// Describe returns a one-line summary of the table for logs
func Describe(t types.SwapTable) string {
	return fmt.Sprintf("%d row(s) over %d key(s) %v", t.Len(), len(t.Keys), t.Keys)
}
