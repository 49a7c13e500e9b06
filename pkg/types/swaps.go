package types

import "strings"

// SwapSet is one row of the swap table: a single concrete value per
// placeholder key, describing one output copy.
type SwapSet struct {
	// Index is the row number within its table
	Index int

	keys   []string
	values map[string]string
}

// NewSwapSet builds a SwapSet from parallel key and value slices.
// Keys keep the given order.
func NewSwapSet(index int, keys, values []string) SwapSet {
	s := SwapSet{
		Index:  index,
		keys:   make([]string, len(keys)),
		values: make(map[string]string, len(keys)),
	}
	copy(s.keys, keys)
	for i, k := range keys {
		s.values[k] = values[i]
	}
	return s
}

// Get returns the value for key and whether it is present
func (s SwapSet) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in declaration order
func (s SwapSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of keys in the set
func (s SwapSet) Len() int {
	return len(s.keys)
}

// Map returns a copy of the key to value mapping
func (s SwapSet) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// String renders the set as "k1=v1 k2=v2" in key order
func (s SwapSet) String() string {
	parts := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		parts = append(parts, k+"="+s.values[k])
	}
	return strings.Join(parts, " ")
}

// SwapTable is the ordered collection of swap sets for one run.
// Row order is output order; rows are otherwise independent.
type SwapTable struct {
	Keys []string
	Rows []SwapSet
}

// Len returns the number of rows
func (t SwapTable) Len() int {
	return len(t.Rows)
}

// Column returns every row's value for key, in row order
func (t SwapTable) Column(key string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		v, _ := row.Get(key)
		out = append(out, v)
	}
	return out
}
