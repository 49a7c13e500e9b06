package swapfile

import (
	"bytes"
	"sort"

	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

func decodeTOML(data []byte) ([]entry, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	order, err := tomlKeyOrder(data, raw)
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(order))
	for _, key := range order {
		fields, ok := raw[key].(map[string]interface{})
		if !ok {
			return nil, errors.Newf(errors.ErrSwapfileParse,
				"swapfile key %q must be a table with range, list or file", key).
				WithDetail("key", key)
		}
		e := entry{key: key}
		for field, value := range fields {
			switch field {
			case "range":
				e.rangeSet, e.rng = true, scalarString(value)
			case "file":
				e.fileSet, e.file = true, scalarString(value)
			case "list":
				items, ok := value.([]interface{})
				if !ok {
					return nil, errors.Newf(errors.ErrSwapfileParse,
						"list for swapfile key %q must be an array", key).WithDetail("key", key)
				}
				e.listSet = true
				e.list = make([]string, 0, len(items))
				for _, item := range items {
					e.list = append(e.list, scalarString(item))
				}
			default:
				return nil, errors.Newf(errors.ErrSwapfileParse,
					"unknown field %q for swapfile key %q", field, key).WithDetail("key", key)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// tomlKeyOrder returns the top-level keys in document order. Decoding into
// a map loses the order, so the document is walked a second time with the
// low-level parser.
func tomlKeyOrder(data []byte, raw map[string]interface{}) ([]string, error) {
	p := unstable.Parser{}
	p.Reset(data)

	seen := make(map[string]bool, len(raw))
	order := make([]string, 0, len(raw))
	add := func(it unstable.Iterator) {
		if it.Next() {
			key := string(it.Node().Data)
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}

	inTable := false
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			inTable = true
			add(expr.Key())
		case unstable.KeyValue:
			if !inTable {
				add(expr.Key())
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}

	var rest []string
	for key := range raw {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(order, rest...), nil
}

func encodeTOML(table types.SwapTable) ([]byte, error) {
	var buf bytes.Buffer
	for i, key := range table.Keys {
		chunk, err := toml.Marshal(map[string]map[string][]string{
			key: {"list": table.Column(key)},
		})
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(chunk)
	}
	return buf.Bytes(), nil
}
