package swapfile

import (
	"github.com/arthur-debert/dirwand/pkg/errors"
	"github.com/arthur-debert/dirwand/pkg/types"
	"gopkg.in/yaml.v3"
)

func decodeYAML(data []byte) ([]entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Newf(errors.ErrSwapfileParse,
			"swapfile must be a mapping of placeholder keys (line %d)", root.Line)
	}

	entries := make([]entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		e := entry{key: keyNode.Value}
		if valueNode.Kind != yaml.MappingNode {
			return nil, errors.Newf(errors.ErrSwapfileParse,
				"swapfile key %q must map to range, list or file (line %d)", e.key, valueNode.Line).
				WithDetail("key", e.key)
		}
		for j := 0; j+1 < len(valueNode.Content); j += 2 {
			field, value := valueNode.Content[j], valueNode.Content[j+1]
			switch field.Value {
			case "range":
				e.rangeSet, e.rng = true, value.Value
			case "file":
				e.fileSet, e.file = true, value.Value
			case "list":
				list, err := yamlList(e.key, value)
				if err != nil {
					return nil, err
				}
				e.listSet, e.list = true, list
			default:
				return nil, errors.Newf(errors.ErrSwapfileParse,
					"unknown field %q for swapfile key %q (line %d)", field.Value, e.key, field.Line).
					WithDetail("key", e.key)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func yamlList(key string, node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, errors.Newf(errors.ErrSwapfileParse,
			"list for swapfile key %q must be a sequence (line %d)", key, node.Line).
			WithDetail("key", key)
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, errors.Newf(errors.ErrSwapfileParse,
				"list items for swapfile key %q must be scalars (line %d)", key, item.Line).
				WithDetail("key", key)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func encodeYAML(table types.SwapTable) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range table.Keys {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, v := range table.Column(key) {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "list"},
				seq,
			}},
		)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	return yaml.Marshal(doc)
}
