package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a JSON or YAML schema file. The format is determined from
// the file extension.
func LoadFile(path string) (*jsonschema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a schema document. ext selects YAML for ".yaml"/".yml" and
// JSON otherwise. Both are also read as a node tree to recover the document
// order of patternProperties.
func Parse(data []byte, ext string) (*jsonschema.Schema, error) {
	var doc yaml.Node
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		v, err := plain(&doc)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = raw
	default:
		// JSON the YAML parser rejects keeps sorted pattern order.
		if err := yaml.Unmarshal(data, &doc); err != nil {
			doc = yaml.Node{}
		}
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	recordPatternOrder(&s, &doc)
	return &s, nil
}

// plain converts a YAML node to JSON-ready values. Mapping keys are kept as
// written, so numeric or boolean keys become strings.
func plain(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return plain(n.Content[0])
	case yaml.AliasNode:
		return plain(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		var merged []map[string]any
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := plain(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if k := n.Content[i]; k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge" {
				merged = append(merged, mergeSources(v)...)
				continue
			}
			m[n.Content[i].Value] = v
		}
		// explicit keys win over merged ones
		for _, src := range merged {
			for k, v := range src {
				if _, ok := m[k]; !ok {
					m[k] = v
				}
			}
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := plain(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func mergeSources(v any) []map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return []map[string]any{x}
	case []any:
		var out []map[string]any
		for _, e := range x {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// patternOrderKey holds the document order of patternProperties in
// Schema.Extra.
const patternOrderKey = "x-pattern-order"

// recordPatternOrder walks n alongside s and stores the key order of every
// patternProperties object it finds.
func recordPatternOrder(s *jsonschema.Schema, n *yaml.Node) {
	for n != nil && (n.Kind == yaml.DocumentNode || n.Kind == yaml.AliasNode) {
		if n.Kind == yaml.AliasNode {
			n = n.Alias
		} else if len(n.Content) > 0 {
			n = n.Content[0]
		} else {
			return
		}
	}
	if s == nil || n == nil || n.Kind != yaml.MappingNode {
		return
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		val := n.Content[i+1]
		switch n.Content[i].Value {
		case "patternProperties":
			order := mappingKeys(val)
			if len(order) > 0 {
				if s.Extra == nil {
					s.Extra = make(map[string]any)
				}
				s.Extra[patternOrderKey] = order
			}
			recordEach(s.PatternProperties, val)
		case "properties":
			recordEach(s.Properties, val)
		case "definitions":
			recordEach(s.Definitions, val)
		case "$defs":
			recordEach(s.Defs, val)
		case "items":
			recordPatternOrder(s.Items, val)
		case "additionalProperties":
			recordPatternOrder(s.AdditionalProperties, val)
		case "allOf":
			recordList(s.AllOf, val)
		case "anyOf":
			recordList(s.AnyOf, val)
		case "oneOf":
			recordList(s.OneOf, val)
		}
	}
}

func recordEach(m map[string]*jsonschema.Schema, n *yaml.Node) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n == nil || n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		recordPatternOrder(m[n.Content[i].Value], n.Content[i+1])
	}
}

func recordList(list []*jsonschema.Schema, n *yaml.Node) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n == nil || n.Kind != yaml.SequenceNode || len(n.Content) != len(list) {
		return
	}
	for i, c := range n.Content {
		recordPatternOrder(list[i], c)
	}
}

func mappingKeys(n *yaml.Node) []string {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

// patternKeys returns the patternProperties keys of s in document order
// when the loader recorded it, sorted otherwise.
func patternKeys(s *jsonschema.Schema) []string {
	if order, ok := s.Extra[patternOrderKey].([]string); ok && len(order) == len(s.PatternProperties) {
		return order
	}
	return sortedKeys(s.PatternProperties)
}
