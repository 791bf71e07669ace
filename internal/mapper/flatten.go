package mapper

import "sort"

// Flatten walks nested maps depth first and returns every non-map value with
// its path. Keys are visited in sorted order. Anything that is not a map,
// lists included, is a value.
func Flatten(data any) []Field {
	var out []Field
	flatten(data, nil, &out)
	return out
}

func flatten(data any, path []string, out *[]Field) {
	m, ok := data.(map[string]any)
	if !ok {
		*out = append(*out, Field{Path: path, Value: data})
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := make([]string, len(path), len(path)+1)
		copy(p, path)
		flatten(m[k], append(p, k), out)
	}
}
