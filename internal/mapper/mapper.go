// Package mapper turns JSON items into per-table rows following the
// translation tree of a compiled schema.
package mapper

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"schema2db/internal/coerce"
	"schema2db/internal/schema"
)

var (
	// ErrPrefixInvariant means the translation tree and the data path
	// disagree about where a table starts. The batch must be aborted.
	ErrPrefixInvariant = errors.New("mapper: path does not end with node suffix")
	// ErrInvalidItemID is returned when an item id cannot be coerced to the
	// configured item type.
	ErrInvalidItemID = errors.New("mapper: invalid item id")
)

// Field is one flattened value together with its path of property names.
type Field struct {
	Path  []string
	Value any
}

// Item is a single document to load. Data holds the nested document; when
// Fields is set it is used instead and Data is ignored.
type Item struct {
	ID     any
	Data   any
	Fields []Field
	// Extra holds values for the configured extra root columns.
	Extra map[string]any
}

// Row is one table row produced for an item. Values follow the finalized
// column order of the table and hold nil where nothing was set.
type Row struct {
	Table  string
	ItemID any
	Prefix string
	Values []any
}

// Args returns the row as statement arguments: item id, prefix, columns.
func (r Row) Args() []any {
	args := make([]any, 0, len(r.Values)+2)
	args = append(args, r.ItemID, r.Prefix)
	return append(args, r.Values...)
}

// Mapper maps items onto the tables of a catalog. It is safe for concurrent
// use; the counters are shared by all calls.
type Mapper struct {
	cat      *schema.Catalog
	itemType schema.ColumnType

	mu       sync.Mutex
	failures map[string]int
	hits     map[string]int
}

// New returns a mapper for cat. Item ids are coerced to itemType.
func New(cat *schema.Catalog, itemType schema.ColumnType) *Mapper {
	if itemType == "" {
		itemType = schema.TypeInteger
	}
	m := &Mapper{
		cat:      cat,
		itemType: itemType,
		failures: make(map[string]int),
		hits:     make(map[string]int, len(cat.JSONPaths)),
	}
	for _, p := range cat.JSONPaths {
		m.hits[p] = 0
	}
	return m
}

type bufferKey struct {
	table  string
	prefix string
}

// MapItem returns one row per (table, prefix) touched by item, sorted by
// table and prefix. Values that cannot be placed are counted as failures and
// dropped.
func (m *Mapper) MapItem(item Item) ([]Row, error) {
	id, ok := coerce.Coerce(m.itemType, item.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItemID, item.ID)
	}

	fields := item.Fields
	if fields == nil {
		fields = Flatten(item.Data)
	}

	buffers := make(map[bufferKey]map[string]any)
	ensure := func(table, prefix string) map[string]any {
		k := bufferKey{table, prefix}
		b, ok := buffers[k]
		if !ok {
			b = make(map[string]any)
			buffers[k] = b
		}
		return b
	}

	root := m.cat.Tree
	for _, f := range fields {
		if f.Value == nil {
			continue
		}

		node := root
		table, prefix := node.Table, ""
		ensure(table, prefix)
		m.hit(node.JSONPath)

		abandoned := false
		for i, seg := range f.Path {
			next, ok := node.Next(seg)
			if !ok {
				m.fail(f.Path)
				abandoned = true
				break
			}
			node = next

			soFar := "/" + strings.Join(f.Path[:i+1], "/")
			if !strings.HasSuffix(soFar, node.Suffix) {
				return nil, fmt.Errorf("%w: %q does not end with %q", ErrPrefixInvariant, soFar, node.Suffix)
			}
			table = node.Table
			prefix = strings.TrimRight(soFar[:len(soFar)-len(node.Suffix)], "/")
			ensure(table, prefix)
			m.hit(node.JSONPath)
		}
		if abandoned {
			continue
		}

		if node.Leaf == nil {
			m.fail(f.Path)
			continue
		}
		tbl, ok := m.cat.Table(table)
		if !ok {
			m.fail(f.Path)
			continue
		}
		if _, ok := tbl.ColumnIndex(node.Leaf.Column); !ok {
			m.fail(f.Path)
			continue
		}
		v, ok := coerce.Coerce(node.Leaf.Type, f.Value)
		if !ok {
			m.fail(f.Path)
			continue
		}
		ensure(table, prefix)[node.Leaf.Column] = v
	}

	if len(item.Extra) > 0 {
		b := ensure(root.Table, "")
		for col, v := range item.Extra {
			b[col] = v
		}
	}

	keys := make([]bufferKey, 0, len(buffers))
	for k := range buffers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].table != keys[j].table {
			return keys[i].table < keys[j].table
		}
		return keys[i].prefix < keys[j].prefix
	})

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		tbl, ok := m.cat.Table(k.table)
		if !ok {
			continue
		}
		values := make([]any, len(tbl.Columns))
		for col, v := range buffers[k] {
			if i, ok := tbl.ColumnIndex(col); ok {
				values[i] = v
			}
		}
		rows = append(rows, Row{Table: k.table, ItemID: id, Prefix: k.prefix, Values: values})
	}
	return rows, nil
}

// MapItems maps every item and concatenates the rows. It stops at the first
// error.
func (m *Mapper) MapItems(items []Item) ([]Row, error) {
	var rows []Row
	for _, item := range items {
		r, err := m.MapItem(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r...)
	}
	return rows, nil
}

func (m *Mapper) fail(path []string) {
	m.mu.Lock()
	m.failures[strings.Join(path, "/")]++
	m.mu.Unlock()
}

func (m *Mapper) hit(jsonPath string) {
	m.mu.Lock()
	m.hits[jsonPath]++
	m.mu.Unlock()
}

// Failures returns the number of dropped values per data path.
func (m *Mapper) Failures() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.failures))
	for k, v := range m.failures {
		out[k] = v
	}
	return out
}

// Hits returns how often each schema node was visited, including nodes that
// were never reached.
func (m *Mapper) Hits() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.hits))
	for k, v := range m.hits {
		out[k] = v
	}
	return out
}

// GroupByTable splits rows per table, keeping their relative order.
func GroupByTable(rows []Row) map[string][]Row {
	out := make(map[string][]Row)
	for _, r := range rows {
		out[r.Table] = append(out[r.Table], r)
	}
	return out
}
