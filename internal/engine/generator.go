package engine

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"schema2db/internal/mapper"
	"schema2db/internal/schema"

	"github.com/brianvoe/gofakeit/v6"
)

const (
	DefaultWildcardEntries = 2
	DefaultMaxDepth        = 12
)

// Generator builds sample items that fit a compiled schema. Every generated
// value lands on an existing column with a value of the right type, so
// mapping a generated item never records a failure.
type Generator struct {
	cat   *schema.Catalog
	faker *gofakeit.Faker

	// WildcardEntries is the number of entries generated under each
	// pattern property, keyed "1", "2", ...
	WildcardEntries int
	// MaxDepth bounds the nesting of generated documents.
	MaxDepth int
}

// NewGenerator returns a generator for cat. The same seed yields the same
// items.
func NewGenerator(cat *schema.Catalog, seed int64) *Generator {
	return &Generator{
		cat:             cat,
		faker:           gofakeit.New(seed),
		WildcardEntries: DefaultWildcardEntries,
		MaxDepth:        DefaultMaxDepth,
	}
}

// Items returns n items with ids starting at firstID.
func (g *Generator) Items(n int, firstID int64) []mapper.Item {
	items := make([]mapper.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, g.Item(firstID+int64(i)))
	}
	return items
}

// Item generates one document with the given id.
func (g *Generator) Item(id any) mapper.Item {
	data, ok := g.node(g.cat.Tree, 0)
	if !ok {
		data = map[string]any{}
	}
	return mapper.Item{ID: id, Data: data}
}

func (g *Generator) node(n *schema.Node, depth int) (any, bool) {
	if n == nil {
		return nil, false
	}
	if n.Leaf != nil {
		col, ok := g.column(n.Table, n.Leaf.Column)
		if !ok {
			return nil, false
		}
		return g.Value(schema.AnalyzeMeaning(col.Name, col.Comment), n.Leaf.Type), true
	}
	if depth >= g.MaxDepth {
		return nil, false
	}

	obj := make(map[string]any)
	if n.Wildcard != nil {
		for i := 1; i <= g.WildcardEntries; i++ {
			if v, ok := g.node(n.Wildcard, depth+1); ok {
				obj[strconv.Itoa(i)] = v
			}
		}
	} else {
		keys := make([]string, 0, len(n.Children))
		for key := range n.Children {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if v, ok := g.node(n.Children[key], depth+1); ok {
				obj[key] = v
			}
		}
	}
	if len(obj) == 0 {
		return nil, false
	}
	return obj, true
}

func (g *Generator) column(table, name string) (schema.Column, bool) {
	t, ok := g.cat.Table(table)
	if !ok {
		return schema.Column{}, false
	}
	i, ok := t.ColumnIndex(name)
	if !ok {
		return schema.Column{}, false
	}
	return t.Columns[i], true
}

// Value generates a value of type t. meaning is a hint from AnalyzeMeaning
// that picks a realistic value within the type.
func (g *Generator) Value(meaning string, t schema.ColumnType) any {
	f := g.faker
	switch t {
	case schema.TypeBoolean:
		return f.Bool()
	case schema.TypeInteger:
		switch meaning {
		case "year":
			return f.Number(1950, 2025)
		case "count":
			return f.Number(0, 20)
		case "price":
			return f.Number(1000, 900000)
		}
		return f.Number(1, 50000)
	case schema.TypeNumber:
		switch meaning {
		case "latitude":
			return f.Latitude()
		case "longitude":
			return f.Longitude()
		case "percent":
			return f.Float64Range(0, 100)
		}
		return f.Price(0.99, 99999.99)
	case schema.TypeDate:
		return f.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Now()).Format("2006-01-02")
	case schema.TypeTimestamp:
		return f.DateRange(time.Now().AddDate(-5, 0, 0), time.Now()).UTC().Truncate(time.Second)
	case schema.TypeEnum:
		return strings.ToUpper(f.Word())
	}
	return g.text(meaning)
}

func (g *Generator) text(meaning string) string {
	f := g.faker
	switch meaning {
	case "email":
		return f.Email()
	case "phone":
		return f.Phone()
	case "zipcode":
		return f.Zip()
	case "address":
		return f.Street()
	case "city":
		return f.City()
	case "country":
		return f.Country()
	case "state":
		return f.State()
	case "name":
		return f.Name()
	case "url":
		return f.URL()
	case "year":
		return strconv.Itoa(f.Year())
	case "yesno":
		if f.Bool() {
			return "Y"
		}
		return "N"
	case "description":
		return f.Sentence(10)
	}
	return f.Sentence(3)
}
