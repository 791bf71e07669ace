package schema

import "sort"

// ColumnType is the logical type of a compiled column.
type ColumnType string

const (
	TypeNumber    ColumnType = "number"
	TypeInteger   ColumnType = "integer"
	TypeBoolean   ColumnType = "boolean"
	TypeString    ColumnType = "string"
	TypeEnum      ColumnType = "enum"
	TypeDate      ColumnType = "date"
	TypeTimestamp ColumnType = "timestamp"
	TypeLink      ColumnType = "link"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeNumber, TypeInteger, TypeBoolean, TypeString, TypeEnum, TypeDate, TypeTimestamp, TypeLink:
		return true
	}
	return false
}

type Table struct {
	Name         string
	Comment      string
	Columns      []Column
	Dependencies []string // link targets, used for ordering

	index map[string]int
}

type Column struct {
	Name    string
	Type    ColumnType
	Comment string
}

// ColumnNames returns the finalized column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of a column in the finalized column list.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Link is a foreign key column on Table pointing at the id of Target.
// Forward links carry the path template from the referencing row to the
// definition row; back links point at the nearest enclosing Target row.
type Link struct {
	Table  string
	Column string
	Target string
	Prefix string
	Back   bool
}

// Leaf marks a translation tree node that carries a value.
type Leaf struct {
	Column string
	Type   ColumnType
}

// Node is one entry of the translation tree. Routing nodes have a nil Leaf
// and are keyed further by property name, or by Wildcard for pattern
// properties.
type Node struct {
	Table    string
	Suffix   string
	JSONPath string

	Leaf     *Leaf
	Children map[string]*Node
	Wildcard *Node
}

// Next returns the child for a path segment. A wildcard child wins over named
// children regardless of the segment.
func (n *Node) Next(segment string) (*Node, bool) {
	if n.Wildcard != nil {
		return n.Wildcard, true
	}
	c, ok := n.Children[segment]
	return c, ok && c != nil
}

// Catalog is the immutable result of compiling a schema.
type Catalog struct {
	Root        string
	Tree        *Node
	Tables      map[string]*Table
	Links       []Link
	JSONPaths   []string
	Diagnostics Diagnostics
}

// Table looks up a finalized table by name.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.Tables[name]
	return t, ok
}

// TableNames returns all table names sorted alphabetically.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ordered returns the tables so that link targets come before the tables
// referencing them.
func (c *Catalog) Ordered() []*Table {
	tables := make([]*Table, 0, len(c.Tables))
	for _, name := range c.TableNames() {
		tables = append(tables, c.Tables[name])
	}
	return SortTablesByLinks(tables)
}
