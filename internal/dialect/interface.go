package dialect

import "schema2db/internal/schema"

// Dialect abstracts database-specific SQL generation.
type Dialect interface {
	Name() string
	MaxIdentifierLength() int

	// Identifiers
	QuoteIdent(name string) string
	QualifiedName(namespace, table string) string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	MaxParams() int

	// Metadata Queries (Schema Introspection)
	GetTablesQuery(namespace string) (string, []any)
	GetColumnsQuery(namespace string) (string, []any)

	// DDL
	ColumnType(t schema.ColumnType) string
	CreateNamespaceQueries(namespace string) []string
	CreateTableQuery(spec TableSpec) string
	CommentQueries(spec TableSpec) []Statement
	DropTableQuery(table string) string
	ClearTableQuery(table string) string

	// DML
	InsertQuery(table string, cols []string, rows int) string
	LinkUpdateQuery(spec LinkSpec) string
	// ForeignKeyQuery returns "" when constraints cannot be added after
	// the table was created.
	ForeignKeyQuery(spec LinkSpec, constraint string) string
	AnalyzeQuery(table string) string
}

// Statement is a query together with its arguments.
type Statement struct {
	Query string
	Args  []any
}

// TableSpec describes one table to create. Table is the bare name; dialects
// qualify it with Namespace themselves.
type TableSpec struct {
	Namespace    string
	Table        string
	Comment      string
	ItemColumn   string
	ItemType     schema.ColumnType
	PrefixColumn string
	Columns      []schema.Column
}

// LinkSpec describes one link column to fill. Forward links match the
// target row at origin prefix + "/" + Prefix (or the same prefix when Prefix
// is empty); back links match the nearest enclosing target row.
type LinkSpec struct {
	Namespace    string
	Table        string
	Column       string
	Target       string
	Prefix       string
	Back         bool
	ItemColumn   string
	PrefixColumn string
}

// NewLinkSpec fills a LinkSpec from a compiled link.
func NewLinkSpec(l schema.Link, namespace, itemColumn, prefixColumn string) LinkSpec {
	return LinkSpec{
		Namespace:    namespace,
		Table:        l.Table,
		Column:       l.Column,
		Target:       l.Target,
		Prefix:       l.Prefix,
		Back:         l.Back,
		ItemColumn:   itemColumn,
		PrefixColumn: prefixColumn,
	}
}
