package dialect

import (
	"fmt"

	"schema2db/internal/schema"
)

// SqliteDialect targets modernc.org/sqlite. Namespaces are ignored.
type SqliteDialect struct{}

func (d *SqliteDialect) Name() string { return "sqlite" }

func (d *SqliteDialect) MaxIdentifierLength() int { return 127 }

func (d *SqliteDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`, `"`)
}

func (d *SqliteDialect) QualifiedName(namespace, table string) string {
	return d.QuoteIdent(table)
}

func (d *SqliteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SqliteDialect) MaxParams() int { return 32766 }

func (d *SqliteDialect) GetTablesQuery(namespace string) (string, []any) {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`, nil
}

func (d *SqliteDialect) GetColumnsQuery(namespace string) (string, []any) {
	return `SELECT m.name, p.name FROM sqlite_master m JOIN pragma_table_info(m.name) p WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' ORDER BY m.name, p.cid`, nil
}

func (d *SqliteDialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBoolean:
		return "BOOLEAN"
	case schema.TypeNumber:
		return "REAL"
	case schema.TypeInteger, schema.TypeLink:
		return "INTEGER"
	case schema.TypeTimestamp:
		return "TIMESTAMP"
	case schema.TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

func (d *SqliteDialect) CreateNamespaceQueries(namespace string) []string {
	return nil
}

func (d *SqliteDialect) CreateTableQuery(spec TableSpec) string {
	return createTable(d, spec, columnDefs{
		id:       "INTEGER PRIMARY KEY AUTOINCREMENT",
		prefix:   "TEXT NOT NULL",
		itemType: d.ColumnType,
	})
}

func (d *SqliteDialect) CommentQueries(spec TableSpec) []Statement {
	return nil
}

func (d *SqliteDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *SqliteDialect) ClearTableQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *SqliteDialect) InsertQuery(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, quoteAll(d, cols), valuesList(d, len(cols), rows))
}

func (d *SqliteDialect) LinkUpdateQuery(spec LinkSpec) string {
	return correlatedLinkUpdate(d, spec, linkFuncs{
		concat: pipes,
		left:   func(s, n string) string { return fmt.Sprintf("substr(%s, 1, %s)", s, n) },
		length: "length",
	}, func(q string) string { return q + " LIMIT 1" })
}

// ForeignKeyQuery returns ""; SQLite cannot add constraints to an existing
// table.
func (d *SqliteDialect) ForeignKeyQuery(spec LinkSpec, constraint string) string {
	return ""
}

func (d *SqliteDialect) AnalyzeQuery(table string) string {
	return "ANALYZE " + table
}
