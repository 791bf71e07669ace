package dialect

import (
	"fmt"
	"strings"

	"schema2db/internal/schema"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) MaxIdentifierLength() int { return 64 }

func (d *MysqlDialect) QuoteIdent(name string) string {
	return quoteWith(name, "`", "`")
}

// QualifiedName treats the namespace as a database.
func (d *MysqlDialect) QualifiedName(namespace, table string) string {
	if namespace == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(namespace) + "." + d.QuoteIdent(table)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) MaxParams() int { return 65535 }

func (d *MysqlDialect) GetTablesQuery(namespace string) (string, []any) {
	if namespace == "" {
		return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'`, nil
	}
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`, []any{namespace}
}

func (d *MysqlDialect) GetColumnsQuery(namespace string) (string, []any) {
	if namespace == "" {
		return `SELECT TABLE_NAME, COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() ORDER BY TABLE_NAME, ORDINAL_POSITION`, nil
	}
	return `SELECT TABLE_NAME, COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`, []any{namespace}
}

func (d *MysqlDialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBoolean:
		return "boolean"
	case schema.TypeNumber:
		return "double"
	case schema.TypeInteger:
		return "bigint"
	case schema.TypeTimestamp:
		return "datetime(6)"
	case schema.TypeDate:
		return "date"
	case schema.TypeLink:
		return "bigint"
	default:
		return "text"
	}
}

// itemType keeps the item column indexable.
func (d *MysqlDialect) itemType(t schema.ColumnType) string {
	switch t {
	case schema.TypeString, schema.TypeEnum:
		return "varchar(255)"
	}
	return d.ColumnType(t)
}

func (d *MysqlDialect) CreateNamespaceQueries(namespace string) []string {
	if namespace == "" {
		return nil
	}
	return []string{
		"DROP DATABASE IF EXISTS " + d.QuoteIdent(namespace),
		"CREATE DATABASE " + d.QuoteIdent(namespace),
	}
}

// CreateTableQuery carries the comments inline; MySQL cannot comment on a
// column without restating its definition.
func (d *MysqlDialect) CreateTableQuery(spec TableSpec) string {
	defs := columnDefs{
		id:       "bigint NOT NULL AUTO_INCREMENT",
		prefix:   "varchar(512) NOT NULL",
		itemType: d.itemType,
		decorate: func(c schema.Column) string {
			if c.Comment == "" {
				return ""
			}
			return " COMMENT " + quoteMysqlLiteral(c.Comment)
		},
	}
	if spec.Comment != "" {
		defs.tableClose = " COMMENT=" + quoteMysqlLiteral(spec.Comment)
	}
	return createTable(d, spec, defs)
}

func (d *MysqlDialect) CommentQueries(spec TableSpec) []Statement {
	return nil
}

func quoteMysqlLiteral(s string) string {
	return quoteLiteral(strings.ReplaceAll(s, `\`, `\\`))
}

func (d *MysqlDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *MysqlDialect) ClearTableQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *MysqlDialect) InsertQuery(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, quoteAll(d, cols), valuesList(d, len(cols), rows))
}

func (d *MysqlDialect) LinkUpdateQuery(spec LinkSpec) string {
	return correlatedLinkUpdate(d, spec, linkFuncs{
		concat: func(parts ...string) string { return "CONCAT(" + strings.Join(parts, ", ") + ")" },
		left:   func(s, n string) string { return fmt.Sprintf("LEFT(%s, %s)", s, n) },
		length: "CHAR_LENGTH",
	}, func(q string) string { return q + " LIMIT 1" })
}

func (d *MysqlDialect) ForeignKeyQuery(spec LinkSpec, constraint string) string {
	return alterForeignKey(d, spec, constraint)
}

func (d *MysqlDialect) AnalyzeQuery(table string) string {
	return "ANALYZE TABLE " + table
}
