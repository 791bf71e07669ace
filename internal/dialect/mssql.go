package dialect

import (
	"fmt"
	"strings"

	"schema2db/internal/schema"
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) getSchema(namespace string) string {
	if namespace == "" {
		return "dbo"
	}
	return namespace
}

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) MaxIdentifierLength() int { return 128 }

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return quoteWith(name, "[", "]")
}

func (d *MSSQLDialect) QualifiedName(namespace, table string) string {
	if namespace == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(namespace) + "." + d.QuoteIdent(table)
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

// MaxParams stays below the 2100 parameter limit of a request.
func (d *MSSQLDialect) MaxParams() int { return 2000 }

func (d *MSSQLDialect) GetTablesQuery(namespace string) (string, []any) {
	// Use @p1 for schema binding
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'`,
		[]any{d.getSchema(namespace)}
}

func (d *MSSQLDialect) GetColumnsQuery(namespace string) (string, []any) {
	return `SELECT TABLE_NAME, COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = @p1 ORDER BY TABLE_NAME, ORDINAL_POSITION`,
		[]any{d.getSchema(namespace)}
}

func (d *MSSQLDialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBoolean:
		return "bit"
	case schema.TypeNumber:
		return "float"
	case schema.TypeInteger:
		return "bigint"
	case schema.TypeTimestamp:
		return "datetimeoffset"
	case schema.TypeDate:
		return "date"
	case schema.TypeLink:
		return "int"
	default:
		return "nvarchar(max)"
	}
}

func (d *MSSQLDialect) itemType(t schema.ColumnType) string {
	switch t {
	case schema.TypeString, schema.TypeEnum:
		return "nvarchar(255)"
	}
	return d.ColumnType(t)
}

// CreateNamespaceQueries only creates the schema; SQL Server has no
// DROP SCHEMA ... CASCADE.
func (d *MSSQLDialect) CreateNamespaceQueries(namespace string) []string {
	if namespace == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("IF SCHEMA_ID(%s) IS NULL EXEC(%s)",
			quoteLiteral(namespace), quoteLiteral("CREATE SCHEMA "+d.QuoteIdent(namespace))),
	}
}

func (d *MSSQLDialect) CreateTableQuery(spec TableSpec) string {
	return createTable(d, spec, columnDefs{
		id:       "int IDENTITY(1,1) NOT NULL",
		prefix:   "nvarchar(400) NOT NULL",
		itemType: d.itemType,
	})
}

func (d *MSSQLDialect) CommentQueries(spec TableSpec) []Statement {
	const addProperty = `EXEC sp_addextendedproperty @name = N'MS_Description', @value = @p1, @level0type = N'SCHEMA', @level0name = @p2, @level1type = N'TABLE', @level1name = @p3`
	ns := d.getSchema(spec.Namespace)

	var out []Statement
	if spec.Comment != "" {
		out = append(out, Statement{Query: addProperty, Args: []any{spec.Comment, ns, spec.Table}})
	}
	for _, c := range spec.Columns {
		if c.Comment == "" {
			continue
		}
		out = append(out, Statement{
			Query: addProperty + `, @level2type = N'COLUMN', @level2name = @p4`,
			Args:  []any{c.Comment, ns, spec.Table, c.Name},
		})
	}
	return out
}

func (d *MSSQLDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *MSSQLDialect) ClearTableQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, quoteAll(d, cols), valuesList(d, len(cols), rows))
}

func (d *MSSQLDialect) LinkUpdateQuery(spec LinkSpec) string {
	return correlatedLinkUpdate(d, spec, linkFuncs{
		concat: func(parts ...string) string { return strings.Join(parts, " + ") },
		left:   func(s, n string) string { return fmt.Sprintf("LEFT(%s, %s)", s, n) },
		length: "LEN",
	}, func(q string) string {
		// Simple T-SQL TOP injection
		return strings.Replace(q, "SELECT", "SELECT TOP 1", 1)
	})
}

func (d *MSSQLDialect) ForeignKeyQuery(spec LinkSpec, constraint string) string {
	return alterForeignKey(d, spec, constraint)
}

func (d *MSSQLDialect) AnalyzeQuery(table string) string {
	return "UPDATE STATISTICS " + table
}
