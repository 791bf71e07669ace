package dialect

import (
	"fmt"
	"strings"

	"schema2db/internal/schema"
)

// OracleDialect stores the empty prefix as NULL, since Oracle does not
// distinguish the empty string from NULL.
type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) MaxIdentifierLength() int { return 128 }

// QuoteIdent quotes names, which keeps them lower case in the dictionary.
func (d *OracleDialect) QuoteIdent(name string) string {
	return quoteWith(name, `"`, `"`)
}

// QualifiedName uses the namespace as the owning user.
func (d *OracleDialect) QualifiedName(namespace, table string) string {
	if namespace == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(namespace) + "." + d.QuoteIdent(table)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) MaxParams() int { return 65535 }

func (d *OracleDialect) GetTablesQuery(namespace string) (string, []any) {
	if namespace == "" {
		// USER_TABLES lists tables owned by the current user.
		return `SELECT TABLE_NAME FROM USER_TABLES`, nil
	}
	return `SELECT TABLE_NAME FROM ALL_TABLES WHERE OWNER = :1`, []any{namespace}
}

func (d *OracleDialect) GetColumnsQuery(namespace string) (string, []any) {
	if namespace == "" {
		return `SELECT TABLE_NAME, COLUMN_NAME FROM USER_TAB_COLUMNS ORDER BY TABLE_NAME, COLUMN_ID`, nil
	}
	return `SELECT TABLE_NAME, COLUMN_NAME FROM ALL_TAB_COLUMNS WHERE OWNER = :1 ORDER BY TABLE_NAME, COLUMN_ID`, []any{namespace}
}

func (d *OracleDialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBoolean:
		return "NUMBER(1)"
	case schema.TypeNumber:
		return "BINARY_DOUBLE"
	case schema.TypeInteger:
		return "NUMBER(19)"
	case schema.TypeTimestamp:
		return "TIMESTAMP WITH TIME ZONE"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeLink:
		return "NUMBER(10)"
	default:
		return "CLOB"
	}
}

func (d *OracleDialect) itemType(t schema.ColumnType) string {
	switch t {
	case schema.TypeString, schema.TypeEnum:
		return "VARCHAR2(255)"
	}
	return d.ColumnType(t)
}

// CreateNamespaceQueries returns nothing; an Oracle schema is a user and is
// not created here.
func (d *OracleDialect) CreateNamespaceQueries(namespace string) []string {
	return nil
}

func (d *OracleDialect) CreateTableQuery(spec TableSpec) string {
	return createTable(d, spec, columnDefs{
		id:       "NUMBER(10) GENERATED BY DEFAULT AS IDENTITY",
		prefix:   "VARCHAR2(1000)",
		itemType: d.itemType,
	})
}

func (d *OracleDialect) CommentQueries(spec TableSpec) []Statement {
	return commentOn(d, spec, quoteLiteral)
}

func (d *OracleDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE %s CASCADE CONSTRAINTS PURGE", table)
}

func (d *OracleDialect) ClearTableQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

// InsertQuery selects the rows from DUAL; Oracle has no multi-row VALUES
// and INSERT ALL draws a single identity value per statement.
func (d *OracleDialect) InsertQuery(table string, cols []string, rows int) string {
	if rows == 1 {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, quoteAll(d, cols), GeneratePlaceholders(len(cols), d.Placeholder))
	}
	selects := make([]string, rows)
	for r := 0; r < rows; r++ {
		selects[r] = "SELECT " + generatePlaceholdersFrom(r*len(cols), len(cols), d.Placeholder) + " FROM DUAL"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) %s", table, quoteAll(d, cols), strings.Join(selects, " UNION ALL "))
}

func (d *OracleDialect) LinkUpdateQuery(spec LinkSpec) string {
	return correlatedLinkUpdate(d, spec, linkFuncs{
		concat:     pipes,
		left:       func(s, n string) string { return fmt.Sprintf("SUBSTR(%s, 1, %s)", s, n) },
		length:     "LENGTH",
		nullPrefix: true,
	}, func(q string) string { return q + " FETCH FIRST 1 ROWS ONLY" })
}

func (d *OracleDialect) ForeignKeyQuery(spec LinkSpec, constraint string) string {
	return alterForeignKey(d, spec, constraint)
}

func (d *OracleDialect) AnalyzeQuery(table string) string {
	return fmt.Sprintf("ANALYZE TABLE %s COMPUTE STATISTICS", table)
}
