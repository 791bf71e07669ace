package dialect

import (
	"fmt"

	"schema2db/internal/schema"

	"github.com/lib/pq"
)

type PostgresDialect struct{}

// Helper to fix schema name if needed (usually public)
func (d *PostgresDialect) getSchema(namespace string) string {
	if namespace == "" {
		return "public"
	}
	return namespace
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) MaxIdentifierLength() int { return 63 }

func (d *PostgresDialect) QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgresDialect) QualifiedName(namespace, table string) string {
	if namespace == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(namespace) + "." + d.QuoteIdent(table)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) MaxParams() int { return 65535 }

func (d *PostgresDialect) GetTablesQuery(namespace string) (string, []any) {
	// use $1 placeholder
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`,
		[]any{d.getSchema(namespace)}
}

func (d *PostgresDialect) GetColumnsQuery(namespace string) (string, []any) {
	return `SELECT table_name, column_name FROM information_schema.columns WHERE table_schema = $1 ORDER BY table_name, ordinal_position`,
		[]any{d.getSchema(namespace)}
}

func (d *PostgresDialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeBoolean:
		return "bool"
	case schema.TypeNumber:
		return "float"
	case schema.TypeInteger:
		return "bigint"
	case schema.TypeTimestamp:
		return "timestamptz"
	case schema.TypeDate:
		return "date"
	case schema.TypeLink:
		return "integer"
	default:
		return "text"
	}
}

func (d *PostgresDialect) CreateNamespaceQueries(namespace string) []string {
	if namespace == "" {
		return nil
	}
	return []string{
		"DROP SCHEMA IF EXISTS " + d.QuoteIdent(namespace) + " CASCADE",
		"CREATE SCHEMA " + d.QuoteIdent(namespace),
	}
}

func (d *PostgresDialect) CreateTableQuery(spec TableSpec) string {
	return createTable(d, spec, columnDefs{
		id:       "serial",
		prefix:   "text NOT NULL",
		itemType: d.ColumnType,
	})
}

// CommentQueries inlines the literals; COMMENT ON does not take parameters.
func (d *PostgresDialect) CommentQueries(spec TableSpec) []Statement {
	return commentOn(d, spec, pq.QuoteLiteral)
}

func commentOn(d Dialect, spec TableSpec, literal func(string) string) []Statement {
	var out []Statement
	table := d.QualifiedName(spec.Namespace, spec.Table)
	if spec.Comment != "" {
		out = append(out, Statement{Query: fmt.Sprintf("COMMENT ON TABLE %s IS %s", table, literal(spec.Comment))})
	}
	for _, c := range spec.Columns {
		if c.Comment == "" {
			continue
		}
		out = append(out, Statement{Query: fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", table, d.QuoteIdent(c.Name), literal(c.Comment))})
	}
	return out
}

func (d *PostgresDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
}

func (d *PostgresDialect) ClearTableQuery(table string) string {
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)
}

func (d *PostgresDialect) InsertQuery(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, quoteAll(d, cols), valuesList(d, len(cols), rows))
}

func (d *PostgresDialect) linkFuncs() linkFuncs {
	return linkFuncs{
		concat: pipes,
		left:   func(s, n string) string { return fmt.Sprintf("left(%s, %s)", s, n) },
		length: "length",
	}
}

func (d *PostgresDialect) LinkUpdateQuery(spec LinkSpec) string {
	return correlatedLinkUpdate(d, spec, d.linkFuncs(), func(q string) string { return q + " LIMIT 1" })
}

func (d *PostgresDialect) ForeignKeyQuery(spec LinkSpec, constraint string) string {
	return alterForeignKey(d, spec, constraint)
}

func (d *PostgresDialect) AnalyzeQuery(table string) string {
	return "ANALYZE " + table
}

// RedshiftDialect speaks the Postgres wire protocol with Redshift's DDL.
type RedshiftDialect struct {
	PostgresDialect
}

func (d *RedshiftDialect) Name() string { return "redshift" }

func (d *RedshiftDialect) MaxIdentifierLength() int { return 127 }

func (d *RedshiftDialect) ColumnType(t schema.ColumnType) string {
	switch t {
	case schema.TypeString, schema.TypeEnum:
		return "varchar(max)"
	}
	return d.PostgresDialect.ColumnType(t)
}

func (d *RedshiftDialect) CreateTableQuery(spec TableSpec) string {
	return createTable(d, spec, columnDefs{
		id:       "int identity(1, 1) NOT NULL",
		prefix:   "varchar(max) NOT NULL",
		itemType: d.ColumnType,
	})
}

func (d *RedshiftDialect) ClearTableQuery(table string) string {
	return "TRUNCATE " + table
}

// LinkUpdateQuery uses UPDATE ... FROM; Redshift rejects correlated
// subqueries in SET.
func (d *RedshiftDialect) LinkUpdateQuery(spec LinkSpec) string {
	from := d.QualifiedName(spec.Namespace, spec.Table)
	return fmt.Sprintf("UPDATE %s SET %s = tgt.%s FROM %s tgt WHERE %s.%s = tgt.%s AND %s",
		from, d.QuoteIdent(spec.Column), d.QuoteIdent(IDColumn),
		d.QualifiedName(spec.Namespace, spec.Target),
		from, d.QuoteIdent(spec.ItemColumn), d.QuoteIdent(spec.ItemColumn),
		linkCondition(d, spec, linkFuncs{
			concat: pipes,
			left:   func(s, n string) string { return fmt.Sprintf("left(%s, %s)", s, n) },
			length: "len",
		}, from, "tgt"),
	)
}

// CopyNull marks a NULL field in CSV files loaded with CopyFromS3Query.
const CopyNull = `\N`

// CopyFromS3Query loads a CSV object written with the table's column order.
// Empty fields load as empty strings; NULL is written as CopyNull.
func (d *RedshiftDialect) CopyFromS3Query(table string, cols []string, uri, iamRole string) string {
	q := fmt.Sprintf("COPY %s (%s) FROM %s CSV NULL AS %s TRUNCATECOLUMNS COMPUPDATE OFF STATUPDATE OFF",
		table, quoteAll(d, cols), quoteLiteral(uri), quoteLiteral(CopyNull))
	if iamRole != "" {
		q += " IAM_ROLE " + quoteLiteral(iamRole)
	}
	return q
}
