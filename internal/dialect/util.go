package dialect

import (
	"fmt"
	"strings"

	"schema2db/internal/schema"

	"github.com/zeebo/xxh3"
)

// IDColumn is the surrogate identity column every table gets.
const IDColumn = "id"

// MaxRowsPerInsert caps the number of VALUES tuples in one statement.
const MaxRowsPerInsert = 1000

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	return generatePlaceholdersFrom(0, count, placeholderFunc)
}

func generatePlaceholdersFrom(start, count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(start + i)
	}
	return strings.Join(placeholders, ", ")
}

// RowsPerInsert returns how many rows of width cols fit into one insert
// statement of d, capped at limit when limit is positive.
func RowsPerInsert(d Dialect, cols, limit int) int {
	n := MaxRowsPerInsert
	if cols > 0 && d.MaxParams()/cols < n {
		n = d.MaxParams() / cols
	}
	if limit > 0 && limit < n {
		n = limit
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ForeignKeyName returns fk_<table>__<column>, replaced by a hash of the
// same text when it exceeds the identifier limit of d.
func ForeignKeyName(d Dialect, table, column string) string {
	name := "fk_" + table + "__" + column
	if len(name) <= d.MaxIdentifierLength() {
		return name
	}
	return fmt.Sprintf("fk_%016x", xxh3.HashString(name))
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteWith(name, left, right string) string {
	return left + strings.ReplaceAll(name, right, right+right) + right
}

func quoteAll(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// valuesList renders rows placeholder tuples for cols columns each.
func valuesList(d Dialect, cols, rows int) string {
	tuples := make([]string, rows)
	for r := 0; r < rows; r++ {
		tuples[r] = "(" + generatePlaceholdersFrom(r*cols, cols, d.Placeholder) + ")"
	}
	return strings.Join(tuples, ", ")
}

// columnDefs describes how a dialect lays out the fixed columns of a table.
type columnDefs struct {
	id         string
	prefix     string
	itemType   func(schema.ColumnType) string
	decorate   func(c schema.Column) string
	tableClose string
}

func createTable(d Dialect, spec TableSpec, defs columnDefs) string {
	parts := []string{
		d.QuoteIdent(IDColumn) + " " + defs.id,
		d.QuoteIdent(spec.ItemColumn) + " " + defs.itemType(spec.ItemType) + " NOT NULL",
		d.QuoteIdent(spec.PrefixColumn) + " " + defs.prefix,
	}
	for _, c := range spec.Columns {
		def := d.QuoteIdent(c.Name) + " " + d.ColumnType(c.Type)
		if defs.decorate != nil {
			def += defs.decorate(c)
		}
		parts = append(parts, def)
	}
	parts = append(parts,
		fmt.Sprintf("UNIQUE (%s, %s)", d.QuoteIdent(spec.ItemColumn), d.QuoteIdent(spec.PrefixColumn)),
		fmt.Sprintf("UNIQUE (%s)", d.QuoteIdent(IDColumn)),
	)
	return fmt.Sprintf("CREATE TABLE %s (%s)%s",
		d.QualifiedName(spec.Namespace, spec.Table), strings.Join(parts, ", "), defs.tableClose)
}

// linkFuncs are the string functions a dialect offers for prefix matching.
type linkFuncs struct {
	concat func(parts ...string) string
	left   func(s, n string) string
	length string
	// nullPrefix is set when the empty prefix is stored as NULL.
	nullPrefix bool
}

// linkCondition matches target rows aliased t against origin rows o.
func linkCondition(d Dialect, spec LinkSpec, f linkFuncs, o, t string) string {
	op := o + "." + d.QuoteIdent(spec.PrefixColumn)
	tp := t + "." + d.QuoteIdent(spec.PrefixColumn)
	switch {
	case spec.Back:
		// A definition placed at the document root shares its parent's prefix.
		cond := fmt.Sprintf("%s = %s OR %s = %s", op, tp, f.left(op, f.length+"("+tp+") + 1"), f.concat(tp, "'/'"))
		if f.nullPrefix {
			return fmt.Sprintf("(%s IS NULL OR %s)", tp, cond)
		}
		return "(" + cond + ")"
	case spec.Prefix == "":
		if f.nullPrefix {
			return fmt.Sprintf("(%s = %s OR (%s IS NULL AND %s IS NULL))", tp, op, tp, op)
		}
		return fmt.Sprintf("%s = %s", tp, op)
	default:
		return fmt.Sprintf("%s = %s", tp, f.concat(op, quoteLiteral("/"+spec.Prefix)))
	}
}

// correlatedLinkUpdate sets the link column from a correlated subquery so the
// statement can run any number of times with the same result.
func correlatedLinkUpdate(d Dialect, spec LinkSpec, f linkFuncs, first func(query string) string) string {
	from := d.QualifiedName(spec.Namespace, spec.Table)
	sub := fmt.Sprintf("SELECT tgt.%s FROM %s tgt WHERE tgt.%s = %s.%s AND %s",
		d.QuoteIdent(IDColumn),
		d.QualifiedName(spec.Namespace, spec.Target),
		d.QuoteIdent(spec.ItemColumn), from, d.QuoteIdent(spec.ItemColumn),
		linkCondition(d, spec, f, from, "tgt"),
	)
	if spec.Back {
		order := f.length + "(tgt." + d.QuoteIdent(spec.PrefixColumn) + ")"
		if f.nullPrefix {
			order = "COALESCE(" + order + ", 0)"
		}
		sub = first(sub + " ORDER BY " + order + " DESC")
	}
	return fmt.Sprintf("UPDATE %s SET %s = (%s)", from, d.QuoteIdent(spec.Column), sub)
}

func alterForeignKey(d Dialect, spec LinkSpec, constraint string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QualifiedName(spec.Namespace, spec.Table),
		d.QuoteIdent(constraint),
		d.QuoteIdent(spec.Column),
		d.QualifiedName(spec.Namespace, spec.Target),
		d.QuoteIdent(IDColumn),
	)
}

func pipes(parts ...string) string {
	return strings.Join(parts, " || ")
}
