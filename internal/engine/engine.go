// Package engine creates the compiled tables in a database, loads mapped
// rows into them and materializes the links between rows.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"schema2db/internal/dialect"
	"schema2db/internal/mapper"
	"schema2db/internal/schema"

	log "github.com/sirupsen/logrus"
)

// DB is the storage capability the loader needs. *sql.DB, *sql.Tx and
// *sql.Conn satisfy it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const (
	DefaultItemColumn   = "item_id"
	DefaultPrefixColumn = "prefix"
	DefaultBatchSize    = 1000
)

// Config holds the table layout settings shared by every statement.
type Config struct {
	Namespace    string
	ItemColumn   string
	ItemType     schema.ColumnType
	PrefixColumn string
	BatchSize    int
}

// WithDefaults fills unset fields with their defaults.
func (c Config) WithDefaults() Config {
	if c.ItemColumn == "" {
		c.ItemColumn = DefaultItemColumn
	}
	if c.ItemType == "" {
		c.ItemType = schema.TypeInteger
	}
	if c.PrefixColumn == "" {
		c.PrefixColumn = DefaultPrefixColumn
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

// Columns returns the insert column list of t: item, prefix, then the
// finalized columns.
func (c Config) Columns(t *schema.Table) []string {
	cols := make([]string, 0, len(t.Columns)+2)
	cols = append(cols, c.ItemColumn, c.PrefixColumn)
	return append(cols, t.ColumnNames()...)
}

// Loader runs the DDL and DML for one compiled catalog.
type Loader struct {
	db     DB
	d      dialect.Dialect
	cat    *schema.Catalog
	cfg    Config
	mapper *mapper.Mapper
}

func NewLoader(db DB, d dialect.Dialect, cat *schema.Catalog, cfg Config) *Loader {
	cfg = cfg.WithDefaults()
	return &Loader{
		db:     db,
		d:      d,
		cat:    cat,
		cfg:    cfg,
		mapper: mapper.New(cat, cfg.ItemType),
	}
}

// Config returns the effective configuration.
func (l *Loader) Config() Config { return l.cfg }

// Catalog returns the compiled catalog the loader works on.
func (l *Loader) Catalog() *schema.Catalog { return l.cat }

// Mapper returns the mapper whose counters collect insert failures.
func (l *Loader) Mapper() *mapper.Mapper { return l.mapper }

func (l *Loader) table(name string) string {
	return l.d.QualifiedName(l.cfg.Namespace, name)
}

func (l *Loader) exec(ctx context.Context, query string, args ...any) error {
	log.Debug(query)
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", query, err)
	}
	return nil
}

func (l *Loader) queryStrings(ctx context.Context, query string, args []any, n int) ([][]string, error) {
	log.Debug(query)
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals := make([]string, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}
