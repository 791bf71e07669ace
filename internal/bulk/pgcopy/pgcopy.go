// Package pgcopy loads mapped rows into Postgres with the COPY protocol.
package pgcopy

import (
	"context"
	"fmt"

	"schema2db/internal/engine"
	"schema2db/internal/mapper"
	"schema2db/internal/schema"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Copier is the part of pgxpool.Pool the sink needs.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Sink buffers rows per table and writes them with CopyFrom once BatchSize
// rows are pending.
type Sink struct {
	conn Copier
	cfg  engine.Config

	pending map[string][][]any
	tables  map[string]*schema.Table
	copied  int64
}

// Beginner starts the transaction a sink copies in. *pgxpool.Pool and
// *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a pool on dsn and checks that it answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgxpool: ping: %w", err)
	}
	return pool, nil
}

// InTx runs fn with a sink copying inside one transaction on db. The rows
// are committed when fn returns nil and rolled back otherwise.
func InTx(ctx context.Context, db Beginner, cfg engine.Config, fn func(*Sink) error) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		return fn(New(tx, cfg))
	})
}

// New returns a sink copying through conn.
func New(conn Copier, cfg engine.Config) *Sink {
	return &Sink{
		conn:    conn,
		cfg:     cfg.WithDefaults(),
		pending: make(map[string][][]any),
		tables:  make(map[string]*schema.Table),
	}
}

// Copied returns the number of rows written so far.
func (s *Sink) Copied() int64 { return s.copied }

func (s *Sink) Write(ctx context.Context, t *schema.Table, rows []mapper.Row) error {
	s.tables[t.Name] = t
	for _, r := range rows {
		s.pending[t.Name] = append(s.pending[t.Name], r.Args())
	}
	if len(s.pending[t.Name]) >= s.cfg.BatchSize {
		return s.flushTable(ctx, t)
	}
	return nil
}

func (s *Sink) Flush(ctx context.Context) error {
	for name := range s.pending {
		if err := s.flushTable(ctx, s.tables[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) flushTable(ctx context.Context, t *schema.Table) error {
	rows := s.pending[t.Name]
	delete(s.pending, t.Name)
	if len(rows) == 0 {
		return nil
	}

	n, err := s.conn.CopyFrom(ctx, Identifier(s.cfg.Namespace, t.Name), s.cfg.Columns(t), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", t.Name, err)
	}
	log.Debugf("copied %d rows into %s", n, t.Name)
	s.copied += n
	return nil
}

// Identifier returns the pgx identifier of table inside namespace.
func Identifier(namespace, table string) pgx.Identifier {
	if namespace == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{namespace, table}
}
