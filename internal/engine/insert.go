package engine

import (
	"context"
	"fmt"
	"sort"

	"schema2db/internal/dialect"
	"schema2db/internal/mapper"
	"schema2db/internal/schema"
)

// Sink receives mapped rows table by table. Implementations may buffer;
// Flush must persist everything written so far.
type Sink interface {
	Write(ctx context.Context, t *schema.Table, rows []mapper.Row) error
	Flush(ctx context.Context) error
}

// Insert maps items and hands the rows to sink in dependency order. It
// returns the number of rows produced per table. A prefix invariant
// violation aborts the whole call before anything is written.
func (l *Loader) Insert(ctx context.Context, items []mapper.Item, sink Sink, onProgress func()) (map[string]int, error) {
	var rows []mapper.Row
	for _, item := range items {
		r, err := l.mapper.MapItem(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r...)
		if onProgress != nil {
			onProgress()
		}
	}

	groups := mapper.GroupByTable(rows)
	counts := make(map[string]int, len(groups))
	for _, t := range l.cat.Ordered() {
		g := groups[t.Name]
		if len(g) == 0 {
			continue
		}
		if err := sink.Write(ctx, t, g); err != nil {
			return counts, err
		}
		counts[t.Name] = len(g)
	}
	return counts, nil
}

// Load feeds items to sink in chunks of BatchSize items and flushes it. Run
// it on a loader and sink bound to one transaction to keep a failed load
// from leaving earlier chunks behind.
func (l *Loader) Load(ctx context.Context, items []mapper.Item, sink Sink, onProgress func()) (map[string]int, error) {
	totals := make(map[string]int)
	for start := 0; start < len(items); start += l.cfg.BatchSize {
		end := min(start+l.cfg.BatchSize, len(items))
		counts, err := l.Insert(ctx, items[start:end], sink, onProgress)
		if err != nil {
			return totals, err
		}
		for t, n := range counts {
			totals[t] += n
		}
	}
	if err := sink.Flush(ctx); err != nil {
		return totals, err
	}
	return totals, nil
}

// DiscardSink drops every row. It backs dry runs, where mapping and
// validation still happen.
type DiscardSink struct{}

func (DiscardSink) Write(ctx context.Context, t *schema.Table, rows []mapper.Row) error { return nil }

func (DiscardSink) Flush(ctx context.Context) error { return nil }

// InsertSink writes rows with multi-row INSERT statements, buffering up to
// BatchSize rows per table.
type InsertSink struct {
	db  DB
	d   dialect.Dialect
	cfg Config

	pending map[string][]mapper.Row
	tables  map[string]*schema.Table
}

// NewInsertSink returns a sink inserting through db.
func NewInsertSink(db DB, d dialect.Dialect, cfg Config) *InsertSink {
	return &InsertSink{
		db:      db,
		d:       d,
		cfg:     cfg.WithDefaults(),
		pending: make(map[string][]mapper.Row),
		tables:  make(map[string]*schema.Table),
	}
}

func (s *InsertSink) Write(ctx context.Context, t *schema.Table, rows []mapper.Row) error {
	s.tables[t.Name] = t
	s.pending[t.Name] = append(s.pending[t.Name], rows...)
	if len(s.pending[t.Name]) >= s.cfg.BatchSize {
		return s.flushTable(ctx, t)
	}
	return nil
}

// Flush writes the remaining rows. Tables are flushed by name so that
// statements come out in a stable order.
func (s *InsertSink) Flush(ctx context.Context) error {
	names := make([]string, 0, len(s.pending))
	for name := range s.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.flushTable(ctx, s.tables[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *InsertSink) flushTable(ctx context.Context, t *schema.Table) error {
	rows := s.pending[t.Name]
	delete(s.pending, t.Name)

	cols := s.cfg.Columns(t)
	table := s.d.QualifiedName(s.cfg.Namespace, t.Name)
	step := dialect.RowsPerInsert(s.d, len(cols), s.cfg.BatchSize)

	for start := 0; start < len(rows); start += step {
		end := start + step
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		args := make([]any, 0, len(chunk)*len(cols))
		for _, r := range chunk {
			args = append(args, r.Args()...)
		}
		if _, err := s.db.ExecContext(ctx, s.d.InsertQuery(table, cols, len(chunk)), args...); err != nil {
			return fmt.Errorf("failed to insert %d rows into %s: %w", len(chunk), t.Name, err)
		}
	}
	return nil
}
