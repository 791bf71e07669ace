package engine

import (
	"context"
	"fmt"

	"schema2db/internal/dialect"
	"schema2db/internal/schema"

	log "github.com/sirupsen/logrus"
)

// TableSpec returns the DDL description of t.
func (l *Loader) TableSpec(t *schema.Table) dialect.TableSpec {
	return dialect.TableSpec{
		Namespace:    l.cfg.Namespace,
		Table:        t.Name,
		Comment:      t.Comment,
		ItemColumn:   l.cfg.ItemColumn,
		ItemType:     l.cfg.ItemType,
		PrefixColumn: l.cfg.PrefixColumn,
		Columns:      t.Columns,
	}
}

// CreateTables recreates the namespace, when one is configured, and creates
// every table with its comments. Link targets are created first.
func (l *Loader) CreateTables(ctx context.Context) error {
	for _, q := range l.d.CreateNamespaceQueries(l.cfg.Namespace) {
		if err := l.exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create namespace %s: %w", l.cfg.Namespace, err)
		}
	}

	tables := l.cat.Ordered()
	for _, t := range tables {
		spec := l.TableSpec(t)
		if err := l.exec(ctx, l.d.CreateTableQuery(spec)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		for _, c := range l.d.CommentQueries(spec) {
			if err := l.exec(ctx, c.Query, c.Args...); err != nil {
				return fmt.Errorf("failed to comment on %s: %w", t.Name, err)
			}
		}
	}
	log.Printf("Created %d tables", len(tables))
	return nil
}
