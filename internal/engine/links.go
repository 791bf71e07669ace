package engine

import (
	"context"
	"fmt"

	"schema2db/internal/dialect"

	log "github.com/sirupsen/logrus"
)

// CreateLinks fills every link column with the id of the row it points to,
// then adds a foreign key for it. It must run after all rows are loaded.
// Running it again yields the same ids; a foreign key that cannot be added,
// for instance because it already exists, is logged and skipped.
func (l *Loader) CreateLinks(ctx context.Context) error {
	for _, link := range l.cat.Links {
		spec := dialect.NewLinkSpec(link, l.cfg.Namespace, l.cfg.ItemColumn, l.cfg.PrefixColumn)
		if err := l.exec(ctx, l.d.LinkUpdateQuery(spec)); err != nil {
			return fmt.Errorf("failed to link %s.%s to %s: %w", link.Table, link.Column, link.Target, err)
		}

		q := l.d.ForeignKeyQuery(spec, dialect.ForeignKeyName(l.d, link.Table, link.Column))
		if q == "" {
			continue
		}
		if err := l.exec(ctx, q); err != nil {
			log.WithError(err).Warnf("Warning: could not add foreign key on %s.%s", link.Table, link.Column)
		}
	}
	log.Printf("Linked %d columns", len(l.cat.Links))
	return nil
}

// Analyze refreshes the planner statistics of every table.
func (l *Loader) Analyze(ctx context.Context) error {
	for _, t := range l.cat.Ordered() {
		if err := l.exec(ctx, l.d.AnalyzeQuery(l.table(t.Name))); err != nil {
			return fmt.Errorf("failed to analyze %s: %w", t.Name, err)
		}
	}
	return nil
}
