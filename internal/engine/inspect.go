package engine

import (
	"context"
	"fmt"
	"sort"
)

// ExistingTables returns the tables present in the configured namespace.
func (l *Loader) ExistingTables(ctx context.Context) (map[string]bool, error) {
	q, args := l.d.GetTablesQuery(l.cfg.Namespace)
	rows, err := l.queryStrings(ctx, q, args, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r[0]] = true
	}
	return out, nil
}

// ExistingColumns returns the columns of every table in the configured
// namespace.
func (l *Loader) ExistingColumns(ctx context.Context) (map[string]map[string]bool, error) {
	q, args := l.d.GetColumnsQuery(l.cfg.Namespace)
	rows, err := l.queryStrings(ctx, q, args, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	out := make(map[string]map[string]bool)
	for _, r := range rows {
		if out[r[0]] == nil {
			out[r[0]] = make(map[string]bool)
		}
		out[r[0]][r[1]] = true
	}
	return out, nil
}

// Drift lists the differences between the compiled catalog and the
// database.
type Drift struct {
	MissingTables  []string
	MissingColumns map[string][]string
}

// Empty reports whether the database matches the catalog.
func (d Drift) Empty() bool {
	return len(d.MissingTables) == 0 && len(d.MissingColumns) == 0
}

// Drift compares the catalog with the existing tables. Tables and columns
// the catalog does not know about are ignored.
func (l *Loader) Drift(ctx context.Context) (Drift, error) {
	cols, err := l.ExistingColumns(ctx)
	if err != nil {
		return Drift{}, err
	}

	var d Drift
	for _, name := range l.cat.TableNames() {
		have, ok := cols[name]
		if !ok {
			d.MissingTables = append(d.MissingTables, name)
			continue
		}
		t := l.cat.Tables[name]
		for _, c := range l.cfg.Columns(t) {
			if have[c] {
				continue
			}
			if d.MissingColumns == nil {
				d.MissingColumns = make(map[string][]string)
			}
			d.MissingColumns[name] = append(d.MissingColumns[name], c)
		}
	}
	for _, missing := range d.MissingColumns {
		sort.Strings(missing)
	}
	return d, nil
}
