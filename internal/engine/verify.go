package engine

import (
	"context"
	"fmt"
	"strconv"

	"schema2db/internal/schema"
)

const (
	StatusOK       = "OK"
	StatusMissing  = "MISSING TABLE"
	StatusUnlinked = "UNLINKED"
)

// TableReport is the verification result of one table.
type TableReport struct {
	Table string
	Rows  int64
	// Unlinked counts rows whose back link is still NULL, per column. Every
	// nested row has an enclosing row, so any count here means links were
	// not created or data was loaded after linking.
	Unlinked map[string]int64
	// Empty counts NULL forward links per column. These are expected where
	// the referenced object was absent from the item.
	Empty  map[string]int64
	Status string
}

// Verify counts the rows of every table and the link columns left NULL.
func (l *Loader) Verify(ctx context.Context) ([]TableReport, error) {
	existing, err := l.ExistingTables(ctx)
	if err != nil {
		return nil, err
	}

	linksByTable := make(map[string][]schema.Link)
	for _, link := range l.cat.Links {
		linksByTable[link.Table] = append(linksByTable[link.Table], link)
	}

	var reports []TableReport
	for _, t := range l.cat.Ordered() {
		r := TableReport{Table: t.Name, Status: StatusOK}
		if !existing[t.Name] {
			r.Status = StatusMissing
			reports = append(reports, r)
			continue
		}

		table := l.table(t.Name)
		if r.Rows, err = l.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
			return reports, err
		}
		for _, link := range linksByTable[t.Name] {
			n, err := l.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL", table, l.d.QuoteIdent(link.Column)))
			if err != nil {
				return reports, err
			}
			if n == 0 {
				continue
			}
			if link.Back {
				if r.Unlinked == nil {
					r.Unlinked = make(map[string]int64)
				}
				r.Unlinked[link.Column] = n
				r.Status = StatusUnlinked
			} else {
				if r.Empty == nil {
					r.Empty = make(map[string]int64)
				}
				r.Empty[link.Column] = n
			}
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (l *Loader) count(ctx context.Context, query string) (int64, error) {
	rows, err := l.queryStrings(ctx, query, nil, 1)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", query, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return strconv.ParseInt(rows[0][0], 10, 64)
}
