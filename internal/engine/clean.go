package engine

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Clean empties, or drops when drop is set, every catalog table that exists.
// Referencing tables are handled before the tables they point at. Failures
// are logged and skipped; the number of tables handled is returned.
func (l *Loader) Clean(ctx context.Context, drop bool) (int, error) {
	existing, err := l.ExistingTables(ctx)
	if err != nil {
		return 0, err
	}

	tables := l.cat.Ordered()
	count := 0
	for i := len(tables) - 1; i >= 0; i-- {
		t := tables[i]
		if !existing[t.Name] {
			continue
		}
		q := l.d.ClearTableQuery(l.table(t.Name))
		if drop {
			q = l.d.DropTableQuery(l.table(t.Name))
		}
		if err := l.exec(ctx, q); err != nil {
			log.Printf("Warning: Failed to clean %s: %v (continuing...)", t.Name, err)
			continue
		}
		count++
		if count%5 == 0 {
			log.Printf("Cleaned %d tables...", count)
		}
	}

	log.Printf("Cleaned %d/%d tables", count, len(tables))
	return count, nil
}
