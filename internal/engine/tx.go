package engine

import (
	"context"
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// RunInTx runs fn inside a transaction on db. The transaction is committed
// when fn succeeds and rolled back otherwise.
func RunInTx(ctx context.Context, db *sql.DB, fn func(DB) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Warning: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithDB returns a copy of the loader running its statements on db, for
// instance a transaction started with RunInTx. Mapper counters are shared.
func (l *Loader) WithDB(db DB) *Loader {
	c := *l
	c.db = db
	return &c
}
