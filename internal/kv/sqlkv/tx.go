package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Tx is a transaction on a DB.
type Tx struct {
	tx *sql.Tx
}

// ExecContext executes a statement inside the transaction.
func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// CommitOrRollback can be used in a defer statement to commit or rollback a
// transaction depending on whether the enclosing function returned an error.
//
//	func myFunc() (err error) {
//	  tx, err := db.Begin(ctx)
//	  if err != nil { return err }
//	  defer tx.CommitOrRollback(&err)
//	  ...
//	}
func (t *Tx) CommitOrRollback(err *error) {
	if *err != nil {
		*err = errors.Join(*err, t.Rollback())
	} else {
		*err = t.Commit()
	}
}
