package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use, so
// the same repo code runs inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// nullID converts an optional id into a driver value.
func nullID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

// idPtr reads a nullable id column.
func idPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

// inTx runs fn on a READ COMMITTED transaction on db, rolling back when
// fn fails.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// lockRow takes a FOR UPDATE lock on table row id, returning missing when
// the row does not exist.
func lockRow(ctx context.Context, q querier, table string, id uint64, missing error) error {
	var got uint64
	err := q.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE id=? FOR UPDATE", id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return missing
	}
	return err
}
