// Package dbx holds the small database/sql abstractions shared by the
// repositories: the DBTX interface satisfied by *sql.DB and *sql.Tx, a
// transaction helper and Postgres error classification.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX lets a repository run against the pool or inside a transaction:
// repomanager hands out repos over either *sql.DB or *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc is the unit of work passed to WithTx.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx runs fn in one transaction. A nil error commits; an error or panic
// rolls back, and a failed rollback is joined onto fn's error. The seeder
// replaces a whole collection this way:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    repo := rm.Persons(tx)
//	    if _, err := repo.DeleteAll(ctx); err != nil {
//	        return err
//	    }
//	    _, err := repo.Create(ctx, p)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit tx: %w", cErr)
		}
	}()

	return fn(ctx, tx)
}

// RowsAffectedOne reports whether res touched exactly one row.
func RowsAffectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
