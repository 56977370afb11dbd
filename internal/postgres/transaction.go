package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/jmoiron/sqlx"
)

// Tx is a top level transaction plus the depth of the savepoints opened inside it.
// Depth 0 is the transaction itself.
type Tx struct {
	*sqlx.Tx
	depth int
	ID    string
}

func (tx *Tx) savepointName() string {
	return fmt.Sprintf("sp_%d", tx.depth)
}

// GetTx returns the transaction carried by ctx, if any
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(types.CtxDBTransaction).(*Tx)
	return tx, ok
}

// BeginTx opens a transaction, or a savepoint when ctx already carries one
func (db *DB) BeginTx(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := GetTx(ctx); ok {
		tx.depth++
		name := tx.savepointName()
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			tx.depth--
			return ctx, nil, errors.Wrapf(err, "create savepoint %s", name)
		}
		db.logger.Debugw("opened savepoint", "tx_id", tx.ID, "savepoint", name)
		return ctx, tx, nil
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ctx, nil, errors.Wrap(err, "begin transaction")
	}
	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	db.logger.Debugw("began transaction", "tx_id", tx.ID)

	return context.WithValue(ctx, types.CtxDBTransaction, tx), tx, nil
}

// CommitTx releases the innermost savepoint, or commits when none is open
func (db *DB) CommitTx(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}

	if tx.depth == 0 {
		db.logger.Debugw("committing transaction", "tx_id", tx.ID)
		return errors.Wrap(tx.Commit(), "commit transaction")
	}

	name := tx.savepointName()
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return errors.Wrapf(err, "release savepoint %s", name)
	}
	tx.depth--
	return nil
}

// RollbackTx undoes the innermost savepoint, or the whole transaction when none is open
func (db *DB) RollbackTx(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return errors.New("no transaction in context")
	}

	if tx.depth == 0 {
		db.logger.Debugw("rolling back transaction", "tx_id", tx.ID)
		return errors.Wrap(tx.Rollback(), "rollback transaction")
	}

	name := tx.savepointName()
	db.logger.Debugw("rolling back to savepoint", "tx_id", tx.ID, "savepoint", name)
	if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return errors.Wrapf(err, "rollback to savepoint %s", name)
	}
	tx.depth--
	return nil
}

// WithTx runs fn in a transaction, or in a savepoint when called inside one. fn's error is
// returned unchanged so callers can still match its sentinel.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in transaction", "tx_id", tx.ID, "panic", r)
			_ = db.RollbackTx(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := db.RollbackTx(ctx); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}
	return db.CommitTx(ctx)
}
