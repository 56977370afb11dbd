package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ispops/billing/internal/logger"
	"github.com/jmoiron/sqlx"
)

// slowQueryThreshold promotes a successful query to a warning
const slowQueryThreshold = 500 * time.Millisecond

// TracedQuerier logs every statement run through it with its duration and transaction
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{
		Querier: q,
		logger:  logger,
		txID:    txID,
	}
}

// trace logs a finished statement. sql.ErrNoRows is an expected outcome, not a failure.
func (tq *TracedQuerier) trace(start time.Time, query string, params interface{}, err error) {
	elapsed := time.Since(start)
	fields := []interface{}{
		"duration_ms", elapsed.Milliseconds(),
		"query", query,
		"params", params,
	}
	if tq.txID != "" {
		fields = append(fields, "tx_id", tq.txID)
	}

	switch {
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		tq.logger.Errorw("database query failed", append(fields, "error", err)...)
	case elapsed > slowQueryThreshold:
		tq.logger.Warnw("slow database query", fields...)
	default:
		tq.logger.Debugw("database query completed", fields...)
	}
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	tq.trace(start, query, args, err)
	return result, err
}

func (tq *TracedQuerier) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := tq.Querier.NamedExecContext(ctx, query, arg)
	tq.trace(start, query, arg, err)
	return result, err
}

func (tq *TracedQuerier) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := tq.Querier.QueryxContext(ctx, query, args...)
	tq.trace(start, query, args, err)
	return rows, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	tq.trace(start, query, args, err)
	return err
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := tq.Querier.SelectContext(ctx, dest, query, args...)
	tq.trace(start, query, args, err)
	return err
}
