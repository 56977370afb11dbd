package postgres

import (
	"context"
)

// IClient is the transaction boundary the services depend on.
// Every repository call made with the context handed to fn joins the same transaction, and a
// nested WithTx becomes a savepoint that can fail without aborting the outer transaction.
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

var _ IClient = (*DB)(nil)

// NewClient exposes the DB as the transaction boundary
func NewClient(db *DB) IClient {
	return db
}
