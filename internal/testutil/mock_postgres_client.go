package testutil

import (
	"context"
	"sync"

	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// Snapshotter is a store whose contents can be saved and restored
type Snapshotter interface {
	Snapshot() func()
}

type mockTx struct {
	depth int
}

// MockPostgresClient runs transactions against in-memory stores. Every WithTx, nested ones
// included, snapshots the registered stores and restores them when fn fails, mirroring
// transactions and savepoints. Top level transactions are serialized.
type MockPostgresClient struct {
	mu     sync.Mutex
	stores []Snapshotter
	logger *logger.Logger

	commits   int
	rollbacks int
	statsMu   sync.Mutex
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger, stores ...Snapshotter) *MockPostgresClient {
	return &MockPostgresClient{
		stores: stores,
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	tx, nested := ctx.Value(types.CtxDBTransaction).(*mockTx)
	if !nested {
		c.mu.Lock()
		defer c.mu.Unlock()
		tx = &mockTx{}
		ctx = context.WithValue(ctx, types.CtxDBTransaction, tx)
	}

	tx.depth++
	defer func() { tx.depth-- }()

	restores := make([]func(), 0, len(c.stores))
	for _, store := range c.stores {
		restores = append(restores, store.Snapshot())
	}
	rollback := func() {
		for _, restore := range restores {
			restore()
		}
		c.record(false)
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			c.logger.Debugw("mock transaction rolled back after panic", "depth", tx.depth, "panic", p)
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		rollback()
		c.logger.Debugw("mock transaction rolled back", "depth", tx.depth, "error", err)
		return err
	}

	c.record(true)
	return nil
}

func (c *MockPostgresClient) record(committed bool) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if committed {
		c.commits++
	} else {
		c.rollbacks++
	}
}

// Rollbacks returns how many transactions or savepoints were rolled back
func (c *MockPostgresClient) Rollbacks() int {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.rollbacks
}

// Reset forgets the transaction counters
func (c *MockPostgresClient) Reset() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.commits = 0
	c.rollbacks = 0
}
