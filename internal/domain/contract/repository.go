package contract

import (
	"context"

	"github.com/ispops/billing/internal/types"
)

// Repository defines the read access the billing engine needs to contracts
type Repository interface {
	// Get retrieves a contract by ID
	Get(ctx context.Context, id string) (*Contract, error)

	// List retrieves contracts based on filter criteria
	List(ctx context.Context, filter *types.ContractFilter) ([]*Contract, error)
}
