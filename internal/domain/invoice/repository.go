package invoice

import (
	"context"
	"time"

	"github.com/ispops/billing/internal/types"
)

// Repository defines the interface for invoice persistence operations.
// Every method joins the transaction carried by ctx when there is one.
type Repository interface {
	// Create persists a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetMaxInstallmentIndex returns the highest installment index issued for a contract,
	// cancelled invoices included, or 0 when the contract has no invoices
	GetMaxInstallmentIndex(ctx context.Context, contractID string) (int, error)

	// GetLatest returns the active invoice with the latest due date of a contract, or nil
	GetLatest(ctx context.Context, contractID string) (*Invoice, error)

	// List retrieves invoices ordered by installment index
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Void marks an invoice cancelled at the given time and keeps it as an audit record
	Void(ctx context.Context, id string, at time.Time) error

	// Delete removes an invoice that was never registered externally
	Delete(ctx context.Context, id string) error
}
