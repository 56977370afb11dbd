package invoice

import (
	"context"
)

// SequenceAllocator hands out the external sequence numbers of a payment profile.
// Allocation participates in the transaction carried by ctx, so numbers consumed by a
// rolled back transaction are handed out again.
type SequenceAllocator interface {
	// AllocateNextNumber returns the next number of the profile and advances its counter
	AllocateNextNumber(ctx context.Context, paymentProfileID string) (int64, error)

	// PeekNextNumber returns the number the next allocation would return without consuming it
	PeekNextNumber(ctx context.Context, paymentProfileID string) (int64, error)

	// Resync moves the counter past the highest sequence already used by the profile's invoices
	Resync(ctx context.Context, paymentProfileID string) error
}
