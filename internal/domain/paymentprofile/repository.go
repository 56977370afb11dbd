package paymentprofile

import (
	"context"
)

type Repository interface {
	// Get retrieves a payment profile by ID
	Get(ctx context.Context, id string) (*PaymentProfile, error)
}
