package testutil

import (
	"context"
	"sync"

	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	ierr "github.com/ispops/billing/internal/errors"
)

// InMemoryPaymentProfileStore implements paymentprofile.Repository
type InMemoryPaymentProfileStore struct {
	*InMemoryStore[*paymentprofile.PaymentProfile]
}

func NewInMemoryPaymentProfileStore() *InMemoryPaymentProfileStore {
	return &InMemoryPaymentProfileStore{
		InMemoryStore: NewInMemoryStore[*paymentprofile.PaymentProfile](copyPaymentProfile),
	}
}

func copyPaymentProfile(p *paymentprofile.PaymentProfile) *paymentprofile.PaymentProfile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Add seeds a payment profile
func (s *InMemoryPaymentProfileStore) Add(ctx context.Context, p *paymentprofile.PaymentProfile) error {
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPaymentProfileStore) Get(ctx context.Context, id string) (*paymentprofile.PaymentProfile, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("payment profile %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

// InMemorySequenceAllocator implements invoice.SequenceAllocator on top of the payment profile
// store, so allocations are undone together with the rest of a rolled back transaction
type InMemorySequenceAllocator struct {
	mu       sync.Mutex
	profiles *InMemoryPaymentProfileStore
	invoices *InMemoryInvoiceStore
}

var _ invoice.SequenceAllocator = (*InMemorySequenceAllocator)(nil)

func NewInMemorySequenceAllocator(profiles *InMemoryPaymentProfileStore, invoices *InMemoryInvoiceStore) *InMemorySequenceAllocator {
	return &InMemorySequenceAllocator{
		profiles: profiles,
		invoices: invoices,
	}
}

func (a *InMemorySequenceAllocator) AllocateNextNumber(ctx context.Context, paymentProfileID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.profile(ctx, paymentProfileID)
	if err != nil {
		return 0, err
	}

	number := p.NextExternalNumber
	p.NextExternalNumber++
	if err := a.profiles.Update(ctx, p.ID, p); err != nil {
		return 0, err
	}
	return number, nil
}

func (a *InMemorySequenceAllocator) PeekNextNumber(ctx context.Context, paymentProfileID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.profile(ctx, paymentProfileID)
	if err != nil {
		return 0, err
	}
	return p.NextExternalNumber, nil
}

func (a *InMemorySequenceAllocator) Resync(ctx context.Context, paymentProfileID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, err := a.profile(ctx, paymentProfileID)
	if err != nil {
		return err
	}

	p.NextExternalNumber = max(p.NextExternalNumber, a.invoices.MaxExternalSequence(ctx, paymentProfileID)+1)
	return a.profiles.Update(ctx, p.ID, p)
}

func (a *InMemorySequenceAllocator) profile(ctx context.Context, id string) (*paymentprofile.PaymentProfile, error) {
	p, err := a.profiles.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("payment profile %s not found", id).
			WithReportableDetails(map[string]any{
				"payment_profile_id": id,
			}).
			Mark(ierr.ErrMissingDependency)
	}
	return p, nil
}
