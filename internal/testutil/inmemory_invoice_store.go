package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/ispops/billing/internal/domain/invoice"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository.
// It enforces the same uniqueness rules as the invoices table.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	// writeMu makes the uniqueness check and the insert one step
	writeMu    sync.Mutex
	createHook func(inv *invoice.Invoice) error
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](copyInvoice),
	}
}

// Helper to copy invoice
func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	cp := *inv
	if inv.CancelledAt != nil {
		cp.CancelledAt = lo.ToPtr(*inv.CancelledAt)
	}
	if inv.ExternalRegistrationID != nil {
		cp.ExternalRegistrationID = lo.ToPtr(*inv.ExternalRegistrationID)
	}
	if inv.ReplacesInvoiceID != nil {
		cp.ReplacesInvoiceID = lo.ToPtr(*inv.ReplacesInvoiceID)
	}
	return &cp
}

// OnCreate installs a hook that runs before every insert; a non-nil error aborts the insert
func (s *InMemoryInvoiceStore) OnCreate(hook func(inv *invoice.Invoice) error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.createHook = hook
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.createHook != nil {
		if err := s.createHook(inv); err != nil {
			return err
		}
	}

	existing, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if inv.ExternalNumber != "" &&
			other.PaymentProfileID == inv.PaymentProfileID &&
			other.ExternalSequence == inv.ExternalSequence {
			return ierr.NewError("duplicate external sequence").
				WithHintf("external number %s is already used on this payment profile", inv.ExternalNumber).
				WithReportableDetails(map[string]any{
					"payment_profile_id": inv.PaymentProfileID,
					"external_sequence":  inv.ExternalSequence,
				}).
				Mark(ierr.ErrAllocationConflict)
		}
		if other.IsActive() &&
			other.ContractID == inv.ContractID &&
			other.InstallmentIndex == inv.InstallmentIndex {
			return ierr.NewError("invoice already exists").
				WithHint("invoice already exists").
				WithReportableDetails(map[string]any{
					"contract_id":       inv.ContractID,
					"installment_index": inv.InstallmentIndex,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("invoice %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) GetMaxInstallmentIndex(ctx context.Context, contractID string) (int, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return 0, err
	}

	maxIndex := 0
	for _, inv := range invoices {
		if inv.ContractID == contractID && CheckTenantFilter(ctx, inv.TenantID) {
			maxIndex = max(maxIndex, inv.InstallmentIndex)
		}
	}
	return maxIndex, nil
}

func (s *InMemoryInvoiceStore) GetLatest(ctx context.Context, contractID string) (*invoice.Invoice, error) {
	filter := types.NewNoLimitInvoiceFilter().WithActiveOnly()
	filter.ContractID = contractID

	invoices, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}

	latest := lo.MaxBy(invoices, func(a, b *invoice.Invoice) bool {
		if a.DueDate.Equal(b.DueDate) {
			return a.InstallmentIndex > b.InstallmentIndex
		}
		return a.DueDate.After(b.DueDate)
	})
	return latest, nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	desc := filter.GetOrder() == types.OrderDesc
	return s.InMemoryStore.List(ctx, filter, invoiceFilterFn, func(i, j *invoice.Invoice) bool {
		if i.InstallmentIndex == j.InstallmentIndex {
			if desc {
				return i.CreatedAt.After(j.CreatedAt)
			}
			return i.CreatedAt.Before(j.CreatedAt)
		}
		if desc {
			return i.InstallmentIndex > j.InstallmentIndex
		}
		return i.InstallmentIndex < j.InstallmentIndex
	})
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	if !CheckTenantFilter(ctx, inv.TenantID) {
		return false
	}

	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}

	if f.ContractID != "" && inv.ContractID != f.ContractID {
		return false
	}
	if f.PaymentProfileID != "" && inv.PaymentProfileID != f.PaymentProfileID {
		return false
	}
	if len(f.InvoiceIDs) > 0 && !lo.Contains(f.InvoiceIDs, inv.ID) {
		return false
	}
	if len(f.States) > 0 && !lo.Contains(f.States, inv.State()) {
		return false
	}
	if f.DueDateFrom != nil && inv.DueDate.Before(*f.DueDateFrom) {
		return false
	}
	if f.DueDateTo != nil && inv.DueDate.After(*f.DueDateTo) {
		return false
	}
	return true
}

func (s *InMemoryInvoiceStore) Void(ctx context.Context, id string, at time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !inv.IsActive() {
		return ierr.NewError("invoice not found").
			WithHintf("invoice %s not found or no longer modifiable", id).
			Mark(ierr.ErrNotFound)
	}

	inv.CancelledAt = lo.ToPtr(at)
	inv.Touch(ctx)
	return s.InMemoryStore.Update(ctx, id, inv)
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.IsRegistered() {
		return ierr.NewError("invoice not found").
			WithHintf("invoice %s not found or no longer modifiable", id).
			Mark(ierr.ErrNotFound)
	}
	return s.InMemoryStore.Delete(ctx, id)
}

// MaxExternalSequence returns the highest sequence used on a payment profile
func (s *InMemoryInvoiceStore) MaxExternalSequence(ctx context.Context, paymentProfileID string) int64 {
	invoices, _ := s.InMemoryStore.List(ctx, nil, nil, nil)

	var maxSeq int64
	for _, inv := range invoices {
		if inv.PaymentProfileID == paymentProfileID && inv.ExternalNumber != "" {
			maxSeq = max(maxSeq, inv.ExternalSequence)
		}
	}
	return maxSeq
}
