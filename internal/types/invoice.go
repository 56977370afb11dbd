package types

import (
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/samber/lo"
)

// InvoiceState is the lifecycle state of an invoice.
// An invoice is never edited in place: it is either active or cancelled, and a cancelled
// invoice may be superseded by a replacement that points back at it.
type InvoiceState string

const (
	InvoiceStateActive    InvoiceState = "active"
	InvoiceStateCancelled InvoiceState = "cancelled"
)

func (s InvoiceState) String() string {
	return string(s)
}

func (s InvoiceState) Validate() error {
	allowed := []InvoiceState{
		InvoiceStateActive,
		InvoiceStateCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice state").
			WithHint("Please provide a valid invoice state").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter narrows invoice listings for a contract or payment profile.
type InvoiceFilter struct {
	*QueryFilter

	ContractID       string         `json:"contract_id,omitempty" form:"contract_id"`
	PaymentProfileID string         `json:"payment_profile_id,omitempty" form:"payment_profile_id"`
	InvoiceIDs       []string       `json:"invoice_ids,omitempty" form:"invoice_ids"`
	States           []InvoiceState `json:"states,omitempty" form:"states"`
	DueDateFrom      *time.Time     `json:"due_date_from,omitempty" form:"due_date_from"`
	DueDateTo        *time.Time     `json:"due_date_to,omitempty" form:"due_date_to"`
}

// NewInvoiceFilter returns a paginated invoice filter
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitInvoiceFilter returns an unpaginated filter ordered by installment index
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	for _, s := range f.States {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if f.DueDateFrom != nil && f.DueDateTo != nil && f.DueDateTo.Before(*f.DueDateFrom) {
		return ierr.NewError("invalid due date range").
			WithHint("due_date_to must not be before due_date_from").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// WithActiveOnly restricts the filter to invoices that have not been cancelled
func (f *InvoiceFilter) WithActiveOnly() *InvoiceFilter {
	f.States = []InvoiceState{InvoiceStateActive}
	return f
}
