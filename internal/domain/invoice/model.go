package invoice

import (
	"context"
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Invoice is one billable document of a contract. Invoices are append only: the amount and the
// original due date never change after creation, and a correction cancels or removes the
// invoice and issues a replacement.
type Invoice struct {
	// ID is the unique identifier for the invoice
	ID string `db:"id" json:"id"`

	// ContractID is the contract the invoice bills
	ContractID string `db:"contract_id" json:"contract_id"`

	// PaymentProfileID is the profile whose sequence numbered the invoice
	PaymentProfileID string `db:"payment_profile_id" json:"payment_profile_id"`

	// PeriodStart is the first day covered, inclusive
	PeriodStart time.Time `db:"period_start" json:"period_start"`

	// PeriodEnd is the last day covered, inclusive, and always equals DueDate
	PeriodEnd time.Time `db:"period_end" json:"period_end"`

	DueDate time.Time `db:"due_date" json:"due_date"`

	// OriginalDueDate is the due date the invoice was first issued with
	OriginalDueDate time.Time `db:"original_due_date" json:"original_due_date"`

	Amount decimal.Decimal `db:"amount" json:"amount"`

	// OriginalAmount is the amount first issued, or the superseded amount on a replacement
	OriginalAmount decimal.Decimal `db:"original_amount" json:"original_amount"`

	// InstallmentIndex is the 1-based position of the invoice in the contract's stream
	InstallmentIndex int `db:"installment_index" json:"installment_index"`

	// MonthsCovered is the months per invoice multiplier the invoice was generated with
	MonthsCovered int `db:"months_covered" json:"months_covered"`

	// ExternalNumber is the registrar facing sequence number, unique per payment profile
	ExternalNumber string `db:"external_number" json:"external_number"`

	// ExternalSequence is the integer ExternalNumber was rendered from
	ExternalSequence int64 `db:"external_sequence" json:"external_sequence"`

	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`

	// ExternalRegistrationID is set once the invoice was reported to an external registrar
	ExternalRegistrationID *string `db:"external_registration_id" json:"external_registration_id,omitempty"`

	// ReplacesInvoiceID points at the invoice this one superseded through a correction
	ReplacesInvoiceID *string `db:"replaces_invoice_id" json:"replaces_invoice_id,omitempty"`

	types.BaseModel
}

// State derives the lifecycle state from the cancellation timestamp
func (i *Invoice) State() types.InvoiceState {
	if i.CancelledAt != nil {
		return types.InvoiceStateCancelled
	}
	return types.InvoiceStateActive
}

func (i *Invoice) IsActive() bool {
	return i.State() == types.InvoiceStateActive
}

// IsRegistered reports whether an external registrar already knows about the invoice
func (i *Invoice) IsRegistered() bool {
	return i.ExternalRegistrationID != nil && *i.ExternalRegistrationID != ""
}

// Period returns the billing period the invoice covers
func (i *Invoice) Period() types.BillingPeriod {
	return types.BillingPeriod{Start: i.PeriodStart, End: i.PeriodEnd}
}

// NewDraft builds an unnumbered invoice for a contract billing period
func NewDraft(ctx context.Context, contractID, paymentProfileID string, period types.BillingPeriod, installmentIndex, monthsCovered int, amount decimal.Decimal) *Invoice {
	return &Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ContractID:       contractID,
		PaymentProfileID: paymentProfileID,
		PeriodStart:      period.Start,
		PeriodEnd:        period.End,
		DueDate:          period.End,
		OriginalDueDate:  period.End,
		Amount:           amount,
		OriginalAmount:   amount,
		InstallmentIndex: installmentIndex,
		MonthsCovered:    monthsCovered,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
}

// NewReplacement builds the invoice that supersedes old with a corrected amount. It keeps the
// period, due dates and installment index of old and records old's amount as the original.
func NewReplacement(ctx context.Context, old *Invoice, amount decimal.Decimal) *Invoice {
	return &Invoice{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ContractID:        old.ContractID,
		PaymentProfileID:  old.PaymentProfileID,
		PeriodStart:       old.PeriodStart,
		PeriodEnd:         old.PeriodEnd,
		DueDate:           old.DueDate,
		OriginalDueDate:   old.OriginalDueDate,
		Amount:            amount,
		OriginalAmount:    old.Amount,
		InstallmentIndex:  old.InstallmentIndex,
		MonthsCovered:     old.MonthsCovered,
		ReplacesInvoiceID: lo.ToPtr(old.ID),
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}

func (i *Invoice) Validate() error {
	if i.ContractID == "" {
		return ierr.NewError("contract_id is required").
			WithHint("Invoice must belong to a contract").
			Mark(ierr.ErrValidation)
	}

	if i.Amount.IsNegative() {
		return ierr.NewError("invoice amount cannot be negative").
			WithHint("Please provide a valid invoice amount").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"amount":     i.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.InstallmentIndex < 1 {
		return ierr.NewError("invalid installment index").
			WithHint("Installment index starts at 1").
			WithReportableDetails(map[string]any{
				"invoice_id":        i.ID,
				"installment_index": i.InstallmentIndex,
			}).
			Mark(ierr.ErrValidation)
	}

	if i.PeriodEnd.Before(i.PeriodStart) || !i.PeriodEnd.Equal(i.DueDate) {
		return ierr.NewError("invalid invoice period").
			WithHint("Invoice period must end on its due date").
			WithReportableDetails(map[string]any{
				"invoice_id":   i.ID,
				"period_start": i.PeriodStart,
				"period_end":   i.PeriodEnd,
				"due_date":     i.DueDate,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
