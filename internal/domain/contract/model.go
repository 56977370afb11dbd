package contract

import (
	"time"

	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// Contract is a customer's service agreement and the source of every billing parameter the
// invoice generator reads. Contracts are created and cancelled outside the billing engine.
type Contract struct {
	// ID is the unique identifier for the contract
	ID string `db:"id" json:"id"`

	// SubscriptionDate is the day the service started
	SubscriptionDate time.Time `db:"subscription_date" json:"subscription_date"`

	// FirstDueDate overrides the derived first due date when set
	FirstDueDate *time.Time `db:"first_due_date" json:"first_due_date,omitempty"`

	// DueDay is the day of month invoices fall due on, clamped in shorter months
	DueDay int `db:"due_day" json:"due_day"`

	// MonthlyFee is the amount billed for one month of service
	MonthlyFee decimal.Decimal `db:"monthly_fee" json:"monthly_fee"`

	// InstallationFee is the total installation fee amortized over InstallmentFeeCount invoices
	InstallationFee decimal.Decimal `db:"installation_fee" json:"installation_fee"`

	// InstallmentFeeCount is the number of invoices the installation fee is spread over
	InstallmentFeeCount int `db:"installment_fee_count" json:"installment_fee_count"`

	// CancellationDate is the last day of service of a cancelled contract
	CancellationDate *time.Time `db:"cancellation_date" json:"cancellation_date,omitempty"`

	// PaymentProfileID references the payment profile that numbers this contract's invoices
	PaymentProfileID string `db:"payment_profile_id" json:"payment_profile_id"`

	// TermMonths is the contract term length in months
	TermMonths int `db:"term_months" json:"term_months"`

	types.BaseModel
}

// HasPaymentProfile reports whether the contract can be invoiced
func (c *Contract) HasPaymentProfile() bool {
	return c.PaymentProfileID != ""
}

// IsCancelled reports whether the contract carries a cancellation date
func (c *Contract) IsCancelled() bool {
	return c.CancellationDate != nil
}

// ResolveFirstDueDate returns the configured first due date, or the first due date that
// follows the subscription date on the contract's due day
func (c *Contract) ResolveFirstDueDate() time.Time {
	if c.FirstDueDate != nil {
		return types.TruncateToDay(*c.FirstDueDate)
	}
	return types.NextDueDate(c.SubscriptionDate, c.DueDay)
}

// InstallmentFeeFor returns the share of the installation fee carried by the invoice with the
// given installment index, rounded to cents. It is zero once the installments are exhausted.
func (c *Contract) InstallmentFeeFor(installmentIndex int) decimal.Decimal {
	if c.InstallmentFeeCount <= 0 || installmentIndex > c.InstallmentFeeCount {
		return decimal.Zero
	}
	return c.InstallationFee.DivRound(decimal.NewFromInt(int64(c.InstallmentFeeCount)), 2)
}

func (c *Contract) Validate() error {
	if c.DueDay < 1 || c.DueDay > 31 {
		return ierr.NewError("invalid due day").
			WithHint("Due day must be between 1 and 31").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
				"due_day":     c.DueDay,
			}).
			Mark(ierr.ErrValidation)
	}

	if c.MonthlyFee.IsNegative() {
		return ierr.NewError("monthly fee cannot be negative").
			WithHint("Please provide a valid monthly fee").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	if c.InstallationFee.IsNegative() || c.InstallmentFeeCount < 0 {
		return ierr.NewError("invalid installation fee").
			WithHint("Installation fee and installment count cannot be negative").
			WithReportableDetails(map[string]any{
				"contract_id":           c.ID,
				"installment_fee_count": c.InstallmentFeeCount,
			}).
			Mark(ierr.ErrValidation)
	}

	if c.InstallationFee.IsPositive() && c.InstallmentFeeCount == 0 {
		return ierr.NewError("installation fee without installments").
			WithHint("An installation fee needs at least one installment").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	if c.TermMonths < 0 {
		return ierr.NewError("invalid term").
			WithHint("Contract term cannot be negative").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
				"term_months": c.TermMonths,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
