package service

import (
	"context"
	"time"

	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/proration"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/shopspring/decimal"
)

// InvoiceGeneratorService appends invoices to a contract's invoice stream
type InvoiceGeneratorService interface {
	// Generate creates count invoices of monthsPerInvoice months each, in installment order,
	// inside one transaction. Either all of them are persisted or none is.
	Generate(ctx context.Context, c *contract.Contract, count, monthsPerInvoice int) ([]*invoice.Invoice, error)

	// Preview computes the invoices Generate would create without persisting them or
	// allocating external numbers
	Preview(ctx context.Context, c *contract.Contract, count, monthsPerInvoice int) ([]*invoice.Invoice, error)
}

type invoiceGeneratorService struct {
	ServiceParams
}

func NewInvoiceGeneratorService(params ServiceParams) InvoiceGeneratorService {
	return &invoiceGeneratorService{
		ServiceParams: params,
	}
}

// installmentCursor is the running state threaded through a generation run
type installmentCursor struct {
	// lastIndex is the installment index of the previous invoice, cancelled ones included
	lastIndex int
	// lastDue is the due date the next billing period starts after
	lastDue time.Time
	// firstEver is set while the contract has no active invoice, so the stream restarts from the
	// subscription date even when every earlier invoice was cancelled
	firstEver bool
}

func (s *invoiceGeneratorService) Generate(ctx context.Context, c *contract.Contract, count, monthsPerInvoice int) ([]*invoice.Invoice, error) {
	if err := validateGenerateInput(c, count, monthsPerInvoice); err != nil {
		return nil, err
	}

	var created []*invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		profile, err := s.loadPaymentProfile(ctx, c.PaymentProfileID)
		if err != nil {
			return err
		}

		// every allocation in this run must land at or after the number read here
		nextNumber, err := s.SequenceAllocator.PeekNextNumber(ctx, profile.ID)
		if err != nil {
			return err
		}

		cursor, err := s.loadCursor(ctx, c)
		if err != nil {
			return err
		}

		created = make([]*invoice.Invoice, 0, count)
		for i := 0; i < count; i++ {
			var draft *invoice.Invoice
			draft, cursor, err = cursor.next(ctx, c, monthsPerInvoice)
			if err != nil {
				return err
			}

			if err := s.createNumbered(ctx, profile, draft); err != nil {
				return err
			}
			if draft.ExternalSequence < nextNumber {
				return ierr.NewError("external number went backwards").
					WithHint("The payment profile sequence returned a number that was already handed out").
					WithReportableDetails(map[string]any{
						"payment_profile_id": profile.ID,
						"expected_at_least":  nextNumber,
						"allocated":          draft.ExternalSequence,
					}).
					Mark(ierr.ErrDatabase)
			}
			nextNumber = draft.ExternalSequence + 1

			s.Logger.Debugw("created invoice",
				"contract_id", c.ID,
				"invoice_id", draft.ID,
				"installment_index", draft.InstallmentIndex,
				"due_date", draft.DueDate.Format(time.DateOnly),
				"amount", draft.Amount.String(),
				"external_number", draft.ExternalNumber,
			)
			created = append(created, draft)
		}
		return nil
	})
	if err != nil {
		s.Logger.Errorw("failed to generate invoices",
			"contract_id", c.ID,
			"payment_profile_id", c.PaymentProfileID,
			"count", count,
			"months_per_invoice", monthsPerInvoice,
			"error", err,
		)
		return nil, err
	}

	s.Logger.Infow("generated invoices",
		"contract_id", c.ID,
		"payment_profile_id", c.PaymentProfileID,
		"count", len(created),
		"months_per_invoice", monthsPerInvoice,
	)
	return created, nil
}

func (s *invoiceGeneratorService) Preview(ctx context.Context, c *contract.Contract, count, monthsPerInvoice int) ([]*invoice.Invoice, error) {
	if err := validateGenerateInput(c, count, monthsPerInvoice); err != nil {
		return nil, err
	}

	cursor, err := s.loadCursor(ctx, c)
	if err != nil {
		return nil, err
	}

	drafts := make([]*invoice.Invoice, 0, count)
	for i := 0; i < count; i++ {
		var draft *invoice.Invoice
		draft, cursor, err = cursor.next(ctx, c, monthsPerInvoice)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func validateGenerateInput(c *contract.Contract, count, monthsPerInvoice int) error {
	if c == nil {
		return ierr.NewError("contract is required").
			WithHint("Please provide a contract").
			Mark(ierr.ErrValidation)
	}

	if count <= 0 || monthsPerInvoice <= 0 {
		return ierr.NewError("invalid invoice count or months per invoice").
			WithHint("Count and months per invoice must be greater than zero").
			WithReportableDetails(map[string]any{
				"contract_id":        c.ID,
				"count":              count,
				"months_per_invoice": monthsPerInvoice,
			}).
			Mark(ierr.ErrValidation)
	}

	if !c.HasPaymentProfile() {
		return ierr.NewError("contract has no payment profile").
			WithHint("Assign a payment profile to the contract before generating invoices").
			WithReportableDetails(map[string]any{
				"contract_id": c.ID,
			}).
			Mark(ierr.ErrMissingDependency)
	}

	return c.Validate()
}

// loadCursor reads where the contract's invoice stream currently ends
func (s *invoiceGeneratorService) loadCursor(ctx context.Context, c *contract.Contract) (installmentCursor, error) {
	lastIndex, err := s.InvoiceRepo.GetMaxInstallmentIndex(ctx, c.ID)
	if err != nil {
		return installmentCursor{}, err
	}

	latest, err := s.InvoiceRepo.GetLatest(ctx, c.ID)
	if err != nil {
		return installmentCursor{}, err
	}

	cursor := installmentCursor{
		lastIndex: lastIndex,
		firstEver: latest == nil,
	}
	if latest != nil {
		cursor.lastDue = types.TruncateToDay(latest.DueDate)
	} else {
		cursor.lastDue = types.AddClampedDate(c.ResolveFirstDueDate(), 0, -1, 0)
	}
	return cursor, nil
}

// next drafts the invoice that follows the cursor and returns the advanced cursor
func (cur installmentCursor) next(ctx context.Context, c *contract.Contract, monthsPerInvoice int) (*invoice.Invoice, installmentCursor, error) {
	index := cur.lastIndex + 1

	dueDate, err := types.AdvanceDueDate(cur.lastDue, c.DueDay, monthsPerInvoice)
	if err != nil {
		return nil, cur, err
	}

	period := types.NewBillingPeriod(cur.lastDue, dueDate)
	if cur.firstEver {
		period = types.FirstBillingPeriod(c.SubscriptionDate, dueDate)
	}

	amount, err := invoiceAmount(c, period, index, monthsPerInvoice)
	if err != nil {
		return nil, cur, err
	}

	draft := invoice.NewDraft(ctx, c.ID, c.PaymentProfileID, period, index, monthsPerInvoice, amount)
	return draft, installmentCursor{
		lastIndex: index,
		lastDue:   dueDate,
	}, nil
}

// invoiceAmount prices one invoice: the monthly fee for every month covered, prorated when the
// contract is cancelled inside the period, plus the installation fee share of the installment
func invoiceAmount(c *contract.Contract, period types.BillingPeriod, installmentIndex, monthsPerInvoice int) (decimal.Decimal, error) {
	amount := c.MonthlyFee.Mul(decimal.NewFromInt(int64(monthsPerInvoice)))

	if c.CancellationDate != nil && period.Contains(*c.CancellationDate) {
		prorated, err := proration.ProrateAmount(amount, period.Start, *c.CancellationDate)
		if err != nil {
			return decimal.Zero, err
		}
		amount = prorated
	}

	return amount.Add(c.InstallmentFeeFor(installmentIndex)), nil
}
