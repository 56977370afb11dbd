package service

import (
	"context"
	"time"

	"github.com/ispops/billing/internal/domain/contract"
	"github.com/ispops/billing/internal/domain/invoice"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// RenewalService issues the invoices a contract is still entitled to under its term
type RenewalService interface {
	// RenewOne generates the invoices left in the contract's term. An empty result means there
	// is nothing to renew.
	RenewOne(ctx context.Context, c *contract.Contract, monthsPerInvoice int) ([]*invoice.Invoice, error)

	// RenewBatch renews every contract of a payment profile independently. Per contract
	// failures are collected in the result and never abort the batch.
	RenewBatch(ctx context.Context, paymentProfileID string, monthsPerInvoice int) (*RenewalBatchResult, error)
}

// RenewalFailure is a contract whose renewal failed
type RenewalFailure struct {
	ContractID string           `json:"contract_id"`
	Message    string           `json:"message"`
	Error      ierr.ErrorDetail `json:"error"`
}

// RenewalBatchResult groups the contracts of a batch by outcome, in the order they were listed
type RenewalBatchResult struct {
	ID               string           `json:"id"`
	PaymentProfileID string           `json:"payment_profile_id"`
	Succeeded        []string         `json:"succeeded"`
	Ignored          []string         `json:"ignored"`
	Failed           []RenewalFailure `json:"failed"`
	InvoicesCreated  int              `json:"invoices_created"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
}

type renewalOutcome int

const (
	renewalNotStarted renewalOutcome = iota
	renewalSucceeded
	renewalIgnored
	renewalFailed
)

type contractRenewal struct {
	outcome  renewalOutcome
	invoices int
	err      error
}

type renewalService struct {
	ServiceParams
	generator InvoiceGeneratorService
}

func NewRenewalService(params ServiceParams, generator InvoiceGeneratorService) RenewalService {
	return &renewalService{
		ServiceParams: params,
		generator:     generator,
	}
}

func (s *renewalService) RenewOne(ctx context.Context, c *contract.Contract, monthsPerInvoice int) ([]*invoice.Invoice, error) {
	if c == nil {
		return nil, ierr.NewError("contract is required").
			WithHint("Please provide a contract").
			Mark(ierr.ErrValidation)
	}
	if monthsPerInvoice <= 0 {
		return nil, ierr.NewError("invalid months per invoice").
			WithHint("Months per invoice must be greater than zero").
			WithReportableDetails(map[string]any{
				"contract_id":        c.ID,
				"months_per_invoice": monthsPerInvoice,
			}).
			Mark(ierr.ErrValidation)
	}

	var created []*invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		count, err := s.renewableCount(ctx, c, monthsPerInvoice)
		if err != nil {
			return err
		}
		if count == 0 {
			s.Logger.Debugw("nothing to renew", "contract_id", c.ID)
			return nil
		}

		created, err = s.generator.Generate(ctx, c, count, monthsPerInvoice)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created == nil {
		created = []*invoice.Invoice{}
	}
	return created, nil
}

// renewableCount returns how many invoices of monthsPerInvoice months the contract still needs
func (s *renewalService) renewableCount(ctx context.Context, c *contract.Contract, monthsPerInvoice int) (int, error) {
	filter := types.NewNoLimitInvoiceFilter().WithActiveOnly()
	filter.ContractID = c.ID

	active, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	covered := lo.SumBy(active, func(inv *invoice.Invoice) int {
		return max(inv.MonthsCovered, 1)
	})
	remaining := c.TermMonths - covered
	if remaining <= 0 {
		return 0, nil
	}

	count := (remaining + monthsPerInvoice - 1) / monthsPerInvoice
	if c.CancellationDate == nil || !s.Config.Renewal.StopAtCancellation {
		return count, nil
	}
	return cancellationCappedCount(c, active, count, monthsPerInvoice)
}

// cancellationCappedCount limits count to the invoices up to the one whose period holds the
// contract's cancellation date
func cancellationCappedCount(c *contract.Contract, active []*invoice.Invoice, count, monthsPerInvoice int) (int, error) {
	cancellation := types.TruncateToDay(*c.CancellationDate)

	lastDue := types.AddClampedDate(c.ResolveFirstDueDate(), 0, -1, 0)
	if len(active) > 0 {
		latest := lo.MaxBy(active, func(a, b *invoice.Invoice) bool {
			return a.DueDate.After(b.DueDate)
		})
		lastDue = types.TruncateToDay(latest.DueDate)
		if !cancellation.After(lastDue) {
			return 0, nil
		}
	} else if cancellation.Before(types.TruncateToDay(c.SubscriptionDate)) {
		return 0, nil
	}

	needed := 0
	for due := lastDue; due.Before(cancellation) && needed < count; needed++ {
		next, err := types.AdvanceDueDate(due, c.DueDay, monthsPerInvoice)
		if err != nil {
			return 0, err
		}
		due = next
	}
	if len(active) == 0 {
		// the first period starts on the subscription date, before lastDue
		needed = max(needed, 1)
	}
	return needed, nil
}

func (s *renewalService) RenewBatch(ctx context.Context, paymentProfileID string, monthsPerInvoice int) (*RenewalBatchResult, error) {
	if paymentProfileID == "" {
		return nil, ierr.NewError("payment profile is required").
			WithHint("Please provide the payment profile to renew").
			Mark(ierr.ErrValidation)
	}
	if monthsPerInvoice <= 0 {
		return nil, ierr.NewError("invalid months per invoice").
			WithHint("Months per invoice must be greater than zero").
			WithReportableDetails(map[string]any{
				"payment_profile_id": paymentProfileID,
				"months_per_invoice": monthsPerInvoice,
			}).
			Mark(ierr.ErrValidation)
	}

	result := &RenewalBatchResult{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RENEWAL_BATCH),
		PaymentProfileID: paymentProfileID,
		Succeeded:        []string{},
		Ignored:          []string{},
		Failed:           []RenewalFailure{},
		StartedAt:        time.Now().UTC(),
	}
	ctx = types.SetBatchID(ctx, result.ID)

	filter := types.NewNoLimitContractFilter()
	filter.PaymentProfileID = paymentProfileID
	filter.IncludeCancelled = true

	contracts, err := s.ContractRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("starting renewal batch",
		"batch_id", result.ID,
		"payment_profile_id", paymentProfileID,
		"contracts", len(contracts),
		"months_per_invoice", monthsPerInvoice,
	)

	renewals := make([]contractRenewal, len(contracts))
	p := pool.New().WithMaxGoroutines(max(s.Config.Renewal.Concurrency, 1))
	for i, c := range contracts {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			renewals[i] = s.renewIsolated(ctx, c, monthsPerInvoice)
		})
	}
	p.Wait()

	for i, c := range contracts {
		r := renewals[i]
		switch r.outcome {
		case renewalSucceeded:
			result.Succeeded = append(result.Succeeded, c.ID)
			result.InvoicesCreated += r.invoices
		case renewalIgnored:
			result.Ignored = append(result.Ignored, c.ID)
		case renewalFailed:
			detail := ierr.NewErrorDetail(r.err)
			result.Failed = append(result.Failed, RenewalFailure{
				ContractID: c.ID,
				Message:    detail.Display,
				Error:      detail,
			})
			s.Sentry.CaptureRenewalFailure(r.err, paymentProfileID, c.ID)
		}
	}
	result.FinishedAt = time.Now().UTC()

	s.Logger.Infow("finished renewal batch",
		"batch_id", result.ID,
		"payment_profile_id", paymentProfileID,
		"succeeded", len(result.Succeeded),
		"ignored", len(result.Ignored),
		"failed", len(result.Failed),
		"invoices_created", result.InvoicesCreated,
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// renewIsolated renews one contract and turns any error or panic into a failed outcome
func (s *renewalService) renewIsolated(ctx context.Context, c *contract.Contract, monthsPerInvoice int) contractRenewal {
	var (
		created []*invoice.Invoice
		err     error
		pc      panics.Catcher
	)
	pc.Try(func() {
		created, err = s.RenewOne(ctx, c, monthsPerInvoice)
	})
	if recovered := pc.Recovered(); recovered != nil {
		err = ierr.WithError(recovered.AsError()).
			WithHint("Renewal panicked").
			Mark(ierr.ErrSystem)
	}

	if err != nil {
		s.Logger.Errorw("contract renewal failed",
			"batch_id", types.GetBatchID(ctx),
			"contract_id", c.ID,
			"payment_profile_id", c.PaymentProfileID,
			"error", err,
		)
		return contractRenewal{outcome: renewalFailed, err: err}
	}
	if len(created) == 0 {
		return contractRenewal{outcome: renewalIgnored}
	}
	return contractRenewal{outcome: renewalSucceeded, invoices: len(created)}
}
