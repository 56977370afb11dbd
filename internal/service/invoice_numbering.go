package service

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/ispops/billing/internal/domain/invoice"
	"github.com/ispops/billing/internal/domain/paymentprofile"
	ierr "github.com/ispops/billing/internal/errors"
)

// createNumbered allocates the next external number of profile and persists inv with it.
// Allocation and insert share a savepoint, so a failed insert hands the number back. When the
// insert collides with a number already used on the profile, the counter is resynced and the
// allocation retried up to billing.max_allocation_retries times.
func (p ServiceParams) createNumbered(ctx context.Context, profile *paymentprofile.PaymentProfile, inv *invoice.Invoice) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(p.Config.Billing.AllocationRetryInterval),
			p.Config.Billing.MaxAllocationRetries,
		),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		err := p.DB.WithTx(ctx, func(ctx context.Context) error {
			sequence, err := p.SequenceAllocator.AllocateNextNumber(ctx, profile.ID)
			if err != nil {
				return err
			}
			inv.ExternalSequence = sequence
			inv.ExternalNumber = profile.FormatExternalNumber(sequence)
			return p.InvoiceRepo.Create(ctx, inv)
		})
		if err == nil {
			return nil
		}
		if !ierr.IsAllocationConflict(err) {
			return backoff.Permanent(err)
		}

		p.Logger.Warnw("external number conflict, resyncing sequence",
			"payment_profile_id", profile.ID,
			"invoice_id", inv.ID,
			"external_number", inv.ExternalNumber,
			"attempt", attempt,
		)
		if resyncErr := p.SequenceAllocator.Resync(ctx, profile.ID); resyncErr != nil {
			return backoff.Permanent(resyncErr)
		}
		return err
	}

	if err := backoff.Retry(operation, policy); err != nil {
		inv.ExternalSequence = 0
		inv.ExternalNumber = ""
		if ierr.IsAllocationConflict(err) {
			return ierr.WithError(err).
				WithHintf("Could not allocate a free external number after %d attempts", attempt).
				WithReportableDetails(map[string]any{
					"payment_profile_id": profile.ID,
					"attempts":           attempt,
				}).
				Mark(ierr.ErrDatabase)
		}
		return err
	}
	return nil
}

// loadPaymentProfile resolves the profile that numbers a contract's invoices
func (p ServiceParams) loadPaymentProfile(ctx context.Context, paymentProfileID string) (*paymentprofile.PaymentProfile, error) {
	profile, err := p.PaymentProfileRepo.Get(ctx, paymentProfileID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment profile %s does not exist", paymentProfileID).
				WithReportableDetails(map[string]any{
					"payment_profile_id": paymentProfileID,
				}).
				Mark(ierr.ErrMissingDependency)
		}
		return nil, err
	}
	return profile, nil
}
