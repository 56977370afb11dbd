package postgres

import (
	"context"

	"github.com/ispops/billing/internal/domain/invoice"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/types"
)

type sequenceAllocator struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewSequenceAllocator returns an allocator backed by the payment profile row. The UPDATE takes
// a row lock that is held until the surrounding transaction ends, which serializes concurrent
// allocations on the same profile.
func NewSequenceAllocator(db *postgres.DB, logger *logger.Logger) invoice.SequenceAllocator {
	return &sequenceAllocator{db: db, logger: logger}
}

func (a *sequenceAllocator) AllocateNextNumber(ctx context.Context, paymentProfileID string) (int64, error) {
	query := `
		UPDATE payment_profiles
		SET next_external_number = next_external_number + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND tenant_id = $2
		RETURNING next_external_number - 1`

	var number int64
	if err := a.db.GetQuerier(ctx).GetContext(ctx, &number, query, paymentProfileID, types.GetTenantID(ctx)); err != nil {
		if isNoRows(err) {
			return 0, profileNotFound(err, paymentProfileID)
		}
		return 0, ierr.WithError(err).WithHint("external number allocation failed").Mark(ierr.ErrDatabase)
	}

	a.logger.Debugw("allocated external number",
		"payment_profile_id", paymentProfileID,
		"sequence", number,
	)
	return number, nil
}

func (a *sequenceAllocator) PeekNextNumber(ctx context.Context, paymentProfileID string) (int64, error) {
	query := `SELECT next_external_number FROM payment_profiles WHERE id = $1 AND tenant_id = $2`

	var number int64
	if err := a.db.GetQuerier(ctx).GetContext(ctx, &number, query, paymentProfileID, types.GetTenantID(ctx)); err != nil {
		if isNoRows(err) {
			return 0, profileNotFound(err, paymentProfileID)
		}
		return 0, ierr.WithError(err).WithHint("external number lookup failed").Mark(ierr.ErrDatabase)
	}
	return number, nil
}

func (a *sequenceAllocator) Resync(ctx context.Context, paymentProfileID string) error {
	query := `
		UPDATE payment_profiles p
		SET next_external_number = GREATEST(
				p.next_external_number,
				COALESCE((SELECT MAX(i.external_sequence) FROM invoices i WHERE i.payment_profile_id = p.id), 0) + 1
			),
			updated_at = CURRENT_TIMESTAMP
		WHERE p.id = $1 AND p.tenant_id = $2`

	if _, err := a.db.GetQuerier(ctx).ExecContext(ctx, query, paymentProfileID, types.GetTenantID(ctx)); err != nil {
		return ierr.WithError(err).WithHint("external number resync failed").Mark(ierr.ErrDatabase)
	}

	a.logger.Infow("resynced external number sequence", "payment_profile_id", paymentProfileID)
	return nil
}

func profileNotFound(err error, paymentProfileID string) error {
	return ierr.WithError(err).
		WithHintf("payment profile %s not found", paymentProfileID).
		WithReportableDetails(map[string]any{
			"payment_profile_id": paymentProfileID,
		}).
		Mark(ierr.ErrMissingDependency)
}
