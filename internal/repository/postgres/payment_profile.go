package postgres

import (
	"context"

	"github.com/ispops/billing/internal/domain/paymentprofile"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/types"
)

type paymentProfileRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentProfileRepository(db *postgres.DB, logger *logger.Logger) paymentprofile.Repository {
	return &paymentProfileRepository{db: db, logger: logger}
}

func (r *paymentProfileRepository) Get(ctx context.Context, id string) (*paymentprofile.PaymentProfile, error) {
	query := `
		SELECT id, name, next_external_number, number_width,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		FROM payment_profiles
		WHERE id = $1 AND tenant_id = $2`

	var p paymentprofile.PaymentProfile
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, id, types.GetTenantID(ctx)); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("payment profile %s not found", id).
				WithReportableDetails(map[string]any{
					"payment_profile_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDatabaseError(err, "failed to get payment profile")
	}
	return &p, nil
}
