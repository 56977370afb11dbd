package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ispops/billing/internal/domain/contract"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/types"
	"github.com/lib/pq"
)

type contractRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewContractRepository(db *postgres.DB, logger *logger.Logger) contract.Repository {
	return &contractRepository{db: db, logger: logger}
}

const contractColumns = `id, subscription_date, first_due_date, due_day, monthly_fee, installation_fee,
	installment_fee_count, cancellation_date, COALESCE(payment_profile_id, '') AS payment_profile_id, term_months,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *contractRepository) Get(ctx context.Context, id string) (*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 AND tenant_id = $2 AND status = $3`

	var c contract.Contract
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.GetTenantID(ctx), types.StatusPublished)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("contract %s not found", id).
				WithReportableDetails(map[string]any{
					"contract_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDatabaseError(err, "failed to get contract")
	}
	return &c, nil
}

func (r *contractRepository) List(ctx context.Context, filter *types.ContractFilter) ([]*contract.Contract, error) {
	if filter == nil {
		filter = types.NewNoLimitContractFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	conditions := []string{"tenant_id = $1", "status = $2"}
	args := []interface{}{types.GetTenantID(ctx), filter.GetStatus()}

	if filter.PaymentProfileID != "" {
		args = append(args, filter.PaymentProfileID)
		conditions = append(conditions, fmt.Sprintf("payment_profile_id = $%d", len(args)))
	}
	if len(filter.ContractIDs) > 0 {
		args = append(args, pq.Array(filter.ContractIDs))
		conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if !filter.IncludeCancelled {
		conditions = append(conditions, "cancellation_date IS NULL")
	}

	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE %s ORDER BY %s %s, id`,
		contractColumns,
		strings.Join(conditions, " AND "),
		contractSortColumn(filter.GetSort()),
		filter.GetOrder(),
	)
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var contracts []*contract.Contract
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, wrapDatabaseError(err, "failed to list contracts")
	}

	r.logger.Debugw("listed contracts",
		"payment_profile_id", filter.PaymentProfileID,
		"count", len(contracts),
	)
	return contracts, nil
}

func contractSortColumn(sort string) string {
	switch sort {
	case "subscription_date", "due_day", "updated_at":
		return sort
	default:
		return "created_at"
	}
}
