package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ispops/billing/internal/domain/invoice"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/ispops/billing/internal/logger"
	"github.com/ispops/billing/internal/postgres"
	"github.com/ispops/billing/internal/types"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `id, contract_id, payment_profile_id, period_start, period_end, due_date,
	original_due_date, amount, original_amount, installment_index, months_covered,
	external_number, external_sequence, cancelled_at, external_registration_id, replaces_invoice_id,
	tenant_id, status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO invoices (
			id, contract_id, payment_profile_id, period_start, period_end, due_date,
			original_due_date, amount, original_amount, installment_index, months_covered,
			external_number, external_sequence, cancelled_at, external_registration_id, replaces_invoice_id,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :contract_id, :payment_profile_id, :period_start, :period_end, :due_date,
			:original_due_date, :amount, :original_amount, :installment_index, :months_covered,
			:external_number, :external_sequence, :cancelled_at, :external_registration_id, :replaces_invoice_id,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"contract_id", inv.ContractID,
		"installment_index", inv.InstallmentIndex,
		"external_number", inv.ExternalNumber,
	)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, inv); err != nil {
		if isUniqueViolation(err, invoiceExternalSequenceConstraint) {
			return ierr.WithError(err).
				WithHintf("external number %s is already used on this payment profile", inv.ExternalNumber).
				WithReportableDetails(map[string]any{
					"payment_profile_id": inv.PaymentProfileID,
					"external_sequence":  inv.ExternalSequence,
				}).
				Mark(ierr.ErrAllocationConflict)
		}
		if isUniqueViolation(err, "") {
			return ierr.WithError(err).
				WithHint("invoice already exists").
				WithReportableDetails(map[string]any{
					"contract_id":       inv.ContractID,
					"installment_index": inv.InstallmentIndex,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return wrapDatabaseError(err, "failed to create invoice")
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND tenant_id = $2`

	var inv invoice.Invoice
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, id, types.GetTenantID(ctx)); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("invoice %s not found", id).
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDatabaseError(err, "failed to get invoice")
	}
	return &inv, nil
}

func (r *invoiceRepository) GetMaxInstallmentIndex(ctx context.Context, contractID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(installment_index), 0)
		FROM invoices
		WHERE contract_id = $1 AND tenant_id = $2`

	var maxIndex int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &maxIndex, query, contractID, types.GetTenantID(ctx)); err != nil {
		return 0, wrapDatabaseError(err, "failed to get max installment index")
	}
	return maxIndex, nil
}

func (r *invoiceRepository) GetLatest(ctx context.Context, contractID string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE contract_id = $1 AND tenant_id = $2 AND cancelled_at IS NULL
		ORDER BY due_date DESC, installment_index DESC
		LIMIT 1`

	var inv invoice.Invoice
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, contractID, types.GetTenantID(ctx)); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, wrapDatabaseError(err, "failed to get latest invoice")
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	conditions := []string{"tenant_id = $1"}
	args := []interface{}{types.GetTenantID(ctx)}
	where := func(clause string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.ContractID != "" {
		where("contract_id = $%d", filter.ContractID)
	}
	if filter.PaymentProfileID != "" {
		where("payment_profile_id = $%d", filter.PaymentProfileID)
	}
	if len(filter.InvoiceIDs) > 0 {
		where("id = ANY($%d)", pq.Array(filter.InvoiceIDs))
	}
	if filter.DueDateFrom != nil {
		where("due_date >= $%d", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		where("due_date <= $%d", *filter.DueDateTo)
	}
	if len(filter.States) > 0 {
		active := lo.Contains(filter.States, types.InvoiceStateActive)
		cancelled := lo.Contains(filter.States, types.InvoiceStateCancelled)
		switch {
		case active && !cancelled:
			conditions = append(conditions, "cancelled_at IS NULL")
		case cancelled && !active:
			conditions = append(conditions, "cancelled_at IS NOT NULL")
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE %s ORDER BY installment_index %s, created_at %s`,
		invoiceColumns,
		strings.Join(conditions, " AND "),
		filter.GetOrder(),
		filter.GetOrder(),
	)
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var invoices []*invoice.Invoice
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, wrapDatabaseError(err, "failed to list invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) Void(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE invoices
		SET cancelled_at = $1, updated_at = $2, updated_by = $3
		WHERE id = $4 AND tenant_id = $5 AND cancelled_at IS NULL`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		at, time.Now().UTC(), types.GetUserID(ctx), id, types.GetTenantID(ctx))
	if err != nil {
		return wrapDatabaseError(err, "failed to void invoice")
	}
	if err := expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Debugw("voided invoice", "invoice_id", id)
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM invoices WHERE id = $1 AND tenant_id = $2 AND external_registration_id IS NULL`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, id, types.GetTenantID(ctx))
	if err != nil {
		return wrapDatabaseError(err, "failed to delete invoice")
	}
	if err := expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Debugw("deleted invoice", "invoice_id", id)
	return nil
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func expectOneRow(result rowsAffecter, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDatabaseError(err, "failed to read affected rows")
	}
	if n == 0 {
		return ierr.NewError("invoice not found").
			WithHintf("invoice %s not found or no longer modifiable", id).
			WithReportableDetails(map[string]any{
				"invoice_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
