package postgres

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	ierr "github.com/ispops/billing/internal/errors"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "unique_violation"

	// invoiceExternalSequenceConstraint guards (payment_profile_id, external_sequence)
	invoiceExternalSequenceConstraint = "invoices_payment_profile_external_sequence_key"
)

// isUniqueViolation reports whether err is a postgres unique violation, optionally on a
// specific constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code.Name() != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// wrapDatabaseError marks err as a persistence failure unless it already carries a more specific
// sentinel
func wrapDatabaseError(err error, hint string) error {
	if ierr.IsNotFound(err) || ierr.IsAllocationConflict(err) || ierr.IsValidation(err) {
		return err
	}
	return ierr.WithError(err).WithHint(hint).Mark(ierr.ErrDatabase)
}
