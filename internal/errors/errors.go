package errors

import (
	"github.com/cockroachdb/errors"
)

// Sentinels marked onto every error the billing engine returns. Callers branch on them with
// the Is helpers below, never on message text.
var (
	ErrNotFound           = sentinel(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists      = sentinel(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation         = sentinel(ErrCodeValidation, "validation error")
	ErrInvalidOperation   = sentinel(ErrCodeInvalidOperation, "invalid operation")
	ErrMissingDependency  = sentinel(ErrCodeMissingDependency, "missing dependency")
	ErrAllocationConflict = sentinel(ErrCodeAllocationConflict, "allocation conflict")
	ErrDatabase           = sentinel(ErrCodeDatabase, "database error")
	ErrSystem             = sentinel(ErrCodeSystemError, "system error")

	// ordered from most to least specific; an exhausted allocation retry is marked with both
	// ErrAllocationConflict and ErrDatabase and must report as a database failure
	codeOrder = []*InternalError{
		ErrDatabase,
		ErrSystem,
		ErrAllocationConflict,
		ErrMissingDependency,
		ErrInvalidOperation,
		ErrAlreadyExists,
		ErrNotFound,
		ErrValidation,
	}
)

const (
	ErrCodeSystemError        = "system_error"
	ErrCodeNotFound           = "not_found"
	ErrCodeAlreadyExists      = "already_exists"
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidOperation   = "invalid_operation"
	ErrCodeMissingDependency  = "missing_dependency"
	ErrCodeAllocationConflict = "allocation_conflict"
	ErrCodeDatabase           = "database_error"
)

// InternalError is a sentinel identified by its code
type InternalError struct {
	Code    string
	Message string
}

func (e *InternalError) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches any sentinel with the same code
func (e *InternalError) Is(target error) bool {
	t, ok := target.(*InternalError)
	return ok && t != nil && e.Code == t.Code
}

func sentinel(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// CodeOf returns the code of the most specific sentinel err was marked with, or
// ErrCodeSystemError for unmarked errors
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range codeOrder {
		if errors.Is(err, s) {
			return s.Code
		}
	}
	return ErrCodeSystemError
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsMissingDependency checks if an error reports a missing collaborator, e.g. a contract
// without a payment profile
func IsMissingDependency(err error) bool {
	return errors.Is(err, ErrMissingDependency)
}

// IsAllocationConflict checks if an error was caused by two writers racing for the same
// external sequence number
func IsAllocationConflict(err error) bool {
	return errors.Is(err, ErrAllocationConflict)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}
