package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"
	ierr "github.com/ispops/billing/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// NewValidator returns the process wide validator, built on first use
func NewValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateRequest checks the validate tags of req. Each failing field is reported with the
// rule it broke.
func ValidateRequest(req interface{}) error {
	err := NewValidator().Struct(req)
	if err == nil {
		return nil
	}

	details := make(map[string]any)
	var fieldErrs validator.ValidationErrors
	if ierr.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return ierr.WithError(err).
		WithHint("Request validation failed").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}
