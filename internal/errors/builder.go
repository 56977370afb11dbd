package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// reportablePrefix tags safe details that carry a JSON object for NewErrorDetail
const reportablePrefix = "__json__:"

// ErrorBuilder chains hints and details onto an error. It is not an error itself: finish
// every chain with Mark.
type ErrorBuilder struct {
	err error
}

// NewError starts a chain from a new internal message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a chain from an existing error, keeping its marks
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint attaches the operator facing message
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches ids and amounts that survive redaction. Unmarshalable details
// are dropped.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	raw, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, reportablePrefix+"%s", errors.Safe(string(raw)))
	return b
}

// Mark ends the chain, tagging the error with a sentinel
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}
