package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorDetail is the structured, human readable form of an error, used wherever a failure is
// turned into data (e.g. the failed bucket of a renewal batch) instead of being returned
type ErrorDetail struct {
	Code          string         `json:"code"`
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorDetail flattens the hints and reportable details attached by the builder
func NewErrorDetail(err error) ErrorDetail {
	if err == nil {
		return ErrorDetail{}
	}

	display := errors.FlattenHints(err)
	if display == "" {
		display = err.Error()
	}

	detail := ErrorDetail{
		Code:          CodeOf(err),
		Display:       display,
		InternalError: err.Error(),
	}

	for _, safe := range errors.GetAllSafeDetails(err) {
		for _, payload := range safe.SafeDetails {
			raw, ok := strings.CutPrefix(payload, reportablePrefix)
			if !ok {
				continue
			}
			var m map[string]any
			if json.Unmarshal([]byte(raw), &m) != nil {
				continue
			}
			if detail.Details == nil {
				detail.Details = make(map[string]any, len(m))
			}
			for k, v := range m {
				detail.Details[k] = v
			}
		}
	}

	return detail
}
