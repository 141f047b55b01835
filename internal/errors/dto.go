package errors

import (
	"github.com/cockroachdb/errors"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display string `json:"message"`
}

// NewErrorResponse builds the wire representation of an error. The display
// message comes from the hint chain so internal details never leak to callers.
func NewErrorResponse(err error) *ErrorResponse {
	display := errors.FlattenHints(err)
	if display == "" {
		display = "An unexpected error occurred"
	}
	return &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: display,
		},
	}
}
