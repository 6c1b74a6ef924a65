package api

import (
	"fmt"
	"net/http"

	"codeberg.org/mutker/vmctl/internal/errors"
)

const (
	// Request errors
	ErrRequestFailed  = errors.ErrorCode("api_request_failed")
	ErrDecodeFailed   = errors.ErrorCode("api_decode_failed")
	ErrInvalidAction  = errors.ErrorCode("api_invalid_action")
	ErrInvalidBaseURL = errors.ErrorCode("api_invalid_base_url")
)

// APIError is a non-success response from the hypervisor. It carries the
// HTTP status so callers can distinguish an unknown VM from a transient
// failure; everything that is not a 404 is treated as retryable.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}

	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError for a missing VM.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}

	return false
}
