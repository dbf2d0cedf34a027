package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrAccessDenied   = errors.New("access denied")

	// Reconciliation cycle failures. Each aborts the current cycle only.
	ErrSourceFetch = errors.New("source fetch failed")
	ErrSchema      = errors.New("unexpected source schema")
	ErrSink        = errors.New("snapshot store failed")

	// ErrNotify is logged and never affects the cycle outcome.
	ErrNotify = errors.New("change notification failed")
)

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
