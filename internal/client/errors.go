package client

import (
	"errors"
	"fmt"
)

// FailureMessage is the only failure text shown to users.
const FailureMessage = "Intelligence ingestion failed. Ensure the source node is a valid PDF mapping."

var (
	// ErrAnalysisFailed matches every upload failure.
	ErrAnalysisFailed = errors.New(FailureMessage)

	// ErrInvalidBaseURL is returned by New for a base URL that is not an
	// absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid analysis service URL")
)

// UploadError describes one failed upload. Its Error text is always
// FailureMessage; the cause is reachable through errors.Is and errors.As.
type UploadError struct {
	// RequestID is the X-Request-ID sent with the upload.
	RequestID string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Cause is the underlying error.
	Cause error
}

// Error implements error.
func (e *UploadError) Error() string {
	return FailureMessage
}

// Unwrap exposes both ErrAnalysisFailed and the cause.
func (e *UploadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAnalysisFailed}
	}
	return []error{ErrAnalysisFailed, e.Cause}
}

// Detail describes the cause for logs.
func (e *UploadError) Detail() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("status %d: %v", e.StatusCode, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("status %d", e.StatusCode)
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return "unknown"
	}
}

// errUnexpectedStatus is the cause of a non-2xx response.
var errUnexpectedStatus = errors.New("unexpected response status")
