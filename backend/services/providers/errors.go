package providers

import "errors"

// ClassifiedError represents a provider failure normalized into the
// status/retryable shape the router folds into provider health.
type ClassifiedError struct {
	// Provider that generated the error
	Provider string

	// StatusCode is the HTTP status code, or 0 when unknown
	StatusCode int

	// Message is the error message
	Message string

	// Retryable indicates whether another attempt could succeed
	Retryable bool

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// NewClassifiedError creates a new classified error
func NewClassifiedError(provider, message string, statusCode int, retryable bool, cause error) *ClassifiedError {
	return &ClassifiedError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// AsClassified extracts a *ClassifiedError from an error chain
func AsClassified(err error) (*ClassifiedError, bool) {
	var cerr *ClassifiedError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if cerr, ok := AsClassified(err); ok {
		return cerr.Retryable
	}
	return false
}
