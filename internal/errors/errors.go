package errors

import (
	"fmt"
)

// LeaseError is the structured error type for leaseindex.
// It provides context for error handling, logging, and user presentation.
type LeaseError struct {
	// Code is the unique error code (e.g., "ERR_102_CONFIG_INVALID").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *LeaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LeaseError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with LeaseError.
func (e *LeaseError) Is(target error) bool {
	if t, ok := target.(*LeaseError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *LeaseError) WithDetail(key, value string) *LeaseError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *LeaseError) WithSuggestion(suggestion string) *LeaseError {
	e.Suggestion = suggestion
	return e
}

// New creates a new LeaseError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *LeaseError {
	return &LeaseError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a LeaseError from an existing error.
// The error's message becomes the LeaseError message.
func Wrap(code string, err error) *LeaseError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
// Fatal at construction time, never recovered.
func ConfigError(message string, cause error) *LeaseError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *LeaseError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IndexUnavailableError creates the error surfaced when every sub-index
// failed for a query. Not retried internally.
func IndexUnavailableError(cause error) *LeaseError {
	return New(ErrCodeNoIndexAvailable, "no index available for query", cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if le, ok := err.(*LeaseError); ok {
		return le.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if le, ok := err.(*LeaseError); ok {
		return le.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a LeaseError.
// Returns empty string if not a LeaseError.
func GetCode(err error) string {
	if le, ok := err.(*LeaseError); ok {
		return le.Code
	}
	return ""
}
