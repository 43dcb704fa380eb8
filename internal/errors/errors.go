package errors

import (
	"fmt"
)

// DocError is the structured error type for doclens.
// It provides context for error handling, logging, and user presentation.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_201_STORE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Collaborator, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with DocError.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new DocError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocError from an existing error.
// The error's message becomes the DocError message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ExtractionError creates a page extraction error.
func ExtractionError(message string, cause error) *DocError {
	return New(ErrCodeExtractionFailed, message, cause)
}

// EmbeddingError creates an embedding collaborator error.
func EmbeddingError(message string, cause error) *DocError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// IndexingError creates a pipeline-level indexing error wrapping its cause.
func IndexingError(message string, cause error) *DocError {
	return New(ErrCodeIndexingFailed, message, cause)
}

// StoreUnavailableError creates a missing/unreadable store error.
func StoreUnavailableError(message string, cause error) *DocError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *DocError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(*DocError); ok {
		return de.Retryable
	}
	return false
}

// GetCode extracts the error code from a DocError.
// Returns empty string if not a DocError.
func GetCode(err error) string {
	if de, ok := err.(*DocError); ok {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DocError.
// Returns empty string if not a DocError.
func GetCategory(err error) Category {
	if de, ok := err.(*DocError); ok {
		return de.Category
	}
	return ""
}
