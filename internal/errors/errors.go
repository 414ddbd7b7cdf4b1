package errors

import (
	"errors"
	"fmt"
)

// VaultError is the structured error type for vaultsearch.
// It carries a stable code plus the context needed for logging and CLI output.
type VaultError struct {
	// Code is the unique error code (e.g., "ERR_204_STORE_INSERT_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Severity is derived from the code.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates the condition may clear on its own.
	Retryable bool

	// Suggestion is an actionable hint for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is matches by code so sentinel values work with errors.Is.
func (e *VaultError) Is(target error) bool {
	if t, ok := target.(*VaultError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *VaultError) WithDetail(key, value string) *VaultError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *VaultError) WithSuggestion(suggestion string) *VaultError {
	e.Suggestion = suggestion
	return e
}

// New creates a new VaultError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *VaultError {
	return &VaultError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a VaultError from an existing error, reusing its message.
func Wrap(code string, err error) *VaultError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinel returns a bare error carrying only a code, for use as an
// errors.Is target.
func Sentinel(code string) *VaultError {
	return &VaultError{Code: code, Category: categoryFromCode(code)}
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *VaultError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *VaultError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *VaultError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the outermost VaultError in the chain.
func As(err error) (*VaultError, bool) {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// HasCode reports whether any VaultError in the chain has the code.
func HasCode(err error, code string) bool {
	return errors.Is(err, Sentinel(code))
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ve, ok := As(err); ok {
		return ve.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ve, ok := As(err); ok {
		return ve.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" if err is not a VaultError.
func GetCode(err error) string {
	if ve, ok := As(err); ok {
		return ve.Code
	}
	return ""
}

// GetCategory extracts the category, or "" if err is not a VaultError.
func GetCategory(err error) Category {
	if ve, ok := As(err); ok {
		return ve.Category
	}
	return ""
}
