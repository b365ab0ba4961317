package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"
	// ErrorTypeConflict indicates a uniqueness conflict
	ErrorTypeConflict ErrorType = "CONFLICT"
	// ErrorTypeUnauthenticated indicates a failed or expired login
	ErrorTypeUnauthenticated ErrorType = "UNAUTHENTICATED"
	// ErrorTypeUnsupported indicates a capability that is not implemented
	ErrorTypeUnsupported ErrorType = "UNSUPPORTED"
	// ErrorTypeExhausted indicates a depleted resource such as disk space
	ErrorTypeExhausted ErrorType = "EXHAUSTED"
	// ErrorTypeTransient indicates a retryable network or automation failure
	ErrorTypeTransient ErrorType = "TRANSIENT"
	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(errorType ErrorType, message string) error {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

// Wrap wraps an error with an application error
func Wrap(errorType ErrorType, message string, err error) error {
	return &AppError{
		Type:    errorType,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a not found error
func NotFound(message string) error {
	return New(ErrorTypeNotFound, message)
}

// Conflict creates a conflict error
func Conflict(message string) error {
	return New(ErrorTypeConflict, message)
}

// Unauthenticated creates an authentication error
func Unauthenticated(message string) error {
	return New(ErrorTypeUnauthenticated, message)
}

// Unsupported creates an unsupported-capability error
func Unsupported(message string) error {
	return New(ErrorTypeUnsupported, message)
}

// Exhausted creates a resource-exhaustion error
func Exhausted(message string) error {
	return New(ErrorTypeExhausted, message)
}

// Transient creates a retryable failure error
func Transient(message string, err error) error {
	return Wrap(ErrorTypeTransient, message, err)
}

// Internal creates an internal error
func Internal(message string) error {
	return New(ErrorTypeInternal, message)
}

// isType checks whether an error carries the given type
func isType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsUnauthenticated checks if an error is an authentication error
func IsUnauthenticated(err error) bool {
	return isType(err, ErrorTypeUnauthenticated)
}

// IsUnsupported checks if an error is an unsupported-capability error
func IsUnsupported(err error) bool {
	return isType(err, ErrorTypeUnsupported)
}

// IsExhausted checks if an error is a resource-exhaustion error
func IsExhausted(err error) bool {
	return isType(err, ErrorTypeExhausted)
}

// IsTransient checks if an error is a retryable failure
func IsTransient(err error) bool {
	return isType(err, ErrorTypeTransient)
}

// IsFatal reports whether an error must abort the whole pass rather
// than be retried or skipped.
func IsFatal(err error) bool {
	return IsUnauthenticated(err) || IsExhausted(err) || IsUnsupported(err)
}

// IsDuplicateError checks if a database error is a duplicate key violation
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
