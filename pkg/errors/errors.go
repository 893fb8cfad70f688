// Package errors provides the typed errors used across the authgate packages.
package errors

import (
	"errors"
	"fmt"
)

// Error types
const (
	// ErrInvalidArgument is returned when an invalid argument is provided
	ErrInvalidArgument = "invalid_argument"

	// ErrSecurity is returned when provider resolution or another
	// security-sensitive operation fails
	ErrSecurity = "security_failure"

	// ErrAuth is returned when an auth context cannot be produced or a
	// module chain rejects a message
	ErrAuth = "auth_failure"

	// ErrNotFound is returned when a named provider, module, or resource
	// is not found
	ErrNotFound = "not_found"

	// ErrBundle is returned when a resource bundle cannot be loaded or
	// fails verification
	ErrBundle = "bundle"

	// ErrInternal is returned when there is an internal error
	ErrInternal = "internal"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewSecurityError creates a new security failure error
func NewSecurityError(message string, cause error) *Error {
	return NewError(ErrSecurity, message, cause)
}

// NewAuthError creates a new auth failure error
func NewAuthError(message string, cause error) *Error {
	return NewError(ErrAuth, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewBundleError creates a new bundle error
func NewBundleError(message string, cause error) *Error {
	return NewError(ErrBundle, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

func isType(err error, errorType string) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return isType(err, ErrInvalidArgument)
}

// IsSecurity checks if the error is a security failure error
func IsSecurity(err error) bool {
	return isType(err, ErrSecurity)
}

// IsAuth checks if the error is an auth failure error
func IsAuth(err error) bool {
	return isType(err, ErrAuth)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsBundle checks if the error is a bundle error
func IsBundle(err error) bool {
	return isType(err, ErrBundle)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrInternal)
}
