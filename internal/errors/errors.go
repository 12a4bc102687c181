package errors

import (
	"errors"
	"fmt"
)

// Error is the typed error returned across engine boundaries
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Err     error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput creates an INVALID_INPUT error for a caller-supplied field
func InvalidInput(field, message string) *Error {
	return &Error{
		Code:    ErrInvalidInput,
		Message: message,
		Field:   field,
	}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// Unavailable creates a SERVICE_UNAVAILABLE error wrapping cause
func Unavailable(service string, cause error) *Error {
	return &Error{
		Code:    ErrUnavailable,
		Message: fmt.Sprintf("%s is temporarily unavailable", service),
		Err:     cause,
	}
}

// Timeout creates a TIMEOUT error
func Timeout(operation string, cause error) *Error {
	return &Error{
		Code:    ErrTimeout,
		Message: fmt.Sprintf("%s timed out", operation),
		Err:     cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidInput reports whether err signals a caller bug
func IsInvalidInput(err error) bool {
	return CodeOf(err) == ErrInvalidInput
}
