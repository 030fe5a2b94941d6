package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for protocol mapping
type Kind string

const (
	AuthRequired       Kind = "auth_required"
	AuthInvalid        Kind = "auth_invalid"
	AuthExpired        Kind = "auth_expired"
	PermissionDenied   Kind = "permission_denied"
	InvalidInput       Kind = "invalid_input"
	InvalidFormat      Kind = "invalid_format"
	NotFound           Kind = "not_found"
	Database           Kind = "database"
	Internal           Kind = "internal"
	RateLimited        Kind = "rate_limited"
	OperationCancelled Kind = "operation_cancelled"
	MethodNotFound     Kind = "method_not_found"
)

// Error carries a kind alongside a user-safe message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with a kind and message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error with a kind and formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to Internal
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// MessageOf returns the user-safe message from an error chain
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}

// Is reports whether the error chain carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
