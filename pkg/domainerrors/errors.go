// Package domainerrors provides coded errors for business-rule and
// infrastructure failures. Services attach a Code when a rule is violated;
// transport layers map codes to HTTP statuses without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and tests.
type Code string

const (
	// CodeValidation marks malformed or out-of-range input. The message
	// names the violated field.
	CodeValidation Code = "validation"
	// CodeLocked marks a mutation attempted on a registration whose payment
	// state has left pending.
	CodeLocked Code = "locked"
	// CodeConflict marks uniqueness violations (duplicate email, reused UTR).
	CodeConflict Code = "conflict"
	// CodeNotFound marks lookups of unknown registrations, students or
	// coordinators.
	CodeNotFound Code = "not_found"
	// CodeMismatch marks a client-declared total disagreeing with the
	// server-computed total.
	CodeMismatch Code = "mismatch"
	// CodeUnauthorized marks missing, invalid or expired credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks authenticated callers lacking access.
	CodeForbidden Code = "forbidden"
	// CodeTimeout marks cancelled or deadline-exceeded operations.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected failures; callers see a generic message,
	// the log carries the detail.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a caller-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-safe message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code. Alias of HasCode kept for
// call-site readability next to errors.Is.
func Is(err error, code Code) bool { return HasCode(err, code) }

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from err. Uncoded errors map to
// a generic message so internal detail never leaks to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// HTTPStatus maps a code to its HTTP response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeMismatch:
		return http.StatusBadRequest
	case CodeLocked:
		return http.StatusLocked
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
