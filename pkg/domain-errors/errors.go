// Package domainerrors defines the error taxonomy shared by services and transport.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate them into
// coded domain errors here, and the transport layer maps codes to HTTP statuses.
// Every denial carries a machine-readable reason alongside the human message.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is a stable, caller-visible error category.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limited"
	CodeIntegrity    Code = "integrity_error"
	CodeInternal     Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show callers except for
// internal and integrity codes, which transport never exposes.
type Error struct {
	Code    Code
	Message string
	Reason  string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same code and message, so tests can
// compare against a freshly constructed expectation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithReason attaches a machine-readable reason code (e.g. DEVICE_MISMATCH).
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// WithDetails attaches structured details returned to the caller.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost domain error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// ReasonOf returns the reason code carried by err, or "" when none is set.
func ReasonOf(err error) string {
	if de, ok := As(err); ok {
		return de.Reason
	}
	return ""
}

// HTTPStatus maps a code to its response status. Unknown codes are internal.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Exposed reports whether the message of code may be shown to callers.
func Exposed(code Code) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}
