// Package dErrors defines the coded domain errors shared by all features.
//
// Services and domain models return these; the HTTP layer maps codes to
// status codes in a single place. For infrastructure facts (row missing,
// connection down) stores return pkg/platform/sentinel errors instead and
// services translate them here.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeRateLimited        Code = "rate_limited"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"

	// Registration-specific codes. Each maps to exactly one user-actionable
	// failure mode of CreateRegistration and the lifecycle transitions.
	CodeNotEligible        Code = "not_eligible"
	CodeAlreadyRegistered  Code = "already_registered"
	CodeCapacityExhausted  Code = "capacity_exhausted"
	CodeRegistrationPaused Code = "registration_paused"
	CodeDeadlinePassed     Code = "deadline_passed"
	CodeInvalidTransition  Code = "invalid_transition"

	// CodePaymentRequired is informational: the registration was created and
	// now awaits payment. It is never returned as an error from services but
	// shares the code namespace so clients see one vocabulary.
	CodePaymentRequired Code = "payment_required"
)

// Error is a domain error with a stable code and a user-facing message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that preserves the underlying cause for
// errors.Is/As chains while presenting a clean message to callers.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message from err. Non-domain errors get
// a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain error code to an HTTP status code.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyRegistered, CodeCapacityExhausted, CodeInvalidTransition:
		return http.StatusConflict
	case CodeNotEligible, CodeRegistrationPaused, CodeDeadlinePassed:
		return http.StatusUnprocessableEntity
	case CodePaymentRequired:
		return http.StatusPaymentRequired
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeInvariantViolation, CodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}
