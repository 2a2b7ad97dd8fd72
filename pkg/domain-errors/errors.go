// Package dErrors defines the domain error vocabulary for the service.
//
// Services return these instead of raw errors so transport layers can map
// them onto HTTP statuses without string matching, and so callers can branch
// on error codes with HasCode. Infrastructure facts (not found, conflict)
// live in pkg/platform/sentinel; this package is for domain semantics.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_failed"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"

	// CodeInvariantViolation marks a broken model invariant. These are
	// programming or state errors, never user input errors.
	CodeInvariantViolation Code = "invariant_violation"

	// Verification pipeline codes. InvalidTransition and
	// ConcurrentModification are recoverable by the caller; the adapter
	// failures terminate the session.
	CodeInvalidTransition      Code = "invalid_transition"
	CodeConcurrentModification Code = "concurrent_modification"
	CodeExtractionFailed       Code = "extraction_failed"
	CodeVerificationFailed     Code = "verification_failed"
	CodeMalformedResponse      Code = "malformed_response"
	CodeSignatureFailure       Code = "signature_failure"
)

// Error is a domain error with a machine-readable code and a human-readable
// message. It wraps an optional cause for errors.Is/As traversal.
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

// New creates a domain error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is delegates to errors.Is; kept so call sites can stay inside this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// CodeOf returns the outermost domain error code, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
