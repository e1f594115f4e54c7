// Package errors defines the structured error taxonomy surfaced by the
// request facade, matching engine, and session store.
package errors

import (
	"fmt"
	"time"
)

// Code identifies the broad category of a failure, per the error handling
// design: Malformed, Validation, Unauthorized, NotFound, UnknownType,
// RateLimited, Internal.
type Code string

const (
	Malformed    Code = "MALFORMED"
	Validation   Code = "VALIDATION"
	Unauthorized Code = "UNAUTHORIZED"
	NotFound     Code = "NOT_FOUND"
	UnknownType  Code = "UNKNOWN_REQUEST_TYPE"
	RateLimited  Code = "RATE_LIMITED"
	Internal     Code = "INTERNAL"
)

// Error is a structured, loggable error carrying the code that the facade
// maps onto the response envelope's "error" string.
type Error struct {
	Code      Code
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Timestamp: time.Now()}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// WithCause attaches an underlying cause without leaking it to the caller;
// internal errors are always reported as "Internal error" to the facade
// response, the cause is retained only for logging.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Is reports whether err carries the given code, used by the facade to map
// an error to the correct response shape.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// CodeOf extracts the Code from err, defaulting to Internal for unstructured
// errors so every failure path still produces a valid envelope.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return Internal
}
