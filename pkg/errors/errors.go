// Package errors provides the structured failure taxonomy of the cybered client.
//
// Every failure a request can end in is classified into one of three kinds:
//   - TIMEOUT: the per-attempt deadline elapsed before the call settled
//   - NETWORK_ERROR: the transport failed before any response was received
//   - an [HTTPError]: a response was received with a non-2xx status
//
// Timeouts, network failures and 5xx responses are transient and may be
// retried; see [IsTransient]. Everything else is terminal.
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND: Resource not found
//   - NETWORK_*, TIMEOUT: Transport failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unsupported method %q", m)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	var httpErr *errors.HTTPError
//	if stderrors.As(err, &httpErr) && httpErr.Status == 404 {
//	    // Render a not-found state
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Transport errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeHTTP        Code = "HTTP_ERROR"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Authentication errors
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeForbidden    Code = "FORBIDDEN"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Timeout returns the failure reported when an attempt exceeds its deadline.
// The cause is always context.DeadlineExceeded.
func Timeout(d time.Duration) *Error {
	return Wrap(ErrCodeTimeout, context.DeadlineExceeded, "request timed out after %s", d)
}

// Network returns the failure reported when no response was received.
func Network(cause error) *Error {
	return Wrap(ErrCodeNetwork, cause, "network request failed")
}

// HTTPError is returned when the server answered with a non-2xx status.
// Message is the best-effort human-readable text: the JSON error body's
// detail when present, otherwise the transport status text.
type HTTPError struct {
	Status  int
	Message string
	Header  http.Header
	Body    []byte // Raw response body, possibly empty
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Code(), e.Status, e.Message)
}

// Code returns the error code for this error type.
func (e *HTTPError) Code() Code {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	default:
		return ErrCodeHTTP
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or *HTTPError with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error carries no code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var h *HTTPError
	if errors.As(err, &h) {
		return h.Code()
	}
	return ""
}

// AsHTTP returns the *HTTPError in err's chain, if any.
func AsHTTP(err error) (*HTTPError, bool) {
	var h *HTTPError
	if errors.As(err, &h) {
		return h, true
	}
	return nil, false
}

// IsTimeout reports whether err is an attempt deadline failure.
func IsTimeout(err error) bool { return Is(err, ErrCodeTimeout) }

// IsNetwork reports whether err is a transport failure without a response.
func IsNetwork(err error) bool { return Is(err, ErrCodeNetwork) }

// IsTransient reports whether err may succeed when re-issued: timeouts,
// network failures and responses with status >= 500. Any response with a
// lower status is terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if h, ok := AsHTTP(err); ok {
		return h.Status >= 500
	}
	return IsTimeout(err) || IsNetwork(err)
}

// UserMessage returns a user-friendly message for the error.
// For *Error and *HTTPError types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var h *HTTPError
	if errors.As(err, &h) {
		return h.Message
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
