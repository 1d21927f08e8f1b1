// Package apperror defines the single error type surfaced by the service
// layer to HTTP handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeInternal            = "INTERNAL_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeMissingConfig       = "MISSING_CONFIG"
	CodeUpstream            = "UPSTREAM_ERROR"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeRateLimited         = "RATE_LIMITED"
	CodeConflict            = "CONFLICT"
)

// Error carries a client facing message, an HTTP status code and a short
// machine readable code. Err holds the underlying cause, if any.
type Error struct {
	Message    string
	StatusCode int
	Code       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error. A zero status defaults to 500.
func New(message string, statusCode int, code string) *Error {
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	if code == "" {
		code = CodeInternal
	}
	return &Error{Message: message, StatusCode: statusCode, Code: code}
}

func NotFound(message string) *Error {
	return New(message, http.StatusNotFound, CodeNotFound)
}

// Unauthorized reports an ownership mismatch on an existing record.
func Unauthorized(message string) *Error {
	return New(message, http.StatusForbidden, CodeUnauthorized)
}

// Unauthenticated reports a missing or invalid session.
func Unauthenticated(message string) *Error {
	return New(message, http.StatusUnauthorized, CodeUnauthenticated)
}

func MissingConfig(name string) *Error {
	return New(fmt.Sprintf("missing configuration: %s", name), http.StatusInternalServerError, CodeMissingConfig)
}

func Upstream(message string, err error) *Error {
	e := New(message, http.StatusBadGateway, CodeUpstream)
	e.Err = err
	return e
}

func Validation(message string) *Error {
	return New(message, http.StatusBadRequest, CodeValidation)
}

func InsufficientCredits(balance, fee int) *Error {
	return New(fmt.Sprintf("insufficient credits: balance %d, fee %d", balance, fee), http.StatusPaymentRequired, CodeInsufficientCredits)
}

func RateLimited() *Error {
	return New("rate limit exceeded", http.StatusTooManyRequests, CodeRateLimited)
}

func Conflict(message string) *Error {
	return New(message, http.StatusConflict, CodeConflict)
}

// Wrap returns err unchanged when it already is (or wraps) an *Error,
// otherwise it wraps err as an internal error with the given message.
// A nil err yields nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	e := New(message, http.StatusInternalServerError, CodeInternal)
	e.Err = err
	return e
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// StatusCode returns the HTTP status for err, 500 when err is not an *Error.
func StatusCode(err error) int {
	if ae, ok := As(err); ok {
		return ae.StatusCode
	}
	return http.StatusInternalServerError
}
