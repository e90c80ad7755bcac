// Package errors holds the typed error taxonomy shared by the GitHub
// transport and the retry policy.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeGraphQL     ErrorType = "graphql"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a transport failure with type information
type Error struct {
	Type    ErrorType
	Message string
	// Code is the HTTP status, 0 when no response was received
	Code int
	Err  error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around cause
func Wrap(t ErrorType, cause error, message string) *Error {
	msg := message
	if cause != nil {
		msg = message + ": " + cause.Error()
	}
	return &Error{Type: t, Message: msg, Err: cause}
}

// As extracts a typed error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	if e, ok := As(err); ok {
		return e.Type
	}
	return ErrorTypeUnknown
}

// FromStatus maps an HTTP status code to an ErrorType
func FromStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized:
		return ErrorTypeAuth
	case code == http.StatusForbidden, code == http.StatusTooManyRequests:
		// GitHub answers secondary rate limits with 403
		return ErrorTypeRateLimit
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
