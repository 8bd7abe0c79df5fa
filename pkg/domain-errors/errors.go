// Package domainerrors carries coded errors across the domain, service and
// transport layers. Aggregates return CodeValidation for malformed input and
// CodeInvariantViolation for well-formed requests that break a business rule;
// services add NotFound/Conflict/Internal; handlers map codes to HTTP statuses.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies an Error.
type Code string

const (
	// CodeValidation marks malformed input: blank names, negative amounts,
	// out-of-range rates, unknown enum values.
	CodeValidation Code = "validation_error"
	// CodeInvariantViolation marks a business-rule violation: insufficient
	// stock, illegal state transition, inactive customer.
	CodeInvariantViolation Code = "business_rule_violation"

	CodeBadRequest   Code = "bad_request"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"
	CodeRateLimited  Code = "rate_limit_exceeded"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error with a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost coded error has the given code.
func Is(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// IsValidation reports whether err is a malformed-input failure.
func IsValidation(err error) bool {
	return Is(err, CodeValidation)
}

// IsBusinessRule reports whether err is a business-rule violation.
func IsBusinessRule(err error) bool {
	return Is(err, CodeInvariantViolation)
}

// Message returns the message of the outermost coded error, falling back to
// err.Error().
func Message(err error) string {
	if de, ok := As(err); ok && de.Message != "" {
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// ToHTTPStatus maps a code to the HTTP status used by every handler.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
