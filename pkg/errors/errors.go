// Package errors carries the storefront's typed errors. Every error that
// reaches an HTTP response resolves to one Code, and the Code decides the
// status and what the client is allowed to see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeStateConflict    Code = "STATE_CONFLICT"
	CodePriceUnavailable Code = "PRICE_UNAVAILABLE"
	CodeIdempotency      Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit        Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeDependency       Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces to HTTP clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// ClientError reports whether the code is the caller's fault.
func (m Metadata) ClientError() bool {
	return m.HTTPStatus < http.StatusInternalServerError
}

func meta(status int, msg string, retryable, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, Retryable: retryable, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:       meta(http.StatusBadRequest, "validation failed", false, true),
	CodeUnauthorized:     meta(http.StatusUnauthorized, "authentication required", false, false),
	CodeForbidden:        meta(http.StatusForbidden, "access denied", false, false),
	CodeNotFound:         meta(http.StatusNotFound, "resource not found", false, false),
	CodeConflict:         meta(http.StatusConflict, "conflict detected", false, false),
	CodeStateConflict:    meta(http.StatusUnprocessableEntity, "state transition disallowed", false, true),
	CodePriceUnavailable: meta(http.StatusUnprocessableEntity, "price unavailable for product", false, true),
	CodeIdempotency:      meta(http.StatusConflict, "idempotency key reused", false, true),
	CodeRateLimit:        meta(http.StatusTooManyRequests, "rate limit exceeded", true, false),
	CodeInternal:         meta(http.StatusInternalServerError, "internal server error", true, false),
	CodeDependency:       meta(http.StatusServiceUnavailable, "dependency unavailable", true, true),
}

// MetadataFor falls back to the internal error metadata for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and client facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err. A nil err yields a plain coded error.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the payload rendered under error.details when the code
// allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by code, so errors.Is(err, New(CodeNotFound, ""))
// holds for any not found error in the chain.
func (e *Error) Is(target error) bool {
	var other *Error
	if e == nil || !stdErrors.As(target, &other) || other == nil {
		return false
	}
	return e.code == other.code
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// Resolve normalizes any error into a coded error plus its metadata. Untyped
// errors become internal errors.
func Resolve(err error) (*Error, Metadata) {
	if err == nil {
		err = stdErrors.New("unknown error")
	}
	typed := As(err)
	if typed == nil {
		typed = Wrap(CodeInternal, err, "unexpected error")
	}
	return typed, MetadataFor(typed.Code())
}
