// Package errors carries the typed error codes shared by services and the HTTP
// layer. Services return *Error values; api/responses turns them into
// envelopes using the behaviour attached to each Code.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// exposure controls what a client sees besides the code.
type exposure uint8

const (
	exposeMessage exposure = 1 << iota
	exposeDetails
)

type codePolicy struct {
	status    int
	fallback  string
	retryable bool
	expose    exposure
}

var policies = map[Code]codePolicy{
	CodeValidation:        {http.StatusBadRequest, "validation failed", false, exposeMessage | exposeDetails},
	CodeUnauthorized:      {http.StatusUnauthorized, "authentication required", false, exposeMessage},
	CodeForbidden:         {http.StatusForbidden, "access denied", false, exposeMessage},
	CodeNotFound:          {http.StatusNotFound, "resource not found", false, exposeMessage},
	CodeConflict:          {http.StatusConflict, "conflict detected", false, exposeMessage},
	CodeOutOfStock:        {http.StatusConflict, "insufficient stock", false, exposeMessage | exposeDetails},
	CodeInvalidState:      {http.StatusConflict, "operation not allowed in current state", false, exposeMessage | exposeDetails},
	CodeInvalidTransition: {http.StatusUnprocessableEntity, "state transition disallowed", false, exposeMessage | exposeDetails},
	CodeIdempotency:       {http.StatusConflict, "idempotency key reused", false, exposeMessage | exposeDetails},
	CodeRateLimit:         {http.StatusTooManyRequests, "rate limit exceeded", false, exposeMessage},
	CodeInternal:          {http.StatusInternalServerError, "internal server error", true, 0},
	CodeDependency:        {http.StatusServiceUnavailable, "dependency unavailable", true, exposeDetails},
}

func (c Code) policy() codePolicy {
	if s, ok := policies[c]; ok {
		return s
	}
	return policies[CodeInternal]
}

// HTTPStatus is the response status for the code. Unknown codes map to 500.
func (c Code) HTTPStatus() int { return c.policy().status }

// Retryable reports whether a client may repeat the request unchanged.
func (c Code) Retryable() bool { return c.policy().retryable }

// PublicMessage is shown instead of the error's own message when the code
// keeps messages private, or when the message is empty.
func (c Code) PublicMessage() string { return c.policy().fallback }

// ExposesMessage reports whether the error's message may reach the client.
func (c Code) ExposesMessage() bool { return c.policy().expose&exposeMessage != 0 }

// ExposesDetails reports whether the error's details may reach the client.
func (c Code) ExposesDetails() bool { return c.policy().expose&exposeDetails != 0 }

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to cause. A nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
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

// WithDetails sets structured context (ids, statuses) and returns e.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries a typed error with the given code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
