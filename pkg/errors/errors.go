// Package errors carries typed application errors. A Code decides the HTTP
// status, whether the client may retry and what the client is allowed to see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"slices"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeStockDepleted         Code = "STOCK_DEPLETED"
	CodeExceedsTotalQuantity  Code = "EXCEEDS_TOTAL_QUANTITY"
	CodeInsufficientInventory Code = "INSUFFICIENT_INVENTORY"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeSignatureInvalid      Code = "GATEWAY_SIGNATURE_INVALID"
	CodeRefundFailed          Code = "REFUND_FAILED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	hideDetails = false
	showDetails = true
)

func meta(status int, public string, retryable, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", false, showDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required", false, hideDetails),
	CodeForbidden:     meta(http.StatusForbidden, "access denied", false, hideDetails),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found", false, hideDetails),
	CodeConflict:      meta(http.StatusConflict, "conflict detected", false, hideDetails),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", false, showDetails),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", false, showDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded", true, hideDetails),
	// only dependency, rate-limit and stock contention failures are worth retrying
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", false, hideDetails),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", true, showDetails),

	CodeInsufficientStock: meta(http.StatusBadRequest, "insufficient stock", false, showDetails),
	// another checkout won the race for the same rows
	CodeStockDepleted:         meta(http.StatusConflict, "stock depleted", true, showDetails),
	CodeExceedsTotalQuantity:  meta(http.StatusBadRequest, "exceeds total quantity", false, showDetails),
	CodeInsufficientInventory: meta(http.StatusBadRequest, "insufficient inventory", false, showDetails),
	CodeInvalidTransition:     meta(http.StatusUnprocessableEntity, "invalid transition", false, showDetails),
	CodeSignatureInvalid:      meta(http.StatusBadRequest, "invalid gateway signature", false, hideDetails),
	CodeRefundFailed:          meta(http.StatusBadGateway, "refund failed, contact support", false, showDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap keeps err reachable through errors.Is/As. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code is CodeInternal on a nil receiver so callers never branch on nil.
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

// WithDetails sets client-visible context. It is dropped on the wire when
// the code's metadata disallows details.
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
	return fmt.Sprintf("%s: %s", e.code, e.message)
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
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has one of codes.
func IsCode(err error, codes ...Code) bool {
	typed := As(err)
	return typed != nil && slices.Contains(codes, typed.code)
}
