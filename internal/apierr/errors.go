package apierr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindAuth                Kind = "auth"
	KindConflict            Kind = "conflict"
	KindUnavailableItem     Kind = "unavailable_item"
	KindInvalidCoupon       Kind = "invalid_coupon"
	KindInvalidTimestamp    Kind = "invalid_timestamp"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindInternal            Kind = "internal"
)

func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict, KindInvalidCoupon, KindInvalidTimestamp:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindUnavailableItem:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Classified is implemented by domain errors that know how they should be reported.
type Classified interface {
	error
	Kind() Kind
}

// Detailed errors carry a client-safe payload for the envelope's details field.
type Detailed interface {
	Details() interface{}
}

type Error struct {
	kind    Kind
	Message string
	Detail  interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error        { return e.Err }
func (e *Error) Kind() Kind           { return e.kind }
func (e *Error) Details() interface{} { return e.Detail }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Detail = details
	return &cp
}

func New(kind Kind, message string) *Error {
	return &Error{kind: kind, Message: message}
}

// Wrap attaches cause for logging; only message reaches the client.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, Message: message, Err: cause}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Auth(message string) *Error       { return New(KindAuth, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// KindOf reports the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
