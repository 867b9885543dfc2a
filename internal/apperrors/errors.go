package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure. Each kind has a stable code and HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidRange
	KindDateConflict
	KindPropertyUnavailable
	KindDuplicatePayment
	KindAmountMismatch
	KindInvalidMethod
	KindInvalidTransition
	KindExternalTimeout
	KindValidation
	KindUnauthorized
	KindBusy
)

var kindInfo = map[Kind]struct {
	code   string
	status int
}{
	KindInternal:            {"INTERNAL", http.StatusInternalServerError},
	KindNotFound:            {"NOT_FOUND", http.StatusNotFound},
	KindForbidden:           {"FORBIDDEN", http.StatusForbidden},
	KindInvalidRange:        {"INVALID_RANGE", http.StatusUnprocessableEntity},
	KindDateConflict:        {"DATE_CONFLICT", http.StatusConflict},
	KindPropertyUnavailable: {"PROPERTY_UNAVAILABLE", http.StatusConflict},
	KindDuplicatePayment:    {"DUPLICATE_PAYMENT", http.StatusConflict},
	KindAmountMismatch:      {"AMOUNT_MISMATCH", http.StatusUnprocessableEntity},
	KindInvalidMethod:       {"INVALID_METHOD", http.StatusUnprocessableEntity},
	KindInvalidTransition:   {"INVALID_TRANSITION", http.StatusConflict},
	KindExternalTimeout:     {"EXTERNAL_TIMEOUT", http.StatusGatewayTimeout},
	KindValidation:          {"VALIDATION_FAILED", http.StatusUnprocessableEntity},
	KindUnauthorized:        {"UNAUTHORIZED", http.StatusUnauthorized},
	KindBusy:                {"RESOURCE_BUSY", http.StatusConflict},
}

func (k Kind) Code() string {
	return kindInfo[k].code
}

func (k Kind) HTTPStatus() int {
	return kindInfo[k].status
}

// Error is a classified failure with a human readable message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperrors.DateConflict) works
// regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// Sentinels for errors.Is comparisons
var (
	NotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	Forbidden           = &Error{Kind: KindForbidden, Message: "forbidden"}
	InvalidRange        = &Error{Kind: KindInvalidRange, Message: "invalid date range"}
	DateConflict        = &Error{Kind: KindDateConflict, Message: "dates are already booked"}
	PropertyUnavailable = &Error{Kind: KindPropertyUnavailable, Message: "property is not available"}
	DuplicatePayment    = &Error{Kind: KindDuplicatePayment, Message: "booking already has an active payment"}
	AmountMismatch      = &Error{Kind: KindAmountMismatch, Message: "amount does not match booking total"}
	InvalidMethod       = &Error{Kind: KindInvalidMethod, Message: "payment method not accepted"}
	InvalidTransition   = &Error{Kind: KindInvalidTransition, Message: "invalid state transition"}
	ExternalTimeout     = &Error{Kind: KindExternalTimeout, Message: "external service timed out"}
	Validation          = &Error{Kind: KindValidation, Message: "validation failed"}
	Unauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	Busy                = &Error{Kind: KindBusy, Message: "another request is updating this resource"}
)

// New builds an error of the given kind with a specific message
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user facing message. Internal errors never leak their detail.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps err to a response status
func HTTPStatus(err error) int {
	return KindOf(err).HTTPStatus()
}
