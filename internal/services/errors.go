package services

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a workflow failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation_error"
	KindMissingContact    ErrorKind = "missing_contact_info"
	KindUnverifiedContact ErrorKind = "unverified_contact"
	KindInvalidOTP        ErrorKind = "invalid_otp"
	KindSubtotalMismatch  ErrorKind = "subtotal_mismatch"
	KindTotalMismatch     ErrorKind = "total_mismatch"
	KindShopNotFound      ErrorKind = "shop_not_found"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindInternal          ErrorKind = "internal_error"
)

// HTTPStatus maps the kind onto the response status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindMissingContact, KindUnverifiedContact, KindInvalidOTP,
		KindSubtotalMismatch, KindTotalMismatch:
		return http.StatusBadRequest
	case KindShopNotFound, KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is the result value returned by every gate of the order workflow.
// Message is safe to show to clients; Err carries the cause for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// Sentinels usable with errors.Is.
var (
	ErrMissingContact    = newError(KindMissingContact, "customer email or mobile is required")
	ErrUnverifiedContact = newError(KindUnverifiedContact, "contact is not verified, please verify with an OTP first")
	ErrInvalidOTP        = newError(KindInvalidOTP, "invalid or expired OTP")
	ErrSubtotalMismatch  = newError(KindSubtotalMismatch, "subtotal does not match the order items")
	ErrTotalMismatch     = newError(KindTotalMismatch, "total amount does not match subtotal plus tax")
	ErrShopNotFound      = newError(KindShopNotFound, "shop not found")
	ErrNotFound          = newError(KindNotFound, "resource not found")
	ErrDispatchFailed    = newError(KindInternal, "failed to send OTP, please request a new code")
)

// ValidationError builds a KindValidation error with the given message.
func ValidationError(message string) *Error {
	return newError(KindValidation, message)
}

// KindOf returns the kind of err; errors that are not *Error are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
