package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid state transition")
	ErrConflict        = errors.New("concurrent modification")
	ErrExternalService = errors.New("external service failure")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrUserBanned      = errors.New("account is banned")
	ErrTooManyRequests = errors.New("too many requests")
)

// ValidationError reports malformed input: an empty cart, missing shipping fields,
// a missing transaction ID for an online payment.
type ValidationError struct {
	Field   string
	Message string
	// Code names the customer-facing cases so the HTTP layer can localize them.
	Code string
}

const (
	ValidationEmptyCart      = "EmptyCart"
	ValidationCODUnavailable = "CODUnavailable"
	ValidationTrxIDRequired  = "TrxIDRequired"
)

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) WithCode(code string) *ValidationError {
	e.Code = code
	return e
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type VoucherErrorKind string

const (
	VoucherNotFound             VoucherErrorKind = "NotFound"
	VoucherExpired              VoucherErrorKind = "Expired"
	VoucherInactive             VoucherErrorKind = "Inactive"
	VoucherUsageLimitReached    VoucherErrorKind = "UsageLimitReached"
	VoucherBelowMinimumPurchase VoucherErrorKind = "BelowMinimumPurchase"
)

type VoucherError struct {
	Kind        VoucherErrorKind
	Code        string
	MinPurchase float64
}

func (e *VoucherError) Error() string {
	switch e.Kind {
	case VoucherBelowMinimumPurchase:
		return fmt.Sprintf("voucher %s requires a minimum purchase of %.2f", e.Code, e.MinPurchase)
	case VoucherNotFound:
		return fmt.Sprintf("voucher %s not found", e.Code)
	case VoucherExpired:
		return fmt.Sprintf("voucher %s has expired", e.Code)
	case VoucherInactive:
		return fmt.Sprintf("voucher %s is not active", e.Code)
	case VoucherUsageLimitReached:
		return fmt.Sprintf("voucher %s has reached its usage limit", e.Code)
	}
	return fmt.Sprintf("voucher %s: %s", e.Code, e.Kind)
}

// IsVoucherError reports whether err carries a VoucherError of the given kind.
func IsVoucherError(err error, kind VoucherErrorKind) bool {
	var ve *VoucherError
	return errors.As(err, &ve) && ve.Kind == kind
}

// StateTransitionError is returned when a guard rejects a transition. From is the
// order's status at the time of the attempt.
type StateTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
	Reason  string
}

func (e *StateTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("order %s: cannot move from %s to %s: %s", e.OrderID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrInvalidState }

// ConflictError is an optimistic lock failure. It carries the state the caller lost to.
type ConflictError struct {
	OrderID              string
	CurrentStatus        OrderStatus
	CurrentPaymentStatus PaymentStatus
	CurrentVersion       int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s was modified concurrently (now %s/%s, version %d)",
		e.OrderID, e.CurrentStatus, e.CurrentPaymentStatus, e.CurrentVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ExternalServiceError wraps a failure from the courier, notification or file store.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }
