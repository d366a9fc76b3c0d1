package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the booking core reports to its callers.
type ErrorKind string

const (
	KindUpstreamUnavailable        ErrorKind = "upstream_unavailable"
	KindSlotNoLongerAvailable      ErrorKind = "slot_no_longer_available"
	KindPaymentSetupFailed         ErrorKind = "payment_setup_failed"
	KindPaymentDeclined            ErrorKind = "payment_declined"
	KindValidation                 ErrorKind = "validation_error"
	KindPartialConfirmationFailure ErrorKind = "partial_confirmation_failure"
	KindNotFound                   ErrorKind = "not_found"
	KindInvalidTransition          ErrorKind = "invalid_transition"
	KindUnauthorized               ErrorKind = "unauthorized"
	KindConflict                   ErrorKind = "conflict"
	KindInternal                   ErrorKind = "internal"
)

// AppError carries a kind, a client-safe message and the wrapped cause.
type AppError struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func NewValidationError(format string, args ...interface{}) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource string) error {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func NewUpstreamError(service string, err error) error {
	return &AppError{Kind: KindUpstreamUnavailable, Message: service + " is unavailable", Retryable: true, Err: err}
}

func NewSlotTakenError(err error) error {
	return &AppError{Kind: KindSlotNoLongerAvailable, Message: "the selected time is no longer available", Err: err}
}

func NewPaymentSetupError(err error) error {
	return &AppError{Kind: KindPaymentSetupFailed, Message: "payment could not be set up, please try again", Retryable: true, Err: err}
}

func NewPaymentDeclinedError(reason string) error {
	return &AppError{Kind: KindPaymentDeclined, Message: reason}
}

func NewInvalidTransitionError(err error) error {
	return &AppError{Kind: KindInvalidTransition, Message: "booking is not in a state that allows this action", Err: err}
}

func NewUnauthorizedError(msg string) error {
	return &AppError{Kind: KindUnauthorized, Message: msg}
}

func NewConflictError(msg string) error {
	return &AppError{Kind: KindConflict, Message: msg}
}

// PartialConfirmationError lists best-effort side effects that failed after payment.
type PartialConfirmationError struct {
	BookingID string
	Failures  map[string]error
}

func (e *PartialConfirmationError) Error() string {
	return fmt.Sprintf("%s: booking %s confirmed with %d failed side effect(s)", KindPartialConfirmationFailure, e.BookingID, len(e.Failures))
}
