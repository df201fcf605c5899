package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy. Every *Failure unwraps to exactly one of these.
var (
	ErrValidation             = errors.New("validation error")
	ErrAuthMissing            = errors.New("auth token missing")
	ErrBookingFailed          = errors.New("booking failed")
	ErrPaymentLinkFetchFailed = errors.New("payment link fetch failed")
	ErrPaymentLinkMissing     = errors.New("payment link missing from response")
	ErrDecryptionFailed       = errors.New("cached credential could not be decrypted")
)

// Operational errors returned by the session orchestrator.
var (
	ErrBookingInFlight   = errors.New("a booking attempt is already in flight")
	ErrNoTicketOrder     = errors.New("no active ticket order")
	ErrStaleResponse     = errors.New("response belongs to a superseded session generation")
	ErrSessionClosed     = errors.New("session closed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrTripNotFound      = errors.New("trip not in current result set")
	ErrClassNotFound     = errors.New("fare class not offered on trip")
	ErrIllegalTransition = errors.New("illegal booking state transition")
)

var reasonErrors = map[FailureReason]error{
	ReasonValidation:             ErrValidation,
	ReasonAuthMissing:            ErrAuthMissing,
	ReasonBookingFailed:          ErrBookingFailed,
	ReasonPaymentLinkFetchFailed: ErrPaymentLinkFetchFailed,
	ReasonPaymentLinkMissing:     ErrPaymentLinkMissing,
	ReasonDecryptionFailed:       ErrDecryptionFailed,
}

// Failure is the payload of StateFailed.
type Failure struct {
	Reason     FailureReason
	Violations []string // only for ReasonValidation
	Err        error    // underlying cause for remote failures
}

// NewFailure wraps cause under the given reason.
func NewFailure(reason FailureReason, cause error) *Failure {
	return &Failure{Reason: reason, Err: cause}
}

func (f *Failure) Error() string {
	base := reasonErrors[f.Reason]
	msg := string(f.Reason)
	if base != nil {
		msg = base.Error()
	}
	switch {
	case len(f.Violations) > 0:
		return fmt.Sprintf("%s: %s", msg, strings.Join(f.Violations, "; "))
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", msg, f.Err)
	default:
		return msg
	}
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if base := reasonErrors[f.Reason]; base != nil {
		errs = append(errs, base)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// ReasonOf returns the failure reason carried by err, if any.
func ReasonOf(err error) (FailureReason, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason, true
	}
	return "", false
}
