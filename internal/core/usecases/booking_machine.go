package usecases

import (
	"errors"
	"fmt"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// BookingMachine drives one reservation attempt through its lifecycle.
//
//	Idle → Validating → Submitting → TicketCreated → ResolvingPayment → ReadyForRedirect
//	         ↘ Failed     ↘ Failed                     ↘ Failed (order kept)
//
// Every method either performs a legal transition or returns an error
// wrapping domain.ErrIllegalTransition and leaves the machine untouched.
// The order is set only by TicketCreated and the payment session only by
// PaymentResolved, so ReadyForRedirect without a ticket cannot be reached.
//
// BookingMachine is not safe for concurrent use.
type BookingMachine struct {
	state   domain.BookingState
	order   *domain.TicketOrder
	payment *domain.PaymentSession
	failure *domain.Failure
}

// NewBookingMachine returns a machine in StateIdle.
func NewBookingMachine() *BookingMachine {
	return &BookingMachine{state: domain.StateIdle}
}

func (m *BookingMachine) State() domain.BookingState { return m.state }
func (m *BookingMachine) Order() *domain.TicketOrder { return m.order }
func (m *BookingMachine) Payment() *domain.PaymentSession { return m.payment }
func (m *BookingMachine) Failure() *domain.Failure { return m.failure }
func (m *BookingMachine) InFlight() bool { return m.state.InFlight() }

func (m *BookingMachine) require(op string, allowed ...domain.BookingState) error {
	for _, s := range allowed {
		if m.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", domain.ErrIllegalTransition, op, m.state)
}

func (m *BookingMachine) fail(f *domain.Failure) *domain.Failure {
	m.state = domain.StateFailed
	m.failure = f
	return f
}

// Submit starts a new attempt. The previous order, payment session and
// failure are discarded. If req violates any local constraint the machine
// moves straight to Failed(ValidationError) and the returned *domain.Failure
// lists every violation.
func (m *BookingMachine) Submit(req domain.BookingRequest, classSelected bool) error {
	if err := m.require("submit", domain.StateIdle, domain.StateFailed,
		domain.StateTicketCreated, domain.StateReadyForRedirect); err != nil {
		return err
	}

	m.state = domain.StateValidating
	m.order, m.payment, m.failure = nil, nil, nil

	if violations := ValidateBooking(req, classSelected); len(violations) > 0 {
		return m.fail(&domain.Failure{Reason: domain.ReasonValidation, Violations: violations})
	}
	return nil
}

// ValidateBooking lists every local constraint req breaks.
func ValidateBooking(req domain.BookingRequest, classSelected bool) []string {
	var v []string
	if req.NationalID == "" {
		v = append(v, "national ID is required")
	}
	if !classSelected || req.ClassID == "" {
		v = append(v, "a fare class must be selected")
	}
	if req.Seats < domain.MinSeats || req.Seats > domain.MaxSeats {
		v = append(v, fmt.Sprintf("seats must be between %d and %d, got %d",
			domain.MinSeats, domain.MaxSeats, req.Seats))
	}
	return v
}

// Authorize gates the network step on a bearer token.
func (m *BookingMachine) Authorize(token string, ok bool) error {
	if err := m.require("authorize", domain.StateValidating); err != nil {
		return err
	}
	if !ok || token == "" {
		return m.fail(domain.NewFailure(domain.ReasonAuthMissing, nil))
	}
	m.state = domain.StateSubmitting
	return nil
}

// TicketCreated records the order returned by a successful submission.
func (m *BookingMachine) TicketCreated(order *domain.TicketOrder) error {
	if err := m.require("ticket created", domain.StateSubmitting); err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: ticket created without an order", domain.ErrIllegalTransition)
	}
	m.state = domain.StateTicketCreated
	m.order = order
	return nil
}

// BookingFailed ends a submission that the remote side rejected or never
// answered. There is no automatic retry.
func (m *BookingMachine) BookingFailed(cause error) error {
	if err := m.require("booking failed", domain.StateSubmitting); err != nil {
		return err
	}
	return m.fail(domain.NewFailure(domain.ReasonBookingFailed, cause))
}

// BeginPaymentResolution may be (re)entered while an order is active:
// right after ticket creation, after a failed resolution, or to refresh an
// already resolved link.
func (m *BookingMachine) BeginPaymentResolution() error {
	if err := m.require("resolve payment", domain.StateTicketCreated,
		domain.StateFailed, domain.StateReadyForRedirect); err != nil {
		return err
	}
	if m.order == nil {
		return domain.ErrNoTicketOrder
	}
	m.state = domain.StateResolvingPayment
	m.failure = nil
	return nil
}

// PaymentResolved makes ps the active payment session.
func (m *BookingMachine) PaymentResolved(ps domain.PaymentSession) error {
	if err := m.require("payment resolved", domain.StateResolvingPayment); err != nil {
		return err
	}
	m.state = domain.StateReadyForRedirect
	m.payment = &ps
	return nil
}

// PaymentFailed keeps both the order and any earlier payment session so the
// caller can retry resolution without re-booking.
func (m *BookingMachine) PaymentFailed(reason domain.FailureReason, cause error) error {
	if err := m.require("payment failed", domain.StateResolvingPayment); err != nil {
		return err
	}
	if !reason.PaymentLinkFailure() && reason != domain.ReasonAuthMissing {
		return fmt.Errorf("%w: %s is not a payment failure", domain.ErrIllegalTransition, reason)
	}
	return m.fail(domain.NewFailure(reason, cause))
}

// Reset returns to Idle and forgets the order, payment session and failure.
func (m *BookingMachine) Reset() {
	m.state = domain.StateIdle
	m.order, m.payment, m.failure = nil, nil, nil
}

// IsFailure reports whether err ended an attempt in StateFailed, as opposed
// to an operational error that left the machine where it was.
func IsFailure(err error) bool {
	var f *domain.Failure
	return errors.As(err, &f)
}
