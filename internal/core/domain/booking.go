package domain

// BookingState is the lifecycle position of a single reservation attempt.
type BookingState string

const (
	StateIdle             BookingState = "idle"
	StateValidating       BookingState = "validating"
	StateSubmitting       BookingState = "submitting"
	StateTicketCreated    BookingState = "ticket_created"
	StateResolvingPayment BookingState = "resolving_payment"
	StateReadyForRedirect BookingState = "ready_for_redirect"
	StateFailed           BookingState = "failed"
)

// InFlight reports whether a network step may currently be running.
func (s BookingState) InFlight() bool {
	switch s {
	case StateValidating, StateSubmitting, StateResolvingPayment:
		return true
	}
	return false
}

// FailureReason tags why a booking reached StateFailed.
type FailureReason string

const (
	ReasonValidation             FailureReason = "validation_error"
	ReasonAuthMissing            FailureReason = "auth_missing"
	ReasonBookingFailed          FailureReason = "booking_failed"
	ReasonPaymentLinkFetchFailed FailureReason = "payment_link_fetch_failed"
	ReasonPaymentLinkMissing     FailureReason = "payment_link_missing"
	ReasonDecryptionFailed       FailureReason = "decryption_failed"
)

// PaymentLinkFailure reports whether the reason leaves the ticket order
// intact so that link resolution can be retried without re-booking.
func (r FailureReason) PaymentLinkFailure() bool {
	return r == ReasonPaymentLinkFetchFailed || r == ReasonPaymentLinkMissing
}
