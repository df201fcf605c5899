package telemetry

// Span names for calls to the transport API.
const (
	SpanListLocations      = "transport.list_locations"
	SpanSearchTrips        = "transport.search_trips"
	SpanCreateTicket       = "transport.create_ticket"
	SpanResolvePaymentLink = "transport.resolve_payment_link"
)
