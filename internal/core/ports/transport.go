package ports

import (
	"context"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// CreateTicketInput is the body of a ticket creation call.
type CreateTicketInput struct {
	NationalID string
	Seats      int
	ClassID    string
}

// TransportAPI is the remote bus/train booking API.
type TransportAPI interface {
	// ListLocations returns governorates with their nested stations.
	ListLocations(ctx context.Context, lang string) ([]domain.Location, error)

	// SearchTrips returns trips from one station to another on a date (YYYY-MM-DD).
	SearchTrips(ctx context.Context, fromStationID, toStationID, date string) ([]domain.Trip, error)

	// CreateTicket books seats on a trip and returns the order with its
	// provisional payment reference.
	CreateTicket(ctx context.Context, token, tripID string, in CreateTicketInput) (*domain.TicketOrder, error)

	// ResolvePaymentLink exchanges a provisional payment reference for the
	// redirectable URL. An empty string with a nil error means the upstream
	// answered successfully but without a URL.
	ResolvePaymentLink(ctx context.Context, token, provisionalURL string) (string, error)
}
