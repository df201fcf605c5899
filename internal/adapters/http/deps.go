package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/usecases"
)

// NotificationRelay streams a session's notifications to a listener.
type NotificationRelay interface {
	SubscribeNotifications(sessionID string, handler func(domain.Notification)) (cancel func(), err error)
}

// Pinger is a storage backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions    *usecases.SessionManager
	Locations   *usecases.LocationService
	Credentials *usecases.CredentialService
	Relay       NotificationRelay // nil disables notification relay over WebSocket
	NATS        *nats.Conn
	Storage     Pinger // nil for the in-process stores
	StorageName string
}
