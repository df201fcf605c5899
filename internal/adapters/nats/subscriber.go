package natsadapter

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// Subscriber relays session notifications to in-process listeners.
// Messages are received on a core subscription; the JetStream stream is
// only a buffer for the publisher side.
type Subscriber struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn, subs: make(map[*nats.Subscription]struct{})}
}

// SubscribeNotifications calls handler for every notification of sessionID
// until the returned cancel func is called.
func (s *Subscriber) SubscribeNotifications(sessionID string, handler func(domain.Notification)) (func(), error) {
	sub, err := s.conn.Subscribe(NotificationSubject(sessionID), func(msg *nats.Msg) {
		var n domain.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			slog.Warn("dropping malformed notification", "subject", msg.Subject, "error", err)
			return
		}
		handler(n)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			_ = sub.Unsubscribe()
		})
	}, nil
}

// Connected reports whether the relay connection is up.
func (s *Subscriber) Connected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close unsubscribes everything and drains.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = map[*nats.Subscription]struct{}{}
	s.mu.Unlock()
	_ = s.conn.Drain()
}
