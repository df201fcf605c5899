package usecases_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
)

// --- Mock TransportAPI ---

type mockTransport struct {
	listLocationsFn func(ctx context.Context, lang string) ([]domain.Location, error)
	searchTripsFn   func(ctx context.Context, from, to, date string) ([]domain.Trip, error)
	createTicketFn  func(ctx context.Context, token, tripID string, in ports.CreateTicketInput) (*domain.TicketOrder, error)
	resolveLinkFn   func(ctx context.Context, token, provisionalURL string) (string, error)

	calls atomic.Int32
}

func (m *mockTransport) ListLocations(ctx context.Context, lang string) ([]domain.Location, error) {
	m.calls.Add(1)
	if m.listLocationsFn != nil {
		return m.listLocationsFn(ctx, lang)
	}
	return nil, nil
}

func (m *mockTransport) SearchTrips(ctx context.Context, from, to, date string) ([]domain.Trip, error) {
	m.calls.Add(1)
	if m.searchTripsFn != nil {
		return m.searchTripsFn(ctx, from, to, date)
	}
	return nil, nil
}

func (m *mockTransport) CreateTicket(ctx context.Context, token, tripID string, in ports.CreateTicketInput) (*domain.TicketOrder, error) {
	m.calls.Add(1)
	if m.createTicketFn != nil {
		return m.createTicketFn(ctx, token, tripID, in)
	}
	return &domain.TicketOrder{OrderID: "order-1", PaymentURL: "https://api.example/pay/1"}, nil
}

func (m *mockTransport) ResolvePaymentLink(ctx context.Context, token, provisionalURL string) (string, error) {
	m.calls.Add(1)
	if m.resolveLinkFn != nil {
		return m.resolveLinkFn(ctx, token, provisionalURL)
	}
	return "https://pay.example/abc", nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes int
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, key)
	return nil
}

// --- Mock NotificationService ---

type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (m *mockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) levels() []domain.NotificationLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.NotificationLevel, len(m.sent))
	for i, n := range m.sent {
		out[i] = n.Level
	}
	return out
}

// --- Fixtures ---

func tokenAuth(token string) ports.AuthProvider {
	return ports.AuthFunc(func(ctx context.Context) (string, bool) {
		return token, token != ""
	})
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 10, hour, minute, 0, 0, time.UTC)
}

func trip(id string, dep, arr time.Time, costs ...float64) domain.Trip {
	t := domain.Trip{
		ID:          id,
		From:        domain.Station{ID: "1", Name: "Cairo"},
		To:          domain.Station{ID: "2", Name: "Alexandria"},
		DepartureAt: dep,
		ArrivalAt:   arr,
	}
	for i, c := range costs {
		t.Classes = append(t.Classes, domain.FareClass{
			ID:               string(rune('A' + i)),
			ShortDescription: "class",
			Cost:             c,
			AvailableSeats:   10,
		})
	}
	return t
}

func ptr[T any](v T) *T { return &v }
