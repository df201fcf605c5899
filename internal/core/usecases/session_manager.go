package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

// SessionManager holds the live sessions of this process.
type SessionManager struct {
	deps    SessionDeps
	cfg     SessionConfig
	idleTTL time.Duration
	newID   func() string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates a new SessionManager. Sessions unused for
// longer than idleTTL are disposed by Sweep.
func NewSessionManager(deps SessionDeps, cfg SessionConfig, idleTTL time.Duration) *SessionManager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &SessionManager{
		deps:     deps,
		cfg:      cfg,
		idleTTL:  idleTTL,
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *SessionManager) Create(ctx context.Context) *Session {
	s := NewSession(m.newID(), m.deps, m.cfg)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	m.deps.Logger.DebugContext(ctx, "session created", "session_id", s.ID())
	return s
}

// Get returns a live session.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Dispose removes and disposes a session.
func (m *SessionManager) Dispose(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Dispose()
	metrics.ActiveSessions.Set(float64(n))
	return nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep disposes sessions idle since before now-idleTTL and returns how many.
func (m *SessionManager) Sweep(now time.Time) int {
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Dispose()
	}
	metrics.ActiveSessions.Set(float64(n))
	return len(expired)
}

// Run sweeps on every interval tick until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.deps.Now()); n > 0 {
				m.deps.Logger.Info("idle sessions swept", "count", n)
			}
		}
	}
}

// Close disposes every session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Dispose()
	}
	metrics.ActiveSessions.Set(0)
}
