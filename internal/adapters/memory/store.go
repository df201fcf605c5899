// Package memory is the default in-process key-value store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/rihla/internal/core/ports"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store implements ports.CacheService with a map.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

var _ ports.CacheService = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string]entry), now: time.Now}
}

// Get retrieves a value by key. Missing or expired keys return ports.ErrCacheMiss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ports.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.data[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, ports.ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value; ttlSeconds <= 0 keeps it until deleted.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttlSeconds > 0 {
		e.expiresAt = s.now().Add(time.Duration(ttlSeconds) * time.Second)
	}
	s.mu.Lock()
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
