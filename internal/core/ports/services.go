package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheService is a small key-value store. It backs both the location
// cache and the persisted vault record.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; ttlSeconds <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService is the fire-and-forget toast sink.
type NotificationService interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// AuthProvider supplies the bearer token of the authenticated user.
// ok is false when the user is not authenticated.
type AuthProvider interface {
	Token(ctx context.Context) (token string, ok bool)
}

// AuthFunc adapts a function to AuthProvider.
type AuthFunc func(ctx context.Context) (string, bool)

func (f AuthFunc) Token(ctx context.Context) (string, bool) { return f(ctx) }

// CredentialCipher seals the cached national ID under a session secret.
// Decrypt reports ok == false for any record it cannot authenticate.
type CredentialCipher interface {
	Encrypt(plaintext, secret string) (domain.VaultRecord, error)
	Decrypt(record domain.VaultRecord, secret string) (plaintext string, ok bool)
}
