package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

// CredentialService persists the booking form's national ID as an
// encrypted vault record. Plaintext never reaches the store.
type CredentialService struct {
	cipher ports.CredentialCipher
	store  ports.CacheService
	log    *slog.Logger
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(cipher ports.CredentialCipher, store ports.CacheService) *CredentialService {
	return &CredentialService{cipher: cipher, store: store, log: slog.Default()}
}

// CredentialKey is the store key for owner's record.
func CredentialKey(owner string) string {
	return "credential:" + owner + ":national_id"
}

// Save encrypts nationalID under secret and stores it without expiry.
func (s *CredentialService) Save(ctx context.Context, owner, nationalID, secret string) error {
	if owner == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if nationalID == "" {
		return fmt.Errorf("%w: national ID is required", domain.ErrValidation)
	}
	if secret == "" {
		return domain.ErrAuthMissing
	}

	record, err := s.cipher.Encrypt(nationalID, secret)
	if err != nil {
		metrics.VaultOps.WithLabelValues("encrypt", "error").Inc()
		return fmt.Errorf("encrypt credential: %w", err)
	}
	metrics.VaultOps.WithLabelValues("encrypt", "ok").Inc()

	if err := s.store.Set(ctx, CredentialKey(owner), []byte(record), 0); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Restore returns the cached national ID. ok is false when nothing usable is
// cached. A record that no longer decrypts (new token, corruption) is deleted
// and reported as absent; it is never an error.
func (s *CredentialService) Restore(ctx context.Context, owner, secret string) (string, bool, error) {
	if owner == "" || secret == "" {
		return "", false, nil
	}

	key := CredentialKey(owner)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, ports.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load credential: %w", err)
	}

	plaintext, ok := s.cipher.Decrypt(domain.VaultRecord(data), secret)
	if !ok {
		metrics.VaultOps.WithLabelValues("decrypt", "discarded").Inc()
		s.log.WarnContext(ctx, "discarding undecryptable credential record",
			"error", domain.ErrDecryptionFailed)
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.WarnContext(ctx, "delete credential record", "error", err)
		}
		return "", false, nil
	}

	metrics.VaultOps.WithLabelValues("decrypt", "ok").Inc()
	return plaintext, true, nil
}

// Forget removes owner's record.
func (s *CredentialService) Forget(ctx context.Context, owner string) error {
	if owner == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	if err := s.store.Delete(ctx, CredentialKey(owner)); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
