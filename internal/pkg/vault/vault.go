// Package vault encrypts a single piece of PII (the national ID) for storage
// in a client-side key-value store.
//
// The key is stretched from a session secret (the bearer token) with
// PBKDF2-HMAC-SHA256 and used with ChaCha20-Poly1305. Records are encoded as
//
//	base64( nonce[12] || ciphertext || tag[16] )
//
// The salt is fixed by default. That is acceptable here because records live
// in a same-origin, single-tenant store and the secret already changes per
// login; it is not a multi-tenant secret store. Deployments may still supply
// their own salt.
//
// The package holds no state between calls and does not persist anything.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/samirrijal/rihla/internal/core/domain"
)

const (
	// KeySize is the derived key length (256 bits).
	KeySize = chacha20poly1305.KeySize

	// MinIterations is the PBKDF2 floor; lower configured values are raised to it.
	MinIterations = 100_000

	// RecordOverhead is nonce + Poly1305 tag.
	RecordOverhead = chacha20poly1305.NonceSize + chacha20poly1305.Overhead
)

// DefaultSalt is the documented fixed salt.
var DefaultSalt = []byte("rihla.vault.salt.v1")

// recordAAD binds ciphertext to this record format.
var recordAAD = []byte("rihla.vault.national_id.v1")

// ErrEmptySecret is returned when no secret is available to derive a key.
var ErrEmptySecret = errors.New("vault: empty secret")

// Vault encrypts and decrypts vault records. The zero value is not usable;
// construct with New.
type Vault struct {
	salt       []byte
	iterations int
}

// Option configures a Vault.
type Option func(*Vault)

// WithSalt overrides DefaultSalt. Empty salts are ignored.
func WithSalt(salt []byte) Option {
	return func(v *Vault) {
		if len(salt) > 0 {
			v.salt = append([]byte(nil), salt...)
		}
	}
}

// WithIterations sets the PBKDF2 round count, never below MinIterations.
func WithIterations(n int) Option {
	return func(v *Vault) {
		if n > MinIterations {
			v.iterations = n
		}
	}
}

// New returns a Vault with the default salt and MinIterations rounds.
func New(opts ...Option) *Vault {
	v := &Vault{salt: DefaultSalt, iterations: MinIterations}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Iterations returns the effective PBKDF2 round count.
func (v *Vault) Iterations() int { return v.iterations }

func (v *Vault) deriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), v.salt, v.iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from secret. Each call uses a
// fresh random nonce, so encrypting the same input twice gives different records.
func (v *Vault) Encrypt(plaintext, secret string) (domain.VaultRecord, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	aead, err := chacha20poly1305.New(v.deriveKey(secret))
	if err != nil {
		return "", fmt.Errorf("vault: create cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize, RecordOverhead+len(plaintext))
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), recordAAD)
	return domain.VaultRecord(base64.StdEncoding.EncodeToString(sealed)), nil
}

// Decrypt opens a record produced by Encrypt. Any failure (bad encoding,
// truncation, wrong secret, tampering) yields ok == false and never a
// partial plaintext.
func (v *Vault) Decrypt(record domain.VaultRecord, secret string) (plaintext string, ok bool) {
	if secret == "" || record == "" {
		return "", false
	}

	raw, err := base64.StdEncoding.Strict().DecodeString(string(record))
	if err != nil || len(raw) < RecordOverhead {
		return "", false
	}

	aead, err := chacha20poly1305.New(v.deriveKey(secret))
	if err != nil {
		return "", false
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSize], raw[chacha20poly1305.NonceSize:]
	out, err := aead.Open(nil, nonce, ciphertext, recordAAD)
	if err != nil {
		return "", false
	}
	return string(out), true
}
