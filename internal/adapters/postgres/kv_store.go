package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/rihla/internal/core/ports"
)

// KVStore implements ports.CacheService on the kv_store table.
type KVStore struct {
	db *DB
}

var _ ports.CacheService = (*KVStore)(nil)

func NewKVStore(db *DB) *KVStore {
	return &KVStore{db: db}
}

func (r *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT value FROM kv_store
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())
	`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts value; ttlSeconds <= 0 stores it without expiry.
func (r *KVStore) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	var expiresAt *time.Time
	if ttlSeconds > 0 {
		t := time.Now().Add(time.Duration(ttlSeconds) * time.Second)
		expiresAt = &t
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO kv_store (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
	`, key, value, expiresAt)
	return err
}

func (r *KVStore) Delete(ctx context.Context, key string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

// PurgeExpired deletes rows past their expiry and returns how many.
func (r *KVStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
