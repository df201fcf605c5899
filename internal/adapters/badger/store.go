// Package badger is an embedded on-disk key-value store for single-node
// deployments that should keep the vault record across restarts without
// running Valkey or Postgres.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/samirrijal/rihla/internal/core/ports"
)

// Store implements ports.CacheService on badger.
type Store struct {
	db *badger.DB
}

var _ ports.CacheService = (*Store)(nil)

// Open opens (or creates) a store at path.
func Open(path string) (*Store, error) {
	return open(badger.DefaultOptions(path).WithLogger(nil))
}

// OpenInMemory opens a store that lives only in memory.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &Store{db: db}, nil
}

// Get retrieves a value by key. Missing or expired keys return ports.ErrCacheMiss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ports.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores a value; ttlSeconds <= 0 keeps it until deleted.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttlSeconds > 0 {
			e = e.WithTTL(time.Duration(ttlSeconds) * time.Second)
		}
		return txn.SetEntry(e)
	})
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
