package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/rihla/internal/core/ports"
)

func TestStore_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "locations:en", []byte("[]"), 60)
	_ = s.Set(ctx, "credential:c:national_id", []byte("rec"), 0)

	now = now.Add(59 * time.Second)
	if _, err := s.Get(ctx, "locations:en"); err != nil {
		t.Errorf("entry expired early: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "locations:en"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("expected expiry, got %v", err)
	}

	now = now.Add(365 * 24 * time.Hour)
	if got, err := s.Get(ctx, "credential:c:national_id"); err != nil || string(got) != "rec" {
		t.Errorf("entry without ttl = %q, %v", got, err)
	}
}

func TestStore_CopiesValues(t *testing.T) {
	s := New()
	ctx := context.Background()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", got)
	}
	got[1] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased store: %q", again)
	}
}

func TestStore_Delete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"), 0)
	_ = s.Delete(ctx, "k")
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("expected miss after delete, got %v", err)
	}
}
