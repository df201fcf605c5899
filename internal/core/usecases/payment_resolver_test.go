package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/usecases"
)

func TestPaymentResolver_Success(t *testing.T) {
	api := &mockTransport{
		resolveLinkFn: func(ctx context.Context, token, provisionalURL string) (string, error) {
			if token != "tok" {
				t.Errorf("expected token tok, got %s", token)
			}
			if provisionalURL != "https://api.example/pay/1" {
				t.Errorf("unexpected provisional url %s", provisionalURL)
			}
			return "https://pay.example/abc", nil
		},
	}

	ps, err := usecases.NewPaymentResolver(api).Resolve(context.Background(), "https://api.example/pay/1", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.URL != "https://pay.example/abc" {
		t.Errorf("url = %s", ps.URL)
	}
	if ps.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not set")
	}
}

func TestPaymentResolver_Failures(t *testing.T) {
	tests := []struct {
		name        string
		provisional string
		fn          func(ctx context.Context, token, provisionalURL string) (string, error)
		want        error
	}{
		{"transport error", "https://api.example/pay/1",
			func(context.Context, string, string) (string, error) { return "", errors.New("502") },
			domain.ErrPaymentLinkFetchFailed},
		{"missing url", "https://api.example/pay/1",
			func(context.Context, string, string) (string, error) { return "", nil },
			domain.ErrPaymentLinkMissing},
		{"no provisional reference", "", nil, domain.ErrPaymentLinkMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockTransport{resolveLinkFn: tt.fn}
			_, err := usecases.NewPaymentResolver(api).Resolve(context.Background(), tt.provisional, "tok")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPaymentResolver_Reinvocable(t *testing.T) {
	calls := 0
	api := &mockTransport{
		resolveLinkFn: func(context.Context, string, string) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("timeout")
			}
			return "https://pay.example/abc", nil
		},
	}
	r := usecases.NewPaymentResolver(api)

	if _, err := r.Resolve(context.Background(), "p", "tok"); err == nil {
		t.Fatal("expected first call to fail")
	}
	ps, err := r.Resolve(context.Background(), "p", "tok")
	if err != nil || ps.URL != "https://pay.example/abc" {
		t.Errorf("retry = %+v, %v", ps, err)
	}
}
