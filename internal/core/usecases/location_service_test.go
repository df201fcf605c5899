package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/usecases"
)

func catalogue() []domain.Location {
	return []domain.Location{
		{ID: "1", Name: "Cairo", StationCount: 2, Stations: []domain.Station{{ID: "10", Name: "Ramses"}, {ID: "11", Name: "Abbassia"}}},
		{ID: "2", Name: "Alexandria", StationCount: 1, Stations: []domain.Station{{ID: "20", Name: "Sidi Gaber"}}},
	}
}

func TestLocationService_List_ReadThrough(t *testing.T) {
	api := &mockTransport{
		listLocationsFn: func(ctx context.Context, lang string) ([]domain.Location, error) {
			if lang != "ar" {
				t.Errorf("expected default language ar, got %s", lang)
			}
			return catalogue(), nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewLocationService(api, cache, "ar")

	for i := 0; i < 3; i++ {
		locs, err := svc.List(context.Background(), "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(locs) != 2 || locs[0].Stations[0].Name != "Ramses" {
			t.Fatalf("unexpected locations %+v", locs)
		}
	}
	if n := api.calls.Load(); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestLocationService_List_NoCache(t *testing.T) {
	api := &mockTransport{
		listLocationsFn: func(ctx context.Context, lang string) ([]domain.Location, error) {
			return catalogue(), nil
		},
	}
	svc := usecases.NewLocationService(api, nil, "en")

	if _, err := svc.List(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.List(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	if n := api.calls.Load(); n != 2 {
		t.Errorf("expected 2 upstream calls without cache, got %d", n)
	}
}

func TestLocationService_List_Error(t *testing.T) {
	api := &mockTransport{
		listLocationsFn: func(ctx context.Context, lang string) ([]domain.Location, error) {
			return nil, errors.New("upstream down")
		},
	}
	svc := usecases.NewLocationService(api, newMockCache(), "en")
	if _, err := svc.List(context.Background(), ""); err == nil {
		t.Error("expected error")
	}
}

func TestLocationService_Stations(t *testing.T) {
	api := &mockTransport{
		listLocationsFn: func(ctx context.Context, lang string) ([]domain.Location, error) {
			return catalogue(), nil
		},
	}
	svc := usecases.NewLocationService(api, nil, "en")

	matches, err := svc.Stations(context.Background(), "", "alex", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Station.ID != "20" {
		t.Errorf("unexpected matches %+v", matches)
	}
}
