package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

// LocationService serves the governorate/station catalogue.
type LocationService struct {
	api   ports.TransportAPI
	cache ports.CacheService
	lang  string
}

// NewLocationService creates a new LocationService. defaultLang is used when
// a caller does not ask for a language.
func NewLocationService(api ports.TransportAPI, cache ports.CacheService, defaultLang string) *LocationService {
	return &LocationService{api: api, cache: cache, lang: defaultLang}
}

// List returns all locations with their stations.
func (s *LocationService) List(ctx context.Context, lang string) ([]domain.Location, error) {
	if lang == "" {
		lang = s.lang
	}

	// Try cache
	cacheKey := "locations:" + lang
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var locs []domain.Location
			if err := json.Unmarshal(data, &locs); err == nil {
				metrics.CacheHits.WithLabelValues("locations").Inc()
				return locs, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("locations").Inc()
	}

	locs, err := s.api.ListLocations(ctx, lang)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	// Cache for 1 hour (the catalogue rarely changes)
	if s.cache != nil {
		if data, err := json.Marshal(locs); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}

	return locs, nil
}

// Stations returns stations matching query for the origin/destination pickers.
func (s *LocationService) Stations(ctx context.Context, lang, query string, limit int) ([]domain.StationMatch, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	locs, err := s.List(ctx, lang)
	if err != nil {
		return nil, err
	}
	return MatchStations(locs, query, limit), nil
}
