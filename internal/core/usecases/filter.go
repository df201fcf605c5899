package usecases

import (
	"strings"
	"time"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// FilterTrips narrows trips to those matching the time window and price range
// in c. It is pure and stable: matching trips keep their input order, and
// filtering an already filtered slice with the same criteria is a no-op.
//
// Route, date and class fields of c are ignored here; they shape the remote
// search, not the local view.
func FilterTrips(trips []domain.Trip, c domain.SearchCriteria) []domain.Trip {
	out := make([]domain.Trip, 0, len(trips))
	for _, t := range trips {
		if tripMatches(t, c) {
			out = append(out, t)
		}
	}
	return out
}

func tripMatches(t domain.Trip, c domain.SearchCriteria) bool {
	day := midnight(t.DepartureAt)

	if c.StartTime != nil && offset(day, t.DepartureAt) < time.Duration(*c.StartTime) {
		return false
	}
	if c.FinishTime != nil && offset(day, t.ArrivalAt) > time.Duration(*c.FinishTime) {
		return false
	}
	if c.PriceRange != nil {
		cheapest, ok := CheapestFare(t)
		if !ok || !c.PriceRange.Contains(cheapest) {
			return false
		}
	}
	return true
}

// midnight returns the start of the day ts falls on, in ts's own location.
func midnight(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
}

// offset is measured from the departure day, so an arrival after midnight
// compares as more than 24h.
func offset(day, ts time.Time) time.Duration {
	return ts.Sub(day)
}

// CheapestFare returns the lowest fare-class cost on t. ok is false when the
// trip offers no classes.
func CheapestFare(t domain.Trip) (cost float64, ok bool) {
	for i, c := range t.Classes {
		if i == 0 || c.Cost < cost {
			cost = c.Cost
		}
	}
	return cost, len(t.Classes) > 0
}

// DerivePriceBounds spans the cheapest fare of every priced trip.
// ok is false when no trip has a fare class.
func DerivePriceBounds(trips []domain.Trip) (domain.PriceRange, bool) {
	var (
		r     domain.PriceRange
		found bool
	)
	for _, t := range trips {
		cheapest, ok := CheapestFare(t)
		if !ok {
			continue
		}
		if !found {
			r = domain.PriceRange{Min: cheapest, Max: cheapest}
			found = true
			continue
		}
		if cheapest < r.Min {
			r.Min = cheapest
		}
		if cheapest > r.Max {
			r.Max = cheapest
		}
	}
	return r, found
}

// PriceBounds remembers the last derived price range across result sets.
// It is not safe for concurrent use; Session guards it with its own lock.
type PriceBounds struct {
	derived domain.PriceRange
	known   bool
}

// Observe recomputes the derived range from a new result set. A set without
// any priced trip leaves the previous range in place.
func (b *PriceBounds) Observe(trips []domain.Trip) {
	if r, ok := DerivePriceBounds(trips); ok {
		b.derived, b.known = r, true
	}
}

// Derived returns the last derived range.
func (b *PriceBounds) Derived() (domain.PriceRange, bool) {
	return b.derived, b.known
}

// Effective returns the user's explicit range when set, else the derived one.
func (b *PriceBounds) Effective(c domain.SearchCriteria) (domain.PriceRange, bool) {
	if c.PriceRange != nil {
		return *c.PriceRange, true
	}
	return b.Derived()
}

// MatchStations is the case-insensitive lookup behind the origin and
// destination pickers. Stations whose own name or location name starts with
// query come first, then those that merely contain it; each group keeps the
// catalogue order. An empty query lists every station. limit <= 0 means no limit.
func MatchStations(locations []domain.Location, query string, limit int) []domain.StationMatch {
	q := strings.ToLower(strings.TrimSpace(query))

	var prefix, contains []domain.StationMatch
	for _, loc := range locations {
		locName := strings.ToLower(loc.Name)
		for _, st := range loc.Stations {
			m := domain.StationMatch{LocationID: loc.ID, LocationName: loc.Name, Station: st}
			name := strings.ToLower(st.Name)
			switch {
			case q == "" || strings.HasPrefix(name, q) || strings.HasPrefix(locName, q):
				prefix = append(prefix, m)
			case strings.Contains(name, q) || strings.Contains(locName, q):
				contains = append(contains, m)
			}
		}
	}

	out := append(prefix, contains...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
