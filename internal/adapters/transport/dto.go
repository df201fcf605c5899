package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/samirrijal/rihla/internal/core/domain"
)

// flexString accepts a JSON string or number; upstream ids and distances
// come in both shapes.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number or a numeric string ("120.50").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*f = flexFloat(v)
	return nil
}

// flexName accepts either a bare name or an object carrying one.
type flexName string

func (f *flexName) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*f = flexName(obj.Name)
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = flexName(s)
	return nil
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = flexTime(time.Time{})
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, string(s)); err == nil {
			*f = flexTime(t)
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", s)
}

// envelope is the {data: ...} wrapper used by every endpoint.
type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type stationDTO struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

func (s stationDTO) toDomain() domain.Station {
	return domain.Station{ID: string(s.ID), Name: s.Name}
}

type locationDTO struct {
	ID            flexString   `json:"id"`
	Name          string       `json:"name"`
	Stations      []stationDTO `json:"stations"`
	StationsCount *int         `json:"stations_count"`
}

func (l locationDTO) toDomain() domain.Location {
	loc := domain.Location{
		ID:       string(l.ID),
		Name:     l.Name,
		Stations: make([]domain.Station, 0, len(l.Stations)),
	}
	for _, s := range l.Stations {
		loc.Stations = append(loc.Stations, s.toDomain())
	}
	loc.StationCount = len(loc.Stations)
	if l.StationsCount != nil {
		loc.StationCount = *l.StationsCount
	}
	return loc
}

// decodeLocations accepts a bare array or a {data: [...]} envelope.
func decodeLocations(body []byte) ([]domain.Location, error) {
	var dtos []locationDTO
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &dtos); err != nil {
			return nil, fmt.Errorf("decode locations: %w", err)
		}
	} else {
		var env envelope[[]locationDTO]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode locations: %w", err)
		}
		dtos = env.Data
	}

	out := make([]domain.Location, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain())
	}
	return out, nil
}

type fareClassDTO struct {
	ID               flexString `json:"id"`
	ShortDescription string     `json:"short_description"`
	LongDescription  string     `json:"long_description"`
	Cost             flexFloat  `json:"cost"`
	AvailableSeats   int        `json:"available_seats"`
}

type tripDTO struct {
	ID            flexString     `json:"id"`
	FromStation   stationDTO     `json:"from_station"`
	ToStation     stationDTO     `json:"to_station"`
	DepartureTime flexTime       `json:"departure_time"`
	ArrivalTime   flexTime       `json:"arrival_time"`
	Distance      flexString     `json:"distance"`
	Company       flexName       `json:"company"`
	Classes       []fareClassDTO `json:"classes"`
	Stops         []stationDTO   `json:"stops"`
}

func (t tripDTO) toDomain() domain.Trip {
	trip := domain.Trip{
		ID:          string(t.ID),
		From:        t.FromStation.toDomain(),
		To:          t.ToStation.toDomain(),
		DepartureAt: time.Time(t.DepartureTime),
		ArrivalAt:   time.Time(t.ArrivalTime),
		Distance:    string(t.Distance),
		Company:     string(t.Company),
		Classes:     make([]domain.FareClass, 0, len(t.Classes)),
	}
	for _, c := range t.Classes {
		trip.Classes = append(trip.Classes, domain.FareClass{
			ID:               string(c.ID),
			ShortDescription: c.ShortDescription,
			LongDescription:  c.LongDescription,
			Cost:             float64(c.Cost),
			AvailableSeats:   c.AvailableSeats,
		})
	}
	for _, s := range t.Stops {
		trip.Stops = append(trip.Stops, s.toDomain())
	}
	return trip
}

type searchRequest struct {
	FromStationID string `json:"from_station_id"`
	ToStationID   string `json:"to_station_id"`
	Date          string `json:"date"`
}

type createTicketRequest struct {
	NationalID   string `json:"national_id"`
	SeatsNo      int    `json:"seats_no"`
	CoachClassID string `json:"coach_class_id"`
}

type ticketDTO struct {
	ID          flexString `json:"id"`
	OrderID     flexString `json:"order_id"`
	PaymentURL  string     `json:"payment_url"`
	Company     flexName   `json:"company"`
	FromStation flexName   `json:"from_station"`
	ToStation   flexName   `json:"to_station"`
	Date        string     `json:"date"`
	Total       flexFloat  `json:"total"`
}

func (t ticketDTO) toDomain() *domain.TicketOrder {
	id := t.OrderID
	if id == "" {
		id = t.ID
	}
	return &domain.TicketOrder{
		OrderID:     string(id),
		PaymentURL:  t.PaymentURL,
		Company:     string(t.Company),
		FromStation: string(t.FromStation),
		ToStation:   string(t.ToStation),
		Date:        t.Date,
		Total:       float64(t.Total),
	}
}

type paymentLinkDTO struct {
	URL string `json:"url"`
}
