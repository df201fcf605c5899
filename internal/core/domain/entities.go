package domain

import (
	"time"
)

// Station is a boarding point served by the transport API.
type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location groups stations geographically (a governorate in the upstream API).
type Location struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Stations     []Station `json:"stations"`
	StationCount int       `json:"station_count"`
}

// StationMatch is an autocomplete hit: a station with the location it belongs to.
type StationMatch struct {
	LocationID   string  `json:"location_id"`
	LocationName string  `json:"location_name"`
	Station      Station `json:"station"`
}

// FareClass is a priced seating tier on a trip's transport unit.
type FareClass struct {
	ID               string  `json:"id"`
	ShortDescription string  `json:"short_description"`
	LongDescription  string  `json:"long_description,omitempty"`
	Cost             float64 `json:"cost"`
	AvailableSeats   int     `json:"available_seats"`
}

// Trip is a scheduled journey between two stations.
type Trip struct {
	ID          string      `json:"id"`
	From        Station     `json:"from"`
	To          Station     `json:"to"`
	DepartureAt time.Time   `json:"departure_at"`
	ArrivalAt   time.Time   `json:"arrival_at"`
	Distance    string      `json:"distance,omitempty"`
	Company     string      `json:"company,omitempty"`
	Classes     []FareClass `json:"classes"`
	Stops       []Station   `json:"stops,omitempty"`
}

// Class returns the fare class with the given id.
func (t *Trip) Class(id string) (FareClass, bool) {
	for _, c := range t.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return FareClass{}, false
}

// TimeOfDay is an offset from midnight used for start/finish filter bounds.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(d).Format("15:04")
}

// PriceRange is an inclusive [Min, Max] bound on a trip's cheapest fare.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r PriceRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SearchCriteria is what the user has entered in the search form and filter panel.
type SearchCriteria struct {
	FromStationID string      `json:"from_station_id"`
	ToStationID   string      `json:"to_station_id"`
	Date          string      `json:"date"` // YYYY-MM-DD
	ClassID       string      `json:"class_id,omitempty"`
	StartTime     *TimeOfDay  `json:"start_time,omitempty"`
	FinishTime    *TimeOfDay  `json:"finish_time,omitempty"`
	PriceRange    *PriceRange `json:"price_range,omitempty"`
}

// Complete reports whether origin, destination and date are all set.
// Only complete criteria may trigger a network search.
func (c SearchCriteria) Complete() bool {
	return c.FromStationID != "" && c.ToStationID != "" && c.Date != ""
}

// BookingRequest is built fresh for every submission and never persisted.
type BookingRequest struct {
	NationalID string `json:"national_id"`
	Seats      int    `json:"seats"`
	ClassID    string `json:"class_id"`
}

// Seat bounds for a single booking.
const (
	MinSeats = 1
	MaxSeats = 4
)

// TicketOrder is the server's answer to a successful ticket creation.
type TicketOrder struct {
	OrderID     string  `json:"order_id"`
	PaymentURL  string  `json:"payment_url"` // provisional reference, not yet payable
	Company     string  `json:"company,omitempty"`
	FromStation string  `json:"from_station,omitempty"`
	ToStation   string  `json:"to_station,omitempty"`
	Date        string  `json:"date,omitempty"`
	Total       float64 `json:"total"`
}

// PaymentSession is the final, browser-redirectable payment URL.
type PaymentSession struct {
	URL        string    `json:"url"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// VaultRecord is the encoded ciphertext of a cached identity number.
type VaultRecord string

// NotificationLevel classifies user-facing toasts.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a fire-and-forget message for the toast sink.
type Notification struct {
	SessionID string            `json:"session_id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	State     BookingState      `json:"state"`
	Time      time.Time         `json:"time"`
}

// Event is published to session observers on every booking transition.
type Event struct {
	SessionID       string        `json:"session_id"`
	Generation      uint64        `json:"generation"`
	State           BookingState  `json:"state"`
	Reason          FailureReason `json:"reason,omitempty"`
	PaymentURL      string        `json:"payment_url,omitempty"`
	ConfirmRedirect bool          `json:"confirm_redirect,omitempty"`
	Time            time.Time     `json:"time"`
}
