package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/core/usecases"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

func TestListLocations_Envelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/governorates" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Accept-Language"); got != "ar" {
			t.Errorf("Accept-Language = %q", got)
		}
		io.WriteString(w, `{"data":[{"id":1,"name":"Cairo","stations":[{"id":10,"name":"Ramses"},{"id":"11","name":"Giza"}]}]}`)
	})

	locs, err := c.ListLocations(context.Background(), "ar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(locs) != 1 || locs[0].ID != "1" || locs[0].StationCount != 2 {
		t.Fatalf("locations = %+v", locs)
	}
	if locs[0].Stations[0].ID != "10" || locs[0].Stations[1].ID != "11" {
		t.Errorf("station ids = %+v", locs[0].Stations)
	}
}

func TestListLocations_BareArray(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"2","name":"Alexandria","stations":[],"stations_count":7}]`)
	})

	locs, err := c.ListLocations(context.Background(), "en")
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 1 || locs[0].StationCount != 7 {
		t.Errorf("locations = %+v", locs)
	}
}

func TestSearchTrips(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["from_station_id"] != "10" || body["to_station_id"] != "20" || body["date"] != "2024-05-10" {
			t.Errorf("body = %v", body)
		}
		io.WriteString(w, `{"data":[{
			"id": 501,
			"from_station": {"id": 10, "name": "Ramses"},
			"to_station": {"id": 20, "name": "Sidi Gaber"},
			"departure_time": "2024-05-10 08:00:00",
			"arrival_time": "2024-05-10T11:30:00Z",
			"distance": 220,
			"company": {"name": "GoBus"},
			"classes": [{"id": 3, "short_description": "VIP", "cost": "150.5", "available_seats": 4}]
		}]}`)
	})

	trips, err := c.SearchTrips(context.Background(), "10", "20", "2024-05-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(trips))
	}
	tr := trips[0]
	if tr.ID != "501" || tr.From.Name != "Ramses" || tr.Company != "GoBus" || tr.Distance != "220" {
		t.Errorf("trip = %+v", tr)
	}
	if tr.DepartureAt.Hour() != 8 || tr.ArrivalAt.Minute() != 30 {
		t.Errorf("times = %v / %v", tr.DepartureAt, tr.ArrivalAt)
	}
	if len(tr.Classes) != 1 || tr.Classes[0].ID != "3" || tr.Classes[0].Cost != 150.5 {
		t.Errorf("classes = %+v", tr.Classes)
	}
}

func TestCreateTicket(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trips/501/create-ticket" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var body createTicketRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body != (createTicketRequest{NationalID: "29801011234567", SeatsNo: 2, CoachClassID: "3"}) {
			t.Errorf("body = %+v", body)
		}
		io.WriteString(w, `{"data":{"id":9001,"payment_url":"https://api.example/pay/9001","total":301}}`)
	})

	order, err := c.CreateTicket(context.Background(), "tok", "501", ports.CreateTicketInput{
		NationalID: "29801011234567", Seats: 2, ClassID: "3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.OrderID != "9001" || order.PaymentURL != "https://api.example/pay/9001" || order.Total != 301 {
		t.Errorf("order = %+v", order)
	}
}

func TestCreateTicket_StatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"no seats left"}`)
	})

	_, err := c.CreateTicket(context.Background(), "tok", "1", ports.CreateTicketInput{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusUnprocessableEntity || se.Message != "no seats left" {
		t.Errorf("status error = %+v", se)
	}
}

func TestResolvePaymentLink(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"present", `{"data":{"url":"https://pay.example/abc"}}`, "https://pay.example/abc"},
		{"missing url", `{"data":{}}`, ""},
		{"missing data", `{}`, ""},
		{"null data", `{"data":null}`, ""},
		{"not json", `<html>ok</html>`, ""},
		{"data not an object", `{"data":"pending"}`, ""},
		{"url not a string", `{"data":{"url":123}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/payments/77" {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("Authorization = %q", got)
				}
				io.WriteString(w, tt.body)
			})

			got, err := c.ResolvePaymentLink(context.Background(), "tok", "/payments/77")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("url = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolvePaymentLink_FailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not json", http.StatusOK, `<html>ok</html>`, domain.ErrPaymentLinkMissing},
		{"data not an object", http.StatusOK, `{"data":"pending"}`, domain.ErrPaymentLinkMissing},
		{"url not a string", http.StatusOK, `{"data":{"url":123}}`, domain.ErrPaymentLinkMissing},
		{"upstream error", http.StatusBadGateway, `{"message":"down"}`, domain.ErrPaymentLinkFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := usecases.NewPaymentResolver(c).Resolve(context.Background(), "/payments/77", "tok")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDo_ContextDeadline(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		io.WriteString(w, `{"data":[]}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.SearchTrips(ctx, "1", "2", "2024-05-10"); err == nil {
		t.Error("expected deadline error")
	}
}

func TestDo_CancelledContext(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ListLocations(ctx, "en"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
