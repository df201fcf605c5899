package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/rihla/internal/adapters/http"
	"github.com/samirrijal/rihla/internal/adapters/memory"
	"github.com/samirrijal/rihla/internal/adapters/transport"
	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/core/usecases"
	"github.com/samirrijal/rihla/internal/pkg/vault"
)

// ---- Mock transport ----

type mockTransport struct {
	listFn    func(ctx context.Context, lang string) ([]domain.Location, error)
	searchFn  func(ctx context.Context, from, to, date string) ([]domain.Trip, error)
	createFn  func(ctx context.Context, token, tripID string, in ports.CreateTicketInput) (*domain.TicketOrder, error)
	resolveFn func(ctx context.Context, token, provisional string) (string, error)

	searches atomic.Int32
	creates  atomic.Int32
}

func (m *mockTransport) ListLocations(ctx context.Context, lang string) ([]domain.Location, error) {
	if m.listFn != nil {
		return m.listFn(ctx, lang)
	}
	return nil, nil
}

func (m *mockTransport) SearchTrips(ctx context.Context, from, to, date string) ([]domain.Trip, error) {
	m.searches.Add(1)
	if m.searchFn != nil {
		return m.searchFn(ctx, from, to, date)
	}
	return sampleTrips(), nil
}

func (m *mockTransport) CreateTicket(ctx context.Context, token, tripID string, in ports.CreateTicketInput) (*domain.TicketOrder, error) {
	m.creates.Add(1)
	if m.createFn != nil {
		return m.createFn(ctx, token, tripID, in)
	}
	return &domain.TicketOrder{OrderID: "order-1", PaymentURL: "https://api.example/pay/1", Total: 50}, nil
}

func (m *mockTransport) ResolvePaymentLink(ctx context.Context, token, provisional string) (string, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token, provisional)
	}
	return "https://pay.example/abc", nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// ---- Test helpers ----

func sampleTrips() []domain.Trip {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	mk := func(id string, hour int, cost float64) domain.Trip {
		return domain.Trip{
			ID:          id,
			From:        domain.Station{ID: "1", Name: "Cairo"},
			To:          domain.Station{ID: "2", Name: "Alexandria"},
			DepartureAt: day.Add(time.Duration(hour) * time.Hour),
			ArrivalAt:   day.Add(time.Duration(hour+3) * time.Hour),
			Classes:     []domain.FareClass{{ID: "A", ShortDescription: "Economy", Cost: cost, AvailableSeats: 10}},
		}
	}
	return []domain.Trip{mk("t1", 6, 50), mk("t2", 12, 80), mk("t3", 20, 120)}
}

func sampleLocations() []domain.Location {
	return []domain.Location{
		{ID: "10", Name: "Cairo", Stations: []domain.Station{{ID: "1", Name: "Ramses"}, {ID: "3", Name: "Abbassia"}}},
		{ID: "20", Name: "Alexandria", Stations: []domain.Station{{ID: "2", Name: "Sidi Gaber"}, {ID: "4", Name: "Moharam Bek"}}},
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(api *mockTransport, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	store := memory.New()
	d := &handler.Dependencies{
		Sessions: usecases.NewSessionManager(usecases.SessionDeps{
			API:  api,
			Auth: handler.AuthProvider(),
		}, usecases.DefaultSessionConfig(), time.Hour),
		Locations:   usecases.NewLocationService(api, store, "ar"),
		Credentials: usecases.NewCredentialService(vault.New(), store),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

type header struct{ key, value string }

func bearer(token string) header { return header{fiber.HeaderAuthorization, "Bearer " + token} }
func client(id string) header    { return header{handler.ClientIDHeader, id} }

func do(t *testing.T, app *fiber.App, method, path string, body interface{}, headers ...header) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := do(t, app, "POST", "/v1/sessions", nil)
	if resp.StatusCode != 201 {
		t.Fatalf("create session: %d", resp.StatusCode)
	}
	return decode[usecases.Snapshot](t, resp).ID
}

// searchAndSelect leaves the session with t1/A selected.
func searchAndSelect(t *testing.T, app *fiber.App, id string) {
	t.Helper()
	resp := do(t, app, "POST", "/v1/sessions/"+id+"/search", map[string]string{
		"from_station_id": "1", "to_station_id": "2", "date": "2025-03-14",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("search: %d", resp.StatusCode)
	}
	resp = do(t, app, "POST", "/v1/sessions/"+id+"/selection", map[string]string{"trip_id": "t1", "class_id": "A"})
	if resp.StatusCode != 200 {
		t.Fatalf("selection: %d", resp.StatusCode)
	}
}

// ---- Catalogue ----

func TestListLocations_Success(t *testing.T) {
	var gotLang string
	api := &mockTransport{listFn: func(ctx context.Context, lang string) ([]domain.Location, error) {
		gotLang = lang
		return sampleLocations(), nil
	}}
	app := setupApp(makeDeps(api))

	resp := do(t, app, "GET", "/v1/locations", nil, header{"Accept-Language", "en-US,en;q=0.9"})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.HasPrefix(cc, "public") {
		t.Errorf("Cache-Control = %q", cc)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("expected ETag on cacheable response")
	}
	locs := decode[[]domain.Location](t, resp)
	if len(locs) != 2 {
		t.Errorf("expected 2 locations, got %d", len(locs))
	}
	if gotLang != "en" {
		t.Errorf("lang = %q, want en", gotLang)
	}
}

func TestListLocations_UpstreamError(t *testing.T) {
	api := &mockTransport{listFn: func(context.Context, string) ([]domain.Location, error) {
		return nil, &transport.StatusError{StatusCode: 503, Message: "maintenance"}
	}}
	app := setupApp(makeDeps(api))

	resp := do(t, app, "GET", "/v1/locations", nil)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if apiErr := decode[handler.APIError](t, resp); apiErr.Code != "bad_gateway" {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestStations_PrefixFirst(t *testing.T) {
	api := &mockTransport{listFn: func(context.Context, string) ([]domain.Location, error) {
		return sampleLocations(), nil
	}}
	app := setupApp(makeDeps(api))

	resp := do(t, app, "GET", "/v1/stations?q=S", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	matches := decode[[]domain.StationMatch](t, resp)
	var names []string
	for _, m := range matches {
		names = append(names, m.Station.Name)
	}
	want := []string{"Sidi Gaber", "Ramses", "Abbassia"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("matches = %v, want %v", names, want)
	}
}

// ---- Sessions ----

func TestSessionLifecycle(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	id := createSession(t, app)

	resp := do(t, app, "GET", "/v1/sessions/"+id, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get: %d", resp.StatusCode)
	}
	if snap := decode[usecases.Snapshot](t, resp); snap.State != domain.StateIdle {
		t.Errorf("state = %s", snap.State)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("Cache-Control = %q", cc)
	}

	if resp := do(t, app, "DELETE", "/v1/sessions/"+id, nil); resp.StatusCode != 204 {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if resp := do(t, app, "GET", "/v1/sessions/"+id, nil); resp.StatusCode != 404 {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
}

func TestSearch_IncompleteCriteriaIsNoop(t *testing.T) {
	api := &mockTransport{}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/search", map[string]string{"from_station_id": "1", "date": "2025-03-14"})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decode[struct {
		Searched bool `json:"searched"`
	}](t, resp)
	if out.Searched {
		t.Error("incomplete criteria should not search")
	}
	if n := api.searches.Load(); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestTrips_PaginationAndBounds(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "GET", "/v1/sessions/"+id+"/trips?limit=2", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("Link = %q", link)
	}
	page := decode[struct {
		Data        []domain.Trip      `json:"data"`
		Pagination  handler.Pagination `json:"pagination"`
		PriceBounds *domain.PriceRange `json:"price_bounds"`
	}](t, resp)
	if len(page.Data) != 2 || page.Pagination.Total != 3 {
		t.Errorf("page = %d trips of %d", len(page.Data), page.Pagination.Total)
	}
	if page.PriceBounds == nil || page.PriceBounds.Min != 50 || page.PriceBounds.Max != 120 {
		t.Errorf("price bounds = %+v", page.PriceBounds)
	}
}

func TestFilters(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "PUT", "/v1/sessions/"+id+"/filters", map[string]interface{}{
		"start_time": "10:00",
		"price":      map[string]float64{"min": 60, "max": 100},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if snap := decode[usecases.Snapshot](t, resp); snap.TripCount != 1 {
		t.Errorf("trip count = %d, want 1", snap.TripCount)
	}

	if resp := do(t, app, "PUT", "/v1/sessions/"+id+"/filters", map[string]string{"start_time": "25h"}); resp.StatusCode != 400 {
		t.Errorf("bad time: %d", resp.StatusCode)
	}
	resp = do(t, app, "PUT", "/v1/sessions/"+id+"/filters", map[string]interface{}{
		"price": map[string]float64{"min": 100, "max": 10},
	})
	if resp.StatusCode != 400 {
		t.Errorf("inverted price range: %d", resp.StatusCode)
	}
}

func TestSelection_UnknownTrip(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	id := createSession(t, app)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/selection", map[string]string{"trip_id": "nope"})
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Booking ----

func TestBook_ReadyForRedirect(t *testing.T) {
	var gotToken string
	api := &mockTransport{resolveFn: func(ctx context.Context, token, provisional string) (string, error) {
		gotToken = token
		return "https://pay.example/abc", nil
	}}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/book",
		map[string]interface{}{"national_id": "29001011234567", "seats": 2}, bearer("tok"))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	snap := decode[usecases.Snapshot](t, resp)
	if snap.State != domain.StateReadyForRedirect {
		t.Fatalf("state = %s (%s)", snap.State, snap.LastError)
	}
	if snap.Payment == nil || snap.Payment.URL != "https://pay.example/abc" {
		t.Errorf("payment = %+v", snap.Payment)
	}
	if gotToken != "tok" {
		t.Errorf("resolver token = %q", gotToken)
	}
}

func TestBook_NoTokenFailsWithoutNetwork(t *testing.T) {
	api := &mockTransport{}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/book", map[string]interface{}{"national_id": "29001011234567", "seats": 1})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	snap := decode[usecases.Snapshot](t, resp)
	if snap.State != domain.StateFailed || snap.Reason != domain.ReasonAuthMissing {
		t.Errorf("state = %s/%s", snap.State, snap.Reason)
	}
	if n := api.creates.Load(); n != 0 {
		t.Errorf("expected no ticket calls, got %d", n)
	}
}

func TestBook_ValidationViolations(t *testing.T) {
	api := &mockTransport{}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/book", map[string]interface{}{"seats": 9}, bearer("tok"))
	snap := decode[usecases.Snapshot](t, resp)
	if snap.Reason != domain.ReasonValidation {
		t.Fatalf("reason = %s", snap.Reason)
	}
	if len(snap.Violations) != 2 {
		t.Errorf("violations = %v", snap.Violations)
	}
	if n := api.creates.Load(); n != 0 {
		t.Errorf("expected no ticket calls, got %d", n)
	}
}

func TestBook_MissingLinkThenRetry(t *testing.T) {
	var calls atomic.Int32
	api := &mockTransport{resolveFn: func(context.Context, string, string) (string, error) {
		if calls.Add(1) == 1 {
			return "", nil
		}
		return "https://pay.example/abc", nil
	}}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/book",
		map[string]interface{}{"national_id": "29001011234567", "seats": 1}, bearer("tok"))
	snap := decode[usecases.Snapshot](t, resp)
	if snap.Reason != domain.ReasonPaymentLinkMissing || snap.Order == nil {
		t.Fatalf("after book: %s/%s order=%v", snap.State, snap.Reason, snap.Order)
	}

	resp = do(t, app, "POST", "/v1/sessions/"+id+"/payment", nil, bearer("tok"))
	snap = decode[usecases.Snapshot](t, resp)
	if snap.State != domain.StateReadyForRedirect {
		t.Errorf("after retry: %s", snap.State)
	}
	if n := api.creates.Load(); n != 1 {
		t.Errorf("retry must not re-book, got %d ticket calls", n)
	}
}

func TestPayment_NoOrderConflict(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	id := createSession(t, app)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/payment", nil, bearer("tok"))
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestBook_UpstreamFailure(t *testing.T) {
	api := &mockTransport{createFn: func(context.Context, string, string, ports.CreateTicketInput) (*domain.TicketOrder, error) {
		return nil, errors.New("connection reset")
	}}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)
	searchAndSelect(t, app, id)

	resp := do(t, app, "POST", "/v1/sessions/"+id+"/book",
		map[string]interface{}{"national_id": "29001011234567", "seats": 1}, bearer("tok"))
	snap := decode[usecases.Snapshot](t, resp)
	if snap.Reason != domain.ReasonBookingFailed {
		t.Errorf("reason = %s", snap.Reason)
	}

	resp = do(t, app, "POST", "/v1/sessions/"+id+"/reset", nil)
	if snap := decode[usecases.Snapshot](t, resp); snap.State != domain.StateIdle || snap.Reason != "" {
		t.Errorf("after reset: %s/%s", snap.State, snap.Reason)
	}
}

// ---- Credentials ----

func TestCredentials_RoundTrip(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))

	resp := do(t, app, "PUT", "/v1/credentials", map[string]string{"national_id": "29001011234567"}, client("c1"), bearer("tok"))
	if resp.StatusCode != 204 {
		t.Fatalf("put: %d", resp.StatusCode)
	}

	resp = do(t, app, "GET", "/v1/credentials", nil, client("c1"), bearer("tok"))
	if resp.StatusCode != 200 {
		t.Fatalf("get: %d", resp.StatusCode)
	}
	got := decode[map[string]string](t, resp)
	if got["national_id"] != "29001011234567" {
		t.Errorf("national_id = %q", got["national_id"])
	}

	// A new login cannot read the old record, and the record is dropped.
	if resp := do(t, app, "GET", "/v1/credentials", nil, client("c1"), bearer("other")); resp.StatusCode != 404 {
		t.Errorf("get with other token: %d", resp.StatusCode)
	}
	if resp := do(t, app, "GET", "/v1/credentials", nil, client("c1"), bearer("tok")); resp.StatusCode != 404 {
		t.Errorf("record should be gone after failed decrypt: %d", resp.StatusCode)
	}

	if resp := do(t, app, "DELETE", "/v1/credentials", nil, client("c1")); resp.StatusCode != 204 {
		t.Errorf("delete: %d", resp.StatusCode)
	}
}

func TestCredentials_RequiresClientAndToken(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))

	if resp := do(t, app, "GET", "/v1/credentials", nil, bearer("tok")); resp.StatusCode != 400 {
		t.Errorf("missing client id: %d", resp.StatusCode)
	}
	if resp := do(t, app, "GET", "/v1/credentials", nil, client("c1")); resp.StatusCode != 401 {
		t.Errorf("missing token: %d", resp.StatusCode)
	}
	resp := do(t, app, "PUT", "/v1/credentials", map[string]string{"national_id": ""}, client("c1"), bearer("tok"))
	if resp.StatusCode != 400 {
		t.Errorf("empty national id: %d", resp.StatusCode)
	}
}

func TestBook_RestoresStoredNationalID(t *testing.T) {
	var gotID string
	api := &mockTransport{createFn: func(_ context.Context, _ string, _ string, in ports.CreateTicketInput) (*domain.TicketOrder, error) {
		gotID = in.NationalID
		return &domain.TicketOrder{OrderID: "order-1", PaymentURL: "https://api.example/pay/1"}, nil
	}}
	app := setupApp(makeDeps(api))
	do(t, app, "PUT", "/v1/credentials", map[string]string{"national_id": "29001011234567"}, client("c1"), bearer("tok"))

	id := createSession(t, app)
	searchAndSelect(t, app, id)
	resp := do(t, app, "POST", "/v1/sessions/"+id+"/book", map[string]interface{}{"seats": 1}, client("c1"), bearer("tok"))
	if snap := decode[usecases.Snapshot](t, resp); snap.State != domain.StateReadyForRedirect {
		t.Fatalf("state = %s/%s", snap.State, snap.Reason)
	}
	if gotID != "29001011234567" {
		t.Errorf("ticket national id = %q", gotID)
	}
}

// ---- GraphQL ----

func TestGraphQL_SessionAndStations(t *testing.T) {
	api := &mockTransport{listFn: func(context.Context, string) ([]domain.Location, error) {
		return sampleLocations(), nil
	}}
	app := setupApp(makeDeps(api))
	id := createSession(t, app)

	resp := do(t, app, "POST", "/graphql", map[string]interface{}{
		"query":     `query($id: String!) { session(id: $id) { id state } stations(query: "sid") { location_name station { name } } }`,
		"variables": map[string]string{"id": id},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	out := decode[struct {
		Data struct {
			Session struct {
				ID    string `json:"id"`
				State string `json:"state"`
			} `json:"session"`
			Stations []struct {
				LocationName string `json:"location_name"`
				Station      struct {
					Name string `json:"name"`
				} `json:"station"`
			} `json:"stations"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}](t, resp)
	if len(out.Errors) > 0 {
		t.Fatalf("graphql errors: %v", out.Errors)
	}
	if out.Data.Session.ID != id || out.Data.Session.State != "idle" {
		t.Errorf("session = %+v", out.Data.Session)
	}
	if len(out.Data.Stations) != 1 || out.Data.Stations[0].Station.Name != "Sidi Gaber" {
		t.Errorf("stations = %+v", out.Data.Stations)
	}
}

// ---- Health & misc ----

func TestReady(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	if resp := do(t, app, "GET", "/v1/ready", nil); resp.StatusCode != 200 {
		t.Errorf("in-process storage: %d", resp.StatusCode)
	}

	app = setupApp(makeDeps(&mockTransport{}, func(d *handler.Dependencies) {
		d.Storage = pinger{err: errors.New("connection refused")}
		d.StorageName = "valkey"
	}))
	resp := do(t, app, "GET", "/v1/ready", nil)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	body := decode[struct {
		Checks map[string]string `json:"checks"`
	}](t, resp)
	if !strings.HasPrefix(body.Checks["valkey"], "error") {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	createSession(t, app)

	resp := do(t, app, "GET", "/v1/health", nil)
	body := decode[map[string]interface{}](t, resp)
	if body["status"] != "healthy" || body["sessions"] != float64(1) {
		t.Errorf("health = %v", body)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	id := createSession(t, app)

	if resp := do(t, app, "GET", "/ws/sessions/"+id, nil); resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.StatusCode)
	}
}

func TestDocs_ServesOpenAPI(t *testing.T) {
	handler.OpenAPIPath = findOpenAPISpec(t)
	app := setupApp(makeDeps(&mockTransport{}))

	resp := do(t, app, "GET", "/docs/openapi.yaml", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	b, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(b, []byte("openapi: 3.0.3")) {
		t.Error("unexpected document body")
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	app := setupApp(makeDeps(&mockTransport{}))
	resp := do(t, app, "GET", "/v1/health", nil)
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("missing request id")
	}
}
