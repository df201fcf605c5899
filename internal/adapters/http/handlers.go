package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/usecases"
)

// ---- Catalogue ----

// requestLang picks ?lang= or the first Accept-Language tag.
func requestLang(c *fiber.Ctx) string {
	if l := c.Query("lang"); l != "" {
		return l
	}
	al := c.Get(fiber.HeaderAcceptLanguage)
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	tag, _, _ = strings.Cut(strings.TrimSpace(tag), "-")
	return strings.ToLower(tag)
}

// ListLocationsHandler returns governorates with their stations.
func ListLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locs, err := deps.Locations.List(c.UserContext(), requestLang(c))
		if err != nil {
			return errFrom(c, err)
		}
		if locs == nil {
			locs = []domain.Location{}
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(locs)
	}
}

// StationsHandler autocompletes station names for the origin and
// destination pickers.
func StationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		matches, err := deps.Locations.Stations(c.UserContext(), requestLang(c), query, c.QueryInt("limit", 20))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(matches)
	}
}

// ---- Sessions ----

func lookupSession(c *fiber.Ctx, deps *Dependencies) (*usecases.Session, error) {
	id := c.Params("id")
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	return deps.Sessions.Get(id)
}

// CreateSessionHandler starts a new search-and-book session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := deps.Sessions.Create(c.UserContext())
		c.Location("/v1/sessions/" + s.ID())
		return c.Status(201).JSON(s.Snapshot())
	}
}

// GetSessionHandler returns the session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// DeleteSessionHandler disposes a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Dispose(c.Params("id")); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(204)
	}
}

// filtersRequest carries the filter panel. Times are "HH:MM"; an empty
// value or a nil price removes that bound.
type filtersRequest struct {
	StartTime  string             `json:"start_time"`
	FinishTime string             `json:"finish_time"`
	Price      *domain.PriceRange `json:"price"`
}

func (r filtersRequest) parse() (start, finish *domain.TimeOfDay, err error) {
	parse := func(field, v string) (*domain.TimeOfDay, error) {
		if v == "" {
			return nil, nil
		}
		t, err := domain.ParseTimeOfDay(v)
		if err != nil {
			return nil, errors.New(field + " must be HH:MM")
		}
		return &t, nil
	}
	if start, err = parse("start_time", r.StartTime); err != nil {
		return nil, nil, err
	}
	if finish, err = parse("finish_time", r.FinishTime); err != nil {
		return nil, nil, err
	}
	return start, finish, nil
}

type searchRequest struct {
	FromStationID string `json:"from_station_id"`
	ToStationID   string `json:"to_station_id"`
	Date          string `json:"date"`
	ClassID       string `json:"class_id"`
	filtersRequest
}

// SearchHandler runs a trip search. Incomplete criteria are accepted and
// reported with "searched": false.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}

		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		start, finish, err := req.parse()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if req.Price != nil && (req.Price.Min < 0 || req.Price.Min > req.Price.Max) {
			return errBadRequest(c, "price range is invalid")
		}

		searched, err := s.Search(c.UserContext(), domain.SearchCriteria{
			FromStationID: req.FromStationID,
			ToStationID:   req.ToStationID,
			Date:          req.Date,
			ClassID:       req.ClassID,
			StartTime:     start,
			FinishTime:    finish,
			PriceRange:    req.Price,
		})
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(fiber.Map{"searched": searched, "session": s.Snapshot()})
	}
}

// FiltersHandler updates the time window and price range without a new search.
func FiltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}

		var req filtersRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		start, finish, err := req.parse()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if err := s.SetFilters(start, finish, req.Price); err != nil {
			return errFrom(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// TripsResponse is a page of filtered trips plus the price bounds for the
// filter slider.
type TripsResponse struct {
	PaginatedResponse
	PriceBounds *domain.PriceRange `json:"price_bounds,omitempty"`
}

// TripsHandler lists the filtered result set.
func TripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}

		trips := s.Trips()
		pg := paginate(c, len(trips), 50, 200)
		page := trips[pg.Offset:min(pg.Offset+pg.Limit, len(trips))]

		resp := TripsResponse{PaginatedResponse: PaginatedResponse{Data: page, Pagination: pg}}
		if b, ok := s.PriceBounds(); ok {
			resp.PriceBounds = &b
		}
		SetLinkHeaders(c, pg)
		return c.JSON(resp)
	}
}

type selectionRequest struct {
	TripID  string `json:"trip_id"`
	ClassID string `json:"class_id"`
}

// SelectionHandler picks a trip and fare class from the current results.
func SelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}

		var req selectionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.TripID == "" {
			return errBadRequest(c, "trip_id is required")
		}
		if err := s.SelectTrip(req.TripID, req.ClassID); err != nil {
			return errFrom(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

type bookRequest struct {
	NationalID string `json:"national_id"`
	Seats      int    `json:"seats"`
	ClassID    string `json:"class_id"`
	// Remember stores the national ID in the vault for this client.
	Remember bool `json:"remember"`
}

// BookHandler submits a booking. A booking that ends in the failed state is
// still a 200: the snapshot carries the reason and violations.
func BookHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}

		var req bookRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ctx := c.UserContext()
		owner := c.Get(ClientIDHeader)
		token, hasToken := TokenFromContext(ctx)
		if deps.Credentials != nil && owner != "" && hasToken {
			switch {
			case req.NationalID == "":
				if id, ok, err := deps.Credentials.Restore(ctx, owner, token); err == nil && ok {
					req.NationalID = id
				}
			case req.Remember:
				if err := deps.Credentials.Save(ctx, owner, req.NationalID, token); err != nil {
					LoggerFromCtx(ctx).Warn("could not remember national id", "error", err)
				}
			}
		}

		err = s.Book(ctx, domain.BookingRequest{
			NationalID: req.NationalID,
			Seats:      req.Seats,
			ClassID:    req.ClassID,
		})
		if err != nil && !usecases.IsFailure(err) {
			return errFrom(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// PaymentHandler retries payment-link resolution for the active order.
func PaymentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}
		if err := s.ResolvePayment(c.UserContext()); err != nil && !usecases.IsFailure(err) {
			return errFrom(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// ResetHandler abandons the current booking attempt.
func ResetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}
		if err := s.Reset(); err != nil {
			return errFrom(c, err)
		}
		return c.JSON(s.Snapshot())
	}
}

// ---- Credentials ----

// credentialOwner returns the client id and bearer token. When ok is false
// the 400/401 response has been written and err is its send error.
func credentialOwner(c *fiber.Ctx) (owner, secret string, ok bool, err error) {
	owner = c.Get(ClientIDHeader)
	if owner == "" {
		return "", "", false, errBadRequest(c, ClientIDHeader+" header is required")
	}
	secret, ok = TokenFromContext(c.UserContext())
	if !ok {
		return "", "", false, errUnauthorized(c, "bearer token is required")
	}
	return owner, secret, true, nil
}

type credentialRequest struct {
	NationalID string `json:"national_id"`
}

// PutCredentialHandler encrypts and stores the national ID.
func PutCredentialHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, secret, ok, err := credentialOwner(c)
		if !ok {
			return err
		}
		var req credentialRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Credentials.Save(c.UserContext(), owner, req.NationalID, secret); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(204)
	}
}

// GetCredentialHandler returns the stored national ID to prefill the form.
// Records that no longer decrypt are dropped and reported as missing.
func GetCredentialHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, secret, ok, err := credentialOwner(c)
		if !ok {
			return err
		}
		id, found, err := deps.Credentials.Restore(c.UserContext(), owner, secret)
		if err != nil {
			return errFrom(c, err)
		}
		if !found {
			return errNotFound(c, "no stored credential")
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(credentialRequest{NationalID: id})
	}
}

// DeleteCredentialHandler forgets the stored national ID.
func DeleteCredentialHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Get(ClientIDHeader)
		if owner == "" {
			return errBadRequest(c, ClientIDHeader+" header is required")
		}
		if err := deps.Credentials.Forget(c.UserContext(), owner); err != nil {
			return errFrom(c, err)
		}
		return c.SendStatus(204)
	}
}
