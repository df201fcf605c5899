package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

// SessionConfig controls the booking flow of every session.
type SessionConfig struct {
	// AutoResolvePayment continues from TicketCreated into payment-link
	// resolution within the same Book call.
	AutoResolvePayment bool
	// ConfirmRedirect marks ReadyForRedirect events as needing a user
	// confirmation before the browser leaves for the payment page.
	ConfirmRedirect bool
}

// DefaultSessionConfig returns the production defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{AutoResolvePayment: true}
}

// SessionDeps are the collaborators shared by all sessions.
type SessionDeps struct {
	API      ports.TransportAPI
	Auth     ports.AuthProvider
	Notifier ports.NotificationService // nil logs notifications instead
	Logger   *slog.Logger
	Now      func() time.Time
}

const observerBuffer = 16

// Session owns the state of one user's search-and-book flow.
//
// A single mutex guards all fields; remote calls are made without holding
// it. Each remote call captures the generation (and, for searches, the
// search sequence) it was issued under, and its response is dropped with
// domain.ErrStaleResponse if Reset, Dispose or a newer search happened in
// the meantime.
type Session struct {
	id       string
	api      ports.TransportAPI
	auth     ports.AuthProvider
	notifier ports.NotificationService
	resolver *PaymentResolver
	log      *slog.Logger
	now      func() time.Time
	cfg      SessionConfig

	mu            sync.Mutex
	criteria      domain.SearchCriteria
	trips         []domain.Trip
	bounds        PriceBounds
	selectedTrip  *domain.Trip
	selectedClass string
	machine       *BookingMachine
	lastErr       error
	generation    uint64
	searchSeq     uint64
	closed        bool
	lastActive    time.Time
	observers     map[uint64]chan domain.Event
	nextObserver  uint64
	pending       []domain.Notification
}

// NewSession creates a session in StateIdle.
func NewSession(id string, deps SessionDeps, cfg SessionConfig) *Session {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	resolver := NewPaymentResolver(deps.API)
	resolver.now = now

	return &Session{
		id:         id,
		api:        deps.API,
		auth:       deps.Auth,
		notifier:   deps.Notifier,
		resolver:   resolver,
		log:        log.With("session_id", id),
		now:        now,
		cfg:        cfg,
		machine:    NewBookingMachine(),
		lastActive: now(),
		observers:  make(map[uint64]chan domain.Event),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// lock acquires the mutex and fails if the session is disposed.
func (s *Session) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.lastActive = s.now()
	return nil
}

// unlock releases the mutex, then hands queued notifications to the sink.
func (s *Session) unlock(ctx context.Context) {
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, n := range pending {
		s.dispatch(ctx, n)
	}
}

// --- Search & filters ---

// Search runs a remote search for c. Unless origin, destination and date
// are all set it does nothing and returns false. On success the result set
// is replaced wholesale, price bounds are re-derived and the selection is
// cleared.
func (s *Session) Search(ctx context.Context, c domain.SearchCriteria) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	if !c.Complete() {
		s.mu.Unlock()
		return false, nil
	}
	s.criteria = c
	s.searchSeq++
	seq, gen := s.searchSeq, s.generation
	s.mu.Unlock()

	trips, err := s.api.SearchTrips(ctx, c.FromStationID, c.ToStationID, c.Date)

	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	if seq != s.searchSeq || gen != s.generation {
		metrics.StaleResponses.WithLabelValues("search").Inc()
		return false, domain.ErrStaleResponse
	}
	if err != nil {
		s.lastErr = err
		return false, fmt.Errorf("search trips: %w", err)
	}

	s.trips = trips
	s.bounds.Observe(trips)
	s.selectedTrip, s.selectedClass = nil, ""
	s.lastErr = nil
	return true, nil
}

// SetFilters replaces the time window and price range. A nil bound removes
// that constraint. No network call is made.
func (s *Session) SetFilters(start, finish *domain.TimeOfDay, price *domain.PriceRange) error {
	if price != nil && (price.Min < 0 || price.Min > price.Max) {
		return fmt.Errorf("%w: price range [%v, %v] is invalid", domain.ErrValidation, price.Min, price.Max)
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.criteria.StartTime = start
	s.criteria.FinishTime = finish
	s.criteria.PriceRange = price
	return nil
}

// Trips returns the current result set narrowed by the active filters.
// Without an explicit price range the derived bounds apply, which drops
// trips that offer no fare class.
func (s *Session) Trips() []domain.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleTrips()
}

// visibleTrips must be called with s.mu held.
func (s *Session) visibleTrips() []domain.Trip {
	c := s.criteria
	if r, ok := s.bounds.Effective(c); ok {
		c.PriceRange = &r
	}
	return FilterTrips(s.trips, c)
}

// PriceBounds returns the explicit price range if set, else the one derived
// from the latest non-empty result set.
func (s *Session) PriceBounds() (domain.PriceRange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds.Effective(s.criteria)
}

// SelectTrip picks a trip from the current result set and optionally a fare
// class on it. An empty classID falls back to the class from the search
// criteria when the trip offers it.
func (s *Session) SelectTrip(tripID, classID string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	var trip *domain.Trip
	for i := range s.trips {
		if s.trips[i].ID == tripID {
			trip = &s.trips[i]
			break
		}
	}
	if trip == nil {
		return fmt.Errorf("%w: %s", domain.ErrTripNotFound, tripID)
	}

	if classID == "" {
		if _, ok := trip.Class(s.criteria.ClassID); ok {
			classID = s.criteria.ClassID
		}
	} else if _, ok := trip.Class(classID); !ok {
		return fmt.Errorf("%w: %s on trip %s", domain.ErrClassNotFound, classID, tripID)
	}

	s.selectedTrip = trip
	s.selectedClass = classID
	return nil
}

// --- Booking ---

// Book submits req for the selected trip. A second call while an attempt is
// in flight returns domain.ErrBookingInFlight. Local and remote failures end
// in StateFailed; the returned error is then a *domain.Failure and the state
// is already recorded. With AutoResolvePayment the call continues into
// payment-link resolution.
func (s *Session) Book(ctx context.Context, req domain.BookingRequest) error {
	if err := s.lock(); err != nil {
		return err
	}
	if s.machine.InFlight() {
		s.mu.Unlock()
		return domain.ErrBookingInFlight
	}

	if req.ClassID == "" {
		req.ClassID = s.selectedClass
	}
	classSelected := false
	if s.selectedTrip != nil {
		_, classSelected = s.selectedTrip.Class(req.ClassID)
	}

	s.queue(domain.LevelInfo, "Booking request submitted")
	if err := s.machine.Submit(req, classSelected); err != nil {
		s.afterFailureLocked(err)
		s.unlock(ctx)
		return err
	}
	s.lastErr = nil
	s.publishLocked()

	var token string
	var ok bool
	if s.auth != nil {
		token, ok = s.auth.Token(ctx)
	}
	if err := s.machine.Authorize(token, ok); err != nil {
		s.afterFailureLocked(err)
		s.unlock(ctx)
		return err
	}
	s.publishLocked()

	gen := s.generation
	tripID := s.selectedTrip.ID
	s.unlock(ctx)

	order, err := s.api.CreateTicket(ctx, token, tripID, ports.CreateTicketInput{
		NationalID: req.NationalID,
		Seats:      req.Seats,
		ClassID:    req.ClassID,
	})
	if err == nil && order == nil {
		err = errors.New("empty ticket order")
	}

	if err := s.lock(); err != nil {
		return err
	}
	if gen != s.generation {
		metrics.StaleResponses.WithLabelValues("create_ticket").Inc()
		s.mu.Unlock()
		return domain.ErrStaleResponse
	}
	if err != nil {
		ferr := s.machine.BookingFailed(err)
		s.afterFailureLocked(ferr)
		s.unlock(ctx)
		return ferr
	}

	if err := s.machine.TicketCreated(order); err != nil {
		s.mu.Unlock()
		return err
	}
	metrics.BookingsTotal.WithLabelValues("ticket_created").Inc()
	s.log.InfoContext(ctx, "ticket created", "order_id", order.OrderID, "trip_id", tripID)
	s.queue(domain.LevelSuccess, "Ticket created, order "+order.OrderID)
	s.publishLocked()

	if !s.cfg.AutoResolvePayment {
		s.unlock(ctx)
		return nil
	}
	return s.resolveLocked(ctx)
}

// ResolvePayment (re)runs payment-link resolution for the active order
// without booking again.
func (s *Session) ResolvePayment(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	if s.machine.InFlight() {
		s.mu.Unlock()
		return domain.ErrBookingInFlight
	}
	return s.resolveLocked(ctx)
}

// resolveLocked is entered with the mutex held and always releases it.
func (s *Session) resolveLocked(ctx context.Context) error {
	if err := s.machine.BeginPaymentResolution(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lastErr = nil
	s.publishLocked()

	var token string
	var ok bool
	if s.auth != nil {
		token, ok = s.auth.Token(ctx)
	}
	if !ok || token == "" {
		ferr := s.machine.PaymentFailed(domain.ReasonAuthMissing, nil)
		s.afterFailureLocked(ferr)
		s.unlock(ctx)
		return ferr
	}

	gen := s.generation
	provisional := s.machine.Order().PaymentURL
	s.unlock(ctx)

	ps, err := s.resolver.Resolve(ctx, provisional, token)

	if err := s.lock(); err != nil {
		return err
	}
	if gen != s.generation {
		metrics.StaleResponses.WithLabelValues("resolve_payment").Inc()
		s.mu.Unlock()
		return domain.ErrStaleResponse
	}
	if err != nil {
		reason, _ := domain.ReasonOf(err)
		var cause error
		var f *domain.Failure
		if errors.As(err, &f) {
			cause = f.Err
		}
		ferr := s.machine.PaymentFailed(reason, cause)
		s.afterFailureLocked(ferr)
		s.unlock(ctx)
		return ferr
	}

	if err := s.machine.PaymentResolved(ps); err != nil {
		s.mu.Unlock()
		return err
	}
	s.queue(domain.LevelSuccess, "Payment link ready")
	s.publishLocked()
	s.unlock(ctx)
	return nil
}

// Reset abandons the current attempt: the order, payment session and last
// error are cleared and any response still in flight will be discarded.
// Search results and filters are kept.
func (s *Session) Reset() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.generation++
	s.machine.Reset()
	s.lastErr = nil
	s.publishLocked()
	return nil
}

// Dispose ends the session. Observers are closed, in-flight responses are
// discarded and every later call returns domain.ErrSessionClosed.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.machine.Reset()
	s.trips = nil
	s.selectedTrip = nil
	for id, ch := range s.observers {
		close(ch)
		delete(s.observers, id)
	}
}

// Subscribe returns a stream of booking events and a func to stop it.
// Slow observers miss events rather than block the session.
func (s *Session) Subscribe() (<-chan domain.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan domain.Event, observerBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.observers[id]; ok {
				close(c)
				delete(s.observers, id)
			}
		})
	}
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	ID              string                 `json:"id"`
	Generation      uint64                 `json:"generation"`
	State           domain.BookingState    `json:"state"`
	Reason          domain.FailureReason   `json:"reason,omitempty"`
	Violations      []string               `json:"violations,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
	Criteria        domain.SearchCriteria  `json:"criteria"`
	TripCount       int                    `json:"trip_count"`
	SelectedTripID  string                 `json:"selected_trip_id,omitempty"`
	SelectedClassID string                 `json:"selected_class_id,omitempty"`
	PriceBounds     *domain.PriceRange     `json:"price_bounds,omitempty"`
	Order           *domain.TicketOrder    `json:"order,omitempty"`
	Payment         *domain.PaymentSession `json:"payment,omitempty"`
	ConfirmRedirect bool                   `json:"confirm_redirect,omitempty"`
	Closed          bool                   `json:"closed,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:              s.id,
		Generation:      s.generation,
		State:           s.machine.State(),
		Criteria:        s.criteria,
		TripCount:       len(s.visibleTrips()),
		SelectedClassID: s.selectedClass,
		ConfirmRedirect: s.cfg.ConfirmRedirect,
		Closed:          s.closed,
	}
	if f := s.machine.Failure(); f != nil {
		snap.Reason = f.Reason
		snap.Violations = append([]string(nil), f.Violations...)
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	if s.selectedTrip != nil {
		snap.SelectedTripID = s.selectedTrip.ID
	}
	if r, ok := s.bounds.Effective(s.criteria); ok {
		snap.PriceBounds = &r
	}
	if o := s.machine.Order(); o != nil {
		order := *o
		snap.Order = &order
	}
	if p := s.machine.Payment(); p != nil {
		payment := *p
		snap.Payment = &payment
	}
	return snap
}

// --- internals (mutex held) ---

// afterFailureLocked records err as the last error, counts it and queues
// the user-facing message.
func (s *Session) afterFailureLocked(err error) {
	s.lastErr = err
	reason, ok := domain.ReasonOf(err)
	if !ok {
		s.publishLocked()
		return
	}

	if reason.PaymentLinkFailure() || s.machine.Order() != nil {
		s.log.Warn("payment link resolution failed", "reason", reason, "error", err)
	} else {
		metrics.BookingsTotal.WithLabelValues(string(reason)).Inc()
		if reason == domain.ReasonBookingFailed {
			s.log.Warn("booking failed", "error", err)
		}
	}

	s.queue(domain.LevelError, failureMessage(err, reason))
	s.publishLocked()
}

func failureMessage(err error, reason domain.FailureReason) string {
	switch reason {
	case domain.ReasonValidation:
		var f *domain.Failure
		if errors.As(err, &f) && len(f.Violations) > 0 {
			return "Please check the booking form: " + strings.Join(f.Violations, "; ")
		}
		return "Please check the booking form"
	case domain.ReasonAuthMissing:
		return "Please sign in to continue"
	case domain.ReasonBookingFailed:
		return "Booking failed, please try again"
	case domain.ReasonPaymentLinkFetchFailed:
		return "Could not fetch the payment link, please retry"
	case domain.ReasonPaymentLinkMissing:
		return "The payment link was not returned, please retry"
	}
	return "Something went wrong"
}

func (s *Session) queue(level domain.NotificationLevel, msg string) {
	s.pending = append(s.pending, domain.Notification{
		SessionID: s.id,
		Level:     level,
		Message:   msg,
		State:     s.machine.State(),
		Time:      s.now(),
	})
}

func (s *Session) publishLocked() {
	ev := domain.Event{
		SessionID:  s.id,
		Generation: s.generation,
		State:      s.machine.State(),
		Time:       s.now(),
	}
	if f := s.machine.Failure(); f != nil {
		ev.Reason = f.Reason
	}
	if ev.State == domain.StateReadyForRedirect {
		ev.PaymentURL = s.machine.Payment().URL
		ev.ConfirmRedirect = s.cfg.ConfirmRedirect
	}

	for _, ch := range s.observers {
		select {
		case ch <- ev:
		default:
			s.log.Debug("dropping event for slow observer", "state", ev.State)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		s.log.InfoContext(ctx, "notification", "level", n.Level, "message", n.Message, "state", n.State)
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		s.log.WarnContext(ctx, "notify failed", "error", err)
	}
}
