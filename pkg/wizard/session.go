package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/geocode"
	"github.com/NERVsystems/trikefare/pkg/locate"
)

// AddressResolver reverse-geocodes a point; it always yields displayable text.
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, p geo.Point) geocode.Result
}

// Searcher resolves free text to a point inside region.
type Searcher interface {
	Search(ctx context.Context, query string, region geo.BoundingBox) (geo.Point, error)
}

// Recorder receives wizard events, e.g. for metrics
type Recorder interface {
	ObserveWarning(kind string)
	ObserveFare(passengers int)
	SetSessions(n int)
}

// Deps are a session's collaborators. Nil Searcher disables text search;
// nil Locator behaves as locate.Unavailable.
type Deps struct {
	Geocoder AddressResolver
	Searcher Searcher
	Locator  locate.Locator
	Recorder Recorder
	Logger   *slog.Logger
}

// Session is one user's run through the wizard. All State changes happen
// under mu; network calls run without it.
type Session struct {
	id     string
	wiz    *Wizard
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	updated time.Time

	// inflight counts running lookups; idle is closed whenever it is zero.
	inflight int
	idle     chan struct{}
}

// NewSession starts a session at the first step
func NewSession(id string, wiz *Wizard, deps Deps) *Session {
	if deps.Locator == nil {
		deps.Locator = locate.Unavailable{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := make(chan struct{})
	close(idle)
	return &Session{
		id:      id,
		wiz:     wiz,
		deps:    deps,
		logger:  logger.With("component", "wizard", "session", id),
		state:   wiz.Start(),
		updated: time.Now(),
		idle:    idle,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns a copy of the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View renders the current state
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wiz.Render(s.state)
}

// UpdatedAt returns the time of the last state change
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

// apply runs fn against the state under the lock. A rejected transition
// leaves the state (and the timestamp) alone.
func (s *Session) apply(fn func(State) (State, error)) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(fn)
}

func (s *Session) applyLocked(fn func(State) (State, error)) (View, error) {
	next, err := fn(s.state)
	if err != nil {
		s.reject(err)
		return s.wiz.Render(s.state), err
	}
	s.state = next
	s.updated = time.Now()
	return s.wiz.Render(s.state), nil
}

func (s *Session) reject(err error) {
	kind, ok := KindOf(err)
	if !ok {
		kind = "internal"
	}
	s.logger.Debug("action rejected", "kind", kind, "error", err)
	if s.deps.Recorder != nil {
		s.deps.Recorder.ObserveWarning(string(kind))
	}
}

// SetPassengers selects the party size
func (s *Session) SetPassengers(n int) (View, error) {
	return s.apply(func(st State) (State, error) {
		return s.wiz.SetPassengers(st, n)
	})
}

// Next advances one step
func (s *Session) Next() (View, error) {
	return s.apply(func(st State) (State, error) {
		next, err := s.wiz.Advance(st)
		if err == nil && next.Step == StepResult && next.Result != nil {
			s.logger.Info("fare estimated",
				"distance_km", next.Result.DistanceKm,
				"passengers", next.Result.Passengers,
				"fare", next.Result.Fare.String())
			if s.deps.Recorder != nil {
				s.deps.Recorder.ObserveFare(next.Result.Passengers)
			}
		}
		return next, err
	})
}

// Refresh re-shows the active step
func (s *Session) Refresh() View {
	v, _ := s.apply(func(st State) (State, error) {
		return s.wiz.Refresh(st), nil
	})
	return v
}

// Restart goes back to the first step, clearing picked locations
func (s *Session) Restart() View {
	v, _ := s.apply(func(st State) (State, error) {
		return s.wiz.Restart(st), nil
	})
	return v
}

// SelectPoint picks p on the active step's map
func (s *Session) SelectPoint(ctx context.Context, p geo.Point) (View, error) {
	return s.selectPoint(ctx, p, SourceClick, nil)
}

func (s *Session) selectPoint(ctx context.Context, p geo.Point, src Source, onStep *Step) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req *LookupRequest
	v, err := s.applyLocked(func(st State) (State, error) {
		if onStep != nil && st.Step != *onStep {
			return st, warn(KindStepInactive, "The location step is no longer active.", nil)
		}
		next, r, err := s.wiz.SelectPoint(st, p, src)
		req = r
		return next, err
	})
	if err != nil {
		return v, err
	}
	s.logger.Debug("point selected", "step", req.Step, "source", src, "point", p.String(), "seq", req.Seq)
	s.dispatch(ctx, *req)
	// dispatch may have resolved the address already.
	return s.wiz.Render(s.state), nil
}

// Search resolves query to a point and picks it on the active step
func (s *Session) Search(ctx context.Context, query string) (View, error) {
	st := s.State()
	if !st.Step.IsLocation() {
		return s.apply(func(st State) (State, error) {
			return st, warn(KindStepInactive, "Locations can only be picked on a location step.", nil)
		})
	}
	if s.deps.Searcher == nil {
		return s.apply(func(st State) (State, error) {
			return st, warn(KindSearch, "Search is not available.", nil)
		})
	}

	step := st.Step
	p, err := s.deps.Searcher.Search(ctx, query, s.wiz.cfg.Region)
	if err != nil {
		msg := "Search is unavailable right now, please try again."
		if errors.Is(err, geocode.ErrNoResults) {
			msg = fmt.Sprintf("No results found for %q.", query)
		}
		return s.apply(func(st State) (State, error) {
			return st, warn(KindSearch, msg, err)
		})
	}
	return s.selectPoint(ctx, p, SourceSearch, &step)
}

// Locate asks the device for its position and picks it on the active step.
// The locate control stays disabled until the newest request finishes.
func (s *Session) Locate(ctx context.Context) (View, error) {
	var req *LocateRequest
	if v, err := s.apply(func(st State) (State, error) {
		next, r, err := s.wiz.BeginLocate(st)
		req = r
		return next, err
	}); err != nil {
		return v, err
	}

	p, locErr := s.deps.Locator.Locate(ctx)
	if locErr != nil {
		s.logger.Warn("geolocation failed", "error", locErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, lookup, err := s.wiz.FinishLocate(s.state, *req, p, locErr)
	s.state = next
	s.updated = time.Now()
	if err != nil {
		s.reject(err)
		return s.wiz.Render(s.state), err
	}
	s.dispatch(ctx, *lookup)
	return s.wiz.Render(s.state), nil
}

// dispatch starts the reverse lookup for req. It must be called with mu held.
// The lookup outlives ctx's cancellation: it is never canceled.
func (s *Session) dispatch(ctx context.Context, req LookupRequest) {
	if s.deps.Geocoder == nil {
		s.state, _ = s.wiz.ResolveAddress(s.state, req, geocode.Result{Address: geocode.FailedText, Status: geocode.StatusFailed})
		return
	}

	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++

	lookupCtx := context.WithoutCancel(ctx)
	go func() {
		res := s.deps.Geocoder.ReverseGeocode(lookupCtx, req.Point)

		s.mu.Lock()
		defer s.mu.Unlock()
		defer s.lookupDone()

		next, applied := s.wiz.ResolveAddress(s.state, req, res)
		if !applied {
			s.logger.Debug("discarding stale address", "step", req.Step, "seq", req.Seq)
			return
		}
		s.state = next
		s.updated = time.Now()
	}()
}

func (s *Session) lookupDone() {
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// Wait blocks until all in-flight address lookups have been applied or
// ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
