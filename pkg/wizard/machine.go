package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NERVsystems/trikefare/pkg/fare"
	"github.com/NERVsystems/trikefare/pkg/geo"
)

// Map defaults
const (
	DefaultZoom        = 13
	DefaultFocusZoom   = 15
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "© OpenStreetMap contributors"
	DefaultCity        = "Zamboanga City"
)

// Config is the fixed configuration of a wizard
type Config struct {
	// City names the service area in messages and shortens addresses.
	City string
	// Region bounds every accepted point.
	Region      geo.BoundingBox
	Center      geo.Point
	Zoom        int
	FocusZoom   int
	TileURL     string
	Attribution string
	Rules       fare.Rules
}

// DefaultConfig covers Zamboanga City up to Lubigan
func DefaultConfig() Config {
	return Config{
		City: DefaultCity,
		Region: geo.BoxFromCorners(
			geo.Point{Latitude: 6.78, Longitude: 121.90},
			geo.Point{Latitude: 8.0, Longitude: 122.32},
		),
		Center:      geo.Point{Latitude: 6.9214, Longitude: 122.0790},
		Zoom:        DefaultZoom,
		FocusZoom:   DefaultFocusZoom,
		TileURL:     DefaultTileURL,
		Attribution: DefaultAttribution,
		Rules:       fare.DefaultRules,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	var errs []string

	if c.Region.Empty() {
		errs = append(errs, fmt.Sprintf("region %s has no area", c.Region))
	}
	if !c.Region.Contains(c.Center) {
		errs = append(errs, fmt.Sprintf("map center %s is outside region %s", c.Center, c.Region))
	}
	if c.Zoom < 0 || c.Zoom > 19 {
		errs = append(errs, fmt.Sprintf("zoom must be 0-19, got %d", c.Zoom))
	}
	if c.FocusZoom < 0 || c.FocusZoom > 19 {
		errs = append(errs, fmt.Sprintf("focus zoom must be 0-19, got %d", c.FocusZoom))
	}
	if err := c.Rules.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Wizard applies transitions under a fixed Config
type Wizard struct {
	cfg Config
}

// New creates a wizard
func New(cfg Config) *Wizard {
	return &Wizard{cfg: cfg}
}

// Config returns the wizard configuration
func (w *Wizard) Config() Config {
	return w.cfg
}

// Start returns the initial state: passenger step, one passenger, nothing picked.
func (w *Wizard) Start() State {
	return State{Step: StepPassengers, Passengers: 1}
}

// SetPassengers selects the party size on the passenger step
func (w *Wizard) SetPassengers(s State, n int) (State, error) {
	if s.Step != StepPassengers {
		return s, warn(KindStepInactive, "Passengers can only be changed on the first step.", nil)
	}
	if err := w.cfg.Rules.ValidatePassengers(n); err != nil {
		return s, warn(KindInvalidPassengers,
			fmt.Sprintf("Please choose between 1 and %d passengers.", w.cfg.Rules.MaxPassengers), err)
	}
	s.Passengers = n
	return s, nil
}

// Advance moves to the next step. Leaving a location step requires its
// point to be set; leaving the destination step computes the fare.
func (w *Wizard) Advance(s State) (State, error) {
	switch s.Step {
	case StepPassengers:
		return w.enter(s, StepCurrent), nil

	case StepCurrent:
		if !ready(s.Locations[StepCurrent.slot()]) {
			return s, warn(KindMissingPoint, "Please select a location on the map before proceeding.", nil)
		}
		return w.enter(s, StepDestination), nil

	case StepDestination:
		if !ready(s.Locations[StepDestination.slot()]) {
			return s, warn(KindMissingPoint, "Please select a destination on the map before proceeding.", nil)
		}
		res, err := ComputeResult(s, w.cfg.Rules)
		if err != nil {
			return s, err
		}
		next := w.enter(s, StepResult)
		next.Result = &res
		return next, nil

	default:
		return s, warn(KindFinalStep, "This is the last step. Restart to estimate another trip.", nil)
	}
}

func ready(loc Location) bool {
	return loc.Unlocked && loc.Point != nil
}

// Refresh re-shows the active step. An activated map only has its layout refreshed.
func (w *Wizard) Refresh(s State) State {
	if s.Step.IsLocation() {
		i := s.Step.slot()
		s.Locations[i].Map = w.activate(s.Locations[i].Map)
	}
	return s
}

// Restart returns to the passenger step from any step, discarding picked
// points, addresses, map activation and the result. The passenger selection
// is kept.
func (w *Wizard) Restart(s State) State {
	next := w.Start()
	next.Passengers = s.Passengers
	next.Seq = s.Seq
	return next
}

func (w *Wizard) enter(s State, step Step) State {
	s.Step = step
	if step.IsLocation() {
		i := step.slot()
		s.Locations[i].Map = w.activate(s.Locations[i].Map)
		// Locked until a point is picked on this visit.
		s.Locations[i].Unlocked = false
	}
	return s
}

func (w *Wizard) activate(m MapSurface) MapSurface {
	if m.Activated {
		m.Refreshes++
		return m
	}
	return MapSurface{
		Activated:   true,
		Center:      w.cfg.Center,
		Zoom:        w.cfg.Zoom,
		MaxBounds:   w.cfg.Region,
		TileURL:     w.cfg.TileURL,
		Attribution: w.cfg.Attribution,
	}
}
