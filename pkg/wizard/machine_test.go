package wizard

import (
	"errors"
	"reflect"
	"testing"

	"github.com/NERVsystems/trikefare/pkg/fare"
	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/geocode"
)

var (
	cityCenter = geo.Point{Latitude: 6.9214, Longitude: 122.0790}
	fortPilar  = geo.Point{Latitude: 6.9020, Longitude: 122.0800}
	outside    = geo.Point{Latitude: 14.5995, Longitude: 120.9842} // Manila
)

func newWizard() *Wizard {
	return New(DefaultConfig())
}

// advanceTo walks a fresh state to step, picking cityCenter / fortPilar on the way.
func advanceTo(t *testing.T, w *Wizard, step Step) State {
	t.Helper()
	s := w.Start()
	var err error
	for s.Step < step {
		if s.Step.IsLocation() {
			p := cityCenter
			if s.Step == StepDestination {
				p = fortPilar
			}
			if s, _, err = w.SelectPoint(s, p, SourceClick); err != nil {
				t.Fatalf("SelectPoint() error = %v", err)
			}
		}
		if s, err = w.Advance(s); err != nil {
			t.Fatalf("Advance() from %s error = %v", s.Step, err)
		}
	}
	return s
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Center = outside
	cfg.Zoom = 25
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for center outside region and bad zoom")
	}
}

func TestStart(t *testing.T) {
	s := newWizard().Start()
	if s.Step != StepPassengers || s.Passengers != 1 {
		t.Errorf("Start() = step %s passengers %d", s.Step, s.Passengers)
	}
	if s.CurrentPoint() != nil || s.DestinationPoint() != nil {
		t.Error("Start() should have no points")
	}
	if s.CurrentAddress().Status != AddressAbsent || s.DestinationAddress().Status != AddressAbsent {
		t.Error("Start() should have no addresses")
	}
}

func TestSetPassengers(t *testing.T) {
	w := newWizard()
	s := w.Start()

	for _, n := range []int{1, 2, 3} {
		next, err := w.SetPassengers(s, n)
		if err != nil {
			t.Fatalf("SetPassengers(%d) error = %v", n, err)
		}
		if next.Passengers != n {
			t.Errorf("Passengers = %d, want %d", next.Passengers, n)
		}
	}

	for _, n := range []int{0, 4} {
		next, err := w.SetPassengers(s, n)
		if !errors.Is(err, ErrInvalidPassengers) {
			t.Errorf("SetPassengers(%d) error = %v, want ErrInvalidPassengers", n, err)
		}
		if !errors.Is(err, fare.ErrInvalidPassengers) {
			t.Errorf("SetPassengers(%d) should wrap fare.ErrInvalidPassengers", n)
		}
		if !reflect.DeepEqual(next, s) {
			t.Errorf("rejected SetPassengers(%d) changed state", n)
		}
	}

	later := advanceTo(t, w, StepCurrent)
	if _, err := w.SetPassengers(later, 2); !errors.Is(err, ErrStepInactive) {
		t.Errorf("SetPassengers on step 2 error = %v, want ErrStepInactive", err)
	}
}

func TestAdvanceActivatesMap(t *testing.T) {
	w := newWizard()
	s, err := w.Advance(w.Start())
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if s.Step != StepCurrent {
		t.Fatalf("Step = %s, want %s", s.Step, StepCurrent)
	}

	m := s.Location(StepCurrent).Map
	if !m.Activated || m.Center != cityCenter || m.Zoom != DefaultZoom || m.MaxBounds != w.Config().Region {
		t.Errorf("map not activated with defaults: %+v", m)
	}
	if m.TileURL != DefaultTileURL {
		t.Errorf("TileURL = %q", m.TileURL)
	}
	if s.Location(StepDestination).Map.Activated {
		t.Error("destination map activated early")
	}
}

func TestAdvanceRequiresCurrentPoint(t *testing.T) {
	w := newWizard()
	s := advanceTo(t, w, StepCurrent)

	next, err := w.Advance(s)
	if !errors.Is(err, ErrMissingPoint) {
		t.Fatalf("Advance() error = %v, want ErrMissingPoint", err)
	}
	if !reflect.DeepEqual(next, s) {
		t.Error("rejected Advance changed state")
	}
	if UserMessage(err) != "Please select a location on the map before proceeding." {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}
}

func TestEnteringLocationStepRelocks(t *testing.T) {
	w := newWizard()
	s := w.Start()
	p := cityCenter
	s.Locations[StepCurrent.slot()].Point = &p
	s.Locations[StepCurrent.slot()].Unlocked = true

	s, err := w.Advance(s)
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if s.Location(StepCurrent).Unlocked {
		t.Error("forward action unlocked on entry")
	}
	if _, err := w.Advance(s); !errors.Is(err, ErrMissingPoint) {
		t.Errorf("Advance() without a fresh pick error = %v, want ErrMissingPoint", err)
	}

	s, _, err = w.SelectPoint(s, cityCenter, SourceClick)
	if err != nil {
		t.Fatalf("SelectPoint() error = %v", err)
	}
	if s = w.Refresh(s); !s.Location(StepCurrent).Unlocked {
		t.Error("Refresh re-locked a picked step")
	}
}

func TestAdvanceRequiresDestination(t *testing.T) {
	w := newWizard()
	s := advanceTo(t, w, StepDestination)

	next, err := w.Advance(s)
	if !errors.Is(err, ErrMissingPoint) {
		t.Fatalf("Advance() error = %v, want ErrMissingPoint", err)
	}
	if !reflect.DeepEqual(next, s) {
		t.Error("rejected Advance changed state")
	}
	if UserMessage(err) != "Please select a destination on the map before proceeding." {
		t.Errorf("UserMessage() = %q", UserMessage(err))
	}
}

func TestAdvanceComputesResult(t *testing.T) {
	w := newWizard()
	s := advanceTo(t, w, StepResult)

	if s.Result == nil {
		t.Fatal("Result not computed")
	}
	want := geo.Distance(cityCenter, fortPilar)
	if s.Result.DistanceKm != want {
		t.Errorf("DistanceKm = %v, want %v", s.Result.DistanceKm, want)
	}
	if s.Result.Fare != fare.Calculate(want, 1) {
		t.Errorf("Fare = %v", s.Result.Fare)
	}
	if s.Result.CurrentAddress != geocode.LoadingText {
		t.Errorf("CurrentAddress = %q, want loading text while lookup pending", s.Result.CurrentAddress)
	}

	if _, err := w.Advance(s); !errors.Is(err, ErrFinalStep) {
		t.Errorf("Advance() past the end error = %v, want ErrFinalStep", err)
	}
}

func TestRestartFromEveryStep(t *testing.T) {
	w := newWizard()
	for step := StepPassengers; step <= StepResult; step++ {
		t.Run(step.String(), func(t *testing.T) {
			s := advanceTo(t, w, step)
			s.Passengers = 3
			seq := s.Seq

			r := w.Restart(s)
			if r.Step != StepPassengers {
				t.Errorf("Step = %s, want passengers", r.Step)
			}
			if r.CurrentPoint() != nil || r.DestinationPoint() != nil {
				t.Error("points not cleared")
			}
			if r.CurrentAddress() != (Address{}) || r.DestinationAddress() != (Address{}) {
				t.Error("addresses not cleared")
			}
			for _, ls := range []Step{StepCurrent, StepDestination} {
				if r.Location(ls).Map.Activated || r.Location(ls).Unlocked {
					t.Errorf("%s map/unlock state not cleared", ls)
				}
			}
			if r.Result != nil {
				t.Error("result not cleared")
			}
			if r.Passengers != 3 {
				t.Errorf("Passengers = %d, want selection kept", r.Passengers)
			}
			if r.Seq != seq {
				t.Errorf("Seq = %d, want %d carried over", r.Seq, seq)
			}
		})
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	w := newWizard()
	s := advanceTo(t, w, StepCurrent)
	s, _, _ = w.SelectPoint(s, fortPilar, SourceSearch)
	before := s.Location(StepCurrent).Map

	s = w.Refresh(s)
	s = w.Refresh(s)
	after := s.Location(StepCurrent).Map

	if after.Refreshes != before.Refreshes+2 {
		t.Errorf("Refreshes = %d, want %d", after.Refreshes, before.Refreshes+2)
	}
	after.Refreshes = before.Refreshes
	if !reflect.DeepEqual(after, before) {
		t.Errorf("Refresh re-initialized the map: %+v -> %+v", before, after)
	}

	p := w.Refresh(w.Start())
	if !reflect.DeepEqual(p, w.Start()) {
		t.Error("Refresh on passenger step changed state")
	}
}

func TestStepString(t *testing.T) {
	if StepDestination.String() != "destination" || StepResult.Number() != 4 {
		t.Errorf("unexpected step naming %s %d", StepDestination, StepResult.Number())
	}
	if Step(9).String() != "step(9)" {
		t.Errorf("Step(9).String() = %q", Step(9).String())
	}
	b, _ := StepCurrent.MarshalText()
	if string(b) != "current_location" {
		t.Errorf("MarshalText() = %q", b)
	}
}

func TestStepTextRoundTrip(t *testing.T) {
	for step := StepPassengers; step <= StepResult; step++ {
		b, _ := step.MarshalText()
		var got Step
		if err := got.UnmarshalText(b); err != nil || got != step {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, got, err)
		}
	}
	var s Step
	if err := s.UnmarshalText([]byte("checkout")); err == nil {
		t.Error("UnmarshalText() accepted unknown step")
	}
}
