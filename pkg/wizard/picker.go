package wizard

import (
	"errors"
	"fmt"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/geocode"
	"github.com/NERVsystems/trikefare/pkg/locate"
)

// LookupRequest asks for the address of a freshly picked point.
type LookupRequest struct {
	Step  Step
	Seq   uint64
	Point geo.Point
}

func (w *Wizard) outsideRegion() *Warning {
	return warn(KindOutsideRegion, fmt.Sprintf("Please select a location within %s.", w.cfg.City), nil)
}

// CheckPoint rejects points that are not valid coordinates inside the region.
func (w *Wizard) CheckPoint(p geo.Point) error {
	if geo.ValidateCoords(p.Latitude, p.Longitude) != nil || !w.cfg.Region.Contains(p) {
		return w.outsideRegion()
	}
	return nil
}

// SelectPoint sets the active location step's point. Clicks, search results
// and geolocation fixes all come through here. A point outside the region
// is rejected without touching s.
func (w *Wizard) SelectPoint(s State, p geo.Point, src Source) (State, *LookupRequest, error) {
	if !s.Step.IsLocation() {
		return s, nil, warn(KindStepInactive, "Locations can only be picked on a location step.", nil)
	}
	if err := w.CheckPoint(p); err != nil {
		return s, nil, err
	}

	i := s.Step.slot()
	loc := s.Locations[i]
	if !loc.Map.Activated {
		loc.Map = w.activate(loc.Map)
	}

	point, marker := p, p
	loc.Point = &point
	loc.Map.Marker = &marker
	if src == SourceSearch || src == SourceGeolocation {
		loc.Map.Center = p
		loc.Map.Zoom = w.cfg.FocusZoom
	}

	s.Seq++
	loc.Address = Address{Status: AddressPending, Text: geocode.LoadingText, Seq: s.Seq}
	loc.Unlocked = true
	s.Locations[i] = loc

	return s, &LookupRequest{Step: s.Step, Seq: s.Seq, Point: p}, nil
}

// ResolveAddress applies a finished lookup. Results for anything but the
// newest request of that step are dropped and reported as not applied.
func (w *Wizard) ResolveAddress(s State, req LookupRequest, res geocode.Result) (State, bool) {
	if !req.Step.IsLocation() {
		return s, false
	}
	i := req.Step.slot()
	addr := s.Locations[i].Address
	if addr.Status != AddressPending || addr.Seq != req.Seq {
		return s, false
	}

	s.Locations[i].Address = Address{Status: AddressResolved, Text: res.Address, Seq: req.Seq}

	if s.Result != nil {
		// Fare was shown while the lookup was in flight; refresh its text.
		r := *s.Result
		if req.Step == StepCurrent {
			r.CurrentAddress = res.Address
		} else {
			r.DestinationAddress = res.Address
		}
		s.Result = &r
	}
	return s, true
}

// LocateRequest identifies one device geolocation request. Seq comes from
// the same counter as address lookups, so it survives Restart.
type LocateRequest struct {
	Step Step
	Seq  uint64
}

// BeginLocate disables the active step's locate control while a device
// geolocation request is in flight.
func (w *Wizard) BeginLocate(s State) (State, *LocateRequest, error) {
	if !s.Step.IsLocation() {
		return s, nil, warn(KindStepInactive, "Locations can only be picked on a location step.", nil)
	}
	i := s.Step.slot()
	if s.Locations[i].Locating {
		return s, nil, warn(KindLocateBusy, "Already locating, please wait.", nil)
	}
	s.Seq++
	s.Locations[i].Locating = true
	s.Locations[i].LocateSeq = s.Seq
	return s, &LocateRequest{Step: s.Step, Seq: s.Seq}, nil
}

// FinishLocate completes req. Only the newest request of a step re-enables
// its locate control; an older one, such as one issued before a restart,
// leaves s untouched. A successful fix on the still active step is selected.
func (w *Wizard) FinishLocate(s State, req LocateRequest, p geo.Point, locErr error) (State, *LookupRequest, error) {
	if !req.Step.IsLocation() {
		return s, nil, warn(KindStepInactive, "Locations can only be picked on a location step.", nil)
	}
	i := req.Step.slot()
	if !s.Locations[i].Locating || s.Locations[i].LocateSeq != req.Seq {
		return s, nil, warn(KindStepInactive, "The location request is no longer current.", nil)
	}
	s.Locations[i].Locating = false

	if locErr != nil {
		msg := "Unable to retrieve your location."
		if errors.Is(locErr, locate.ErrUnavailable) {
			msg = "Geolocation is not supported on this device."
		}
		return s, nil, warn(KindGeolocation, msg, locErr)
	}
	if s.Step != req.Step {
		return s, nil, warn(KindStepInactive, "The location step is no longer active.", nil)
	}

	next, lookup, err := w.SelectPoint(s, p, SourceGeolocation)
	if err != nil {
		return s, nil, err
	}
	return next, lookup, nil
}
