// Package wizard implements the four-step fare estimation flow as an explicit
// State value and pure transition functions over it.
//
// A Wizard holds the immutable configuration (service region, map defaults,
// fare rules). Every transition takes a State and returns the next State,
// leaving the input untouched when the transition is rejected. Session wraps
// one State with the collaborators (geocoder, searcher, locator) and
// serializes updates, including asynchronous address lookups.
package wizard

import (
	"fmt"

	"github.com/NERVsystems/trikefare/pkg/geo"
)

// Step identifies one page of the wizard
type Step int

const (
	StepPassengers Step = iota
	StepCurrent
	StepDestination
	StepResult
)

// NumSteps is the number of wizard steps
const NumSteps = 4

var stepNames = [NumSteps]string{"passengers", "current_location", "destination", "result"}

func (s Step) String() string {
	if s < 0 || int(s) >= NumSteps {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalText encodes the step by name
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a step name
func (s *Step) UnmarshalText(b []byte) error {
	for i, name := range stepNames {
		if name == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", b)
}

// Number returns the 1-based step number
func (s Step) Number() int {
	return int(s) + 1
}

// IsLocation reports whether the step picks a point on a map
func (s Step) IsLocation() bool {
	return s == StepCurrent || s == StepDestination
}

// slot maps a location step to its index in State.Locations
func (s Step) slot() int {
	return int(s) - int(StepCurrent)
}

// Source is the input method a point was acquired with
type Source string

const (
	SourceClick       Source = "click"
	SourceSearch      Source = "search"
	SourceGeolocation Source = "geolocation"
)

// AddressStatus tracks the reverse lookup for a picked point
type AddressStatus string

const (
	AddressAbsent   AddressStatus = ""
	AddressPending  AddressStatus = "pending"
	AddressResolved AddressStatus = "resolved"
)

// Address is the display address of a picked point
type Address struct {
	Status AddressStatus `json:"status,omitempty"`
	Text   string        `json:"text,omitempty"`
	// Seq is the lookup that produced, or will produce, Text.
	Seq uint64 `json:"-"`
}

// MapSurface is the state of one step's map widget
type MapSurface struct {
	Activated   bool            `json:"activated"`
	Center      geo.Point       `json:"center"`
	Zoom        int             `json:"zoom"`
	MaxBounds   geo.BoundingBox `json:"max_bounds"`
	TileURL     string          `json:"tile_url,omitempty"`
	Attribution string          `json:"attribution,omitempty"`
	Marker      *geo.Point      `json:"marker,omitempty"`
	// Refreshes counts layout refreshes after activation.
	Refreshes int `json:"refreshes"`
}

// Location is everything a location step owns
type Location struct {
	Point    *geo.Point `json:"point,omitempty"`
	Address  Address    `json:"address"`
	Map      MapSurface `json:"map"`
	Unlocked bool       `json:"unlocked"`
	Locating bool       `json:"locating"`

	// LocateSeq stamps the newest geolocation request of this step.
	LocateSeq uint64 `json:"-"`
}

// State is the whole wizard state. It is a value: transitions return a
// modified copy. Points are never mutated in place, only replaced.
type State struct {
	Step       Step        `json:"step"`
	Passengers int         `json:"passengers"`
	Locations  [2]Location `json:"locations"`
	// Seq is the last issued lookup sequence number. It survives Restart so
	// lookups issued before a restart can never match a later request.
	Seq    uint64      `json:"-"`
	Result *FareResult `json:"result,omitempty"`
}

// Location returns the location owned by a location step
func (s State) Location(step Step) Location {
	if !step.IsLocation() {
		return Location{}
	}
	return s.Locations[step.slot()]
}

// CurrentPoint returns the picked current location, or nil
func (s State) CurrentPoint() *geo.Point {
	return s.Locations[StepCurrent.slot()].Point
}

// DestinationPoint returns the picked destination, or nil
func (s State) DestinationPoint() *geo.Point {
	return s.Locations[StepDestination.slot()].Point
}

// CurrentAddress returns the current location's address
func (s State) CurrentAddress() Address {
	return s.Locations[StepCurrent.slot()].Address
}

// DestinationAddress returns the destination's address
func (s State) DestinationAddress() Address {
	return s.Locations[StepDestination.slot()].Address
}

// Pending reports whether any address lookup is outstanding
func (s State) Pending() bool {
	for _, loc := range s.Locations {
		if loc.Address.Status == AddressPending {
			return true
		}
	}
	return false
}
