package wizard

import (
	"fmt"

	"github.com/NERVsystems/trikefare/pkg/fare"
	"github.com/NERVsystems/trikefare/pkg/geo"
)

// FareResult is the estimate shown on the last step
type FareResult struct {
	DistanceKm         float64    `json:"distance_km"`
	Fare               fare.Money `json:"fare"`
	Passengers         int        `json:"passengers"`
	CurrentAddress     string     `json:"current_address"`
	DestinationAddress string     `json:"destination_address"`
}

// DistanceText formats the distance as shown to the user
func (r FareResult) DistanceText() string {
	return fmt.Sprintf("Distance: %.2f km", r.DistanceKm)
}

// ComputeResult runs the distance and fare calculators over s
func ComputeResult(s State, rules fare.Rules) (FareResult, error) {
	cur, dst := s.CurrentPoint(), s.DestinationPoint()
	if cur == nil || dst == nil {
		return FareResult{}, warn(KindMissingPoint, "Both locations are required to estimate the fare.", nil)
	}

	km := geo.Distance(*cur, *dst)
	return FareResult{
		DistanceKm:         km,
		Fare:               rules.Calculate(km, s.Passengers),
		Passengers:         s.Passengers,
		CurrentAddress:     s.CurrentAddress().Text,
		DestinationAddress: s.DestinationAddress().Text,
	}, nil
}

// Estimate computes a fare without a session. Both points go through the
// same region check as picked points.
func (w *Wizard) Estimate(from, to geo.Point, passengers int) (FareResult, error) {
	if err := w.cfg.Rules.ValidatePassengers(passengers); err != nil {
		return FareResult{}, warn(KindInvalidPassengers,
			fmt.Sprintf("Please choose between 1 and %d passengers.", w.cfg.Rules.MaxPassengers), err)
	}
	for _, p := range []geo.Point{from, to} {
		if err := w.CheckPoint(p); err != nil {
			return FareResult{}, err
		}
	}

	s := State{Step: StepResult, Passengers: passengers}
	s.Locations[StepCurrent.slot()].Point = &from
	s.Locations[StepDestination.slot()].Point = &to
	return ComputeResult(s, w.cfg.Rules)
}

// progressMilestones is the progress bar width per step, in percent
var progressMilestones = [NumSteps]float64{5, 35, 66.6, 100}

var stepTitles = [NumSteps]string{"Passengers", "Current Location", "Destination", "Fare"}

// Button labels
const (
	LocateLabel   = "Use my location"
	LocatingLabel = "Locating..."
)

// StepIndicator is one circle of the progress bar
type StepIndicator struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// LocationView renders one location step
type LocationView struct {
	Step          Step       `json:"step"`
	Visible       bool       `json:"visible"`
	Point         *geo.Point `json:"point,omitempty"`
	Address       string     `json:"address,omitempty"`
	AddressStatus string     `json:"address_status,omitempty"`
	Map           MapSurface `json:"map"`
	LocateEnabled bool       `json:"locate_enabled"`
	LocateLabel   string     `json:"locate_label"`
}

// ResultView renders the fare step
type ResultView struct {
	CurrentAddress     string  `json:"current_address"`
	DestinationAddress string  `json:"destination_address"`
	DistanceKm         float64 `json:"distance_km"`
	DistanceText       string  `json:"distance_text"`
	Passengers         int     `json:"passengers"`
	Fare               string  `json:"fare"`
	FareAmount         float64 `json:"fare_amount"`
	Currency           string  `json:"currency"`
}

// View is everything a front end needs to draw the wizard
type View struct {
	Step             Step            `json:"step"`
	StepNumber       int             `json:"step_number"`
	Title            string          `json:"title"`
	Progress         float64         `json:"progress_percent"`
	Indicators       []StepIndicator `json:"indicators"`
	Passengers       int             `json:"passengers"`
	PassengerOptions []int           `json:"passenger_options,omitempty"`
	NextEnabled      bool            `json:"next_enabled"`
	NextLabel        string          `json:"next_label,omitempty"`
	RestartVisible   bool            `json:"restart_visible"`
	Loading          bool            `json:"loading"`
	Locations        []LocationView  `json:"locations"`
	Result           *ResultView     `json:"result,omitempty"`
}

// Render maps s to its view model. It has no side effects.
func (w *Wizard) Render(s State) View {
	v := Render(s)
	v.PassengerOptions = w.cfg.Rules.PassengerOptions()
	return v
}

// Render maps s to its view model without configuration dependent fields.
func Render(s State) View {
	step := s.Step
	if step < 0 || int(step) >= NumSteps {
		step = StepPassengers
	}

	v := View{
		Step:           step,
		StepNumber:     step.Number(),
		Title:          stepTitles[step],
		Progress:       progressMilestones[step],
		Passengers:     s.Passengers,
		RestartVisible: step == StepResult,
		Loading:        s.Pending(),
	}

	for i := 0; i < NumSteps; i++ {
		v.Indicators = append(v.Indicators, StepIndicator{
			Number: i + 1,
			Title:  stepTitles[i],
			Active: Step(i) == step,
		})
	}

	switch step {
	case StepPassengers:
		v.NextEnabled, v.NextLabel = true, "Next"
	case StepCurrent:
		v.NextEnabled, v.NextLabel = ready(s.Location(StepCurrent)), "Next"
	case StepDestination:
		v.NextEnabled, v.NextLabel = ready(s.Location(StepDestination)), "Show Fare"
	}

	for _, ls := range []Step{StepCurrent, StepDestination} {
		loc := s.Location(ls)
		lv := LocationView{
			Step:          ls,
			Visible:       ls == step,
			Point:         loc.Point,
			Address:       loc.Address.Text,
			AddressStatus: string(loc.Address.Status),
			Map:           loc.Map,
			LocateEnabled: ls == step && !loc.Locating,
			LocateLabel:   LocateLabel,
		}
		if loc.Locating {
			lv.LocateLabel = LocatingLabel
		}
		v.Locations = append(v.Locations, lv)
	}

	if step == StepResult && s.Result != nil {
		r := s.Result
		v.Result = &ResultView{
			CurrentAddress:     r.CurrentAddress,
			DestinationAddress: r.DestinationAddress,
			DistanceKm:         r.DistanceKm,
			DistanceText:       r.DistanceText(),
			Passengers:         r.Passengers,
			Fare:               r.Fare.String(),
			FareAmount:         r.Fare.Major(),
			Currency:           r.Fare.Currency,
		}
	}

	return v
}
