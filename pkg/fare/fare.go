// Package fare implements the tiered tricycle fare formula.
package fare

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidPassengers is returned by Rules.ValidatePassengers.
var ErrInvalidPassengers = errors.New("invalid passenger count")

// Rules holds the fare constants. Amounts are in minor units.
type Rules struct {
	Currency string

	// BaseFare covers the first IncludedKm for up to GroupSize-1 passengers.
	BaseFare   int64
	IncludedKm float64

	// PerKm is charged for every started kilometer past IncludedKm.
	PerKm int64

	// GroupSurcharge is added once when the party has GroupSize passengers.
	GroupSize      int
	GroupSurcharge int64

	MaxPassengers int
}

// DefaultRules is the city fare matrix: 35 for the first kilometer,
// 10 per succeeding kilometer, 10 extra for a third passenger.
var DefaultRules = Rules{
	Currency:       CurrencyPHP,
	BaseFare:       3500,
	IncludedKm:     1,
	PerKm:          1000,
	GroupSize:      3,
	GroupSurcharge: 1000,
	MaxPassengers:  3,
}

// Calculate applies DefaultRules.
func Calculate(distanceKm float64, passengers int) Money {
	return DefaultRules.Calculate(distanceKm, passengers)
}

// Calculate returns the fare for a trip of distanceKm with the given number
// of passengers. The passenger count is not checked; callers validate it
// with ValidatePassengers.
func (r Rules) Calculate(distanceKm float64, passengers int) Money {
	amount := r.BaseFare
	if passengers == r.GroupSize {
		amount += r.GroupSurcharge
	}
	if distanceKm > r.IncludedKm {
		extraKm := math.Ceil(distanceKm - r.IncludedKm)
		amount += int64(extraKm) * r.PerKm
	}
	return Money{Amount: amount, Currency: r.Currency}
}

// ValidatePassengers checks 1 <= n <= MaxPassengers.
func (r Rules) ValidatePassengers(n int) error {
	if n < 1 || n > r.MaxPassengers {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidPassengers, n, r.MaxPassengers)
	}
	return nil
}

// PassengerOptions lists the selectable passenger counts.
func (r Rules) PassengerOptions() []int {
	opts := make([]int, 0, r.MaxPassengers)
	for i := 1; i <= r.MaxPassengers; i++ {
		opts = append(opts, i)
	}
	return opts
}

// Validate checks that the rules are usable.
func (r Rules) Validate() error {
	var errs []string

	if r.Currency == "" {
		errs = append(errs, "currency is required")
	}
	if r.BaseFare < 0 {
		errs = append(errs, "base fare must not be negative")
	}
	if r.PerKm < 0 {
		errs = append(errs, "per-km fare must not be negative")
	}
	if r.GroupSurcharge < 0 {
		errs = append(errs, "group surcharge must not be negative")
	}
	if r.IncludedKm < 0 || math.IsNaN(r.IncludedKm) {
		errs = append(errs, "included distance must not be negative")
	}
	if r.MaxPassengers < 1 {
		errs = append(errs, fmt.Sprintf("max passengers must be at least 1, got %d", r.MaxPassengers))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid fare rules: %s", strings.Join(errs, "; "))
	}
	return nil
}
