package fare

import (
	"errors"
	"testing"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		passengers int
		want       int64 // whole pesos
	}{
		{"zero distance", 0, 1, 35},
		{"first km, one passenger", 1.0, 1, 35},
		{"first km, two passengers", 1.0, 2, 35},
		{"first km, three passengers", 1.0, 3, 45},
		{"just past first km", 1.01, 1, 45},
		{"two km", 2.0, 1, 45},
		{"two and a half km", 2.5, 1, 55},
		{"two and a half km, three passengers", 2.5, 3, 65},
		{"ten km", 10.0, 2, 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.distanceKm, tt.passengers)
			if got != Pesos(tt.want) {
				t.Errorf("Calculate(%v, %d) = %v, want %v", tt.distanceKm, tt.passengers, got, Pesos(tt.want))
			}
		})
	}
}

func TestCustomRules(t *testing.T) {
	r := Rules{
		Currency:       CurrencyPHP,
		BaseFare:       2000,
		IncludedKm:     2,
		PerKm:          550,
		GroupSize:      4,
		GroupSurcharge: 500,
		MaxPassengers:  4,
	}
	if got := r.Calculate(3.2, 4); got.Amount != 2000+500+2*550 {
		t.Errorf("Calculate() = %d, want %d", got.Amount, 2000+500+2*550)
	}
	if got := r.Calculate(3.2, 3); got.Amount != 2000+2*550 {
		t.Errorf("Calculate() = %d, want %d", got.Amount, 2000+2*550)
	}
}

func TestValidatePassengers(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		if err := DefaultRules.ValidatePassengers(n); err != nil {
			t.Errorf("ValidatePassengers(%d) error = %v", n, err)
		}
	}
	for _, n := range []int{-1, 0, 4} {
		err := DefaultRules.ValidatePassengers(n)
		if !errors.Is(err, ErrInvalidPassengers) {
			t.Errorf("ValidatePassengers(%d) error = %v, want ErrInvalidPassengers", n, err)
		}
	}
	opts := DefaultRules.PassengerOptions()
	if len(opts) != 3 || opts[0] != 1 || opts[2] != 3 {
		t.Errorf("PassengerOptions() = %v", opts)
	}
}

func TestRulesValidate(t *testing.T) {
	if err := DefaultRules.Validate(); err != nil {
		t.Fatalf("DefaultRules.Validate() error = %v", err)
	}
	bad := DefaultRules
	bad.Currency = ""
	bad.MaxPassengers = 0
	if err := bad.Validate(); err == nil {
		t.Error("Validate() expected error for empty currency and zero max passengers")
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{Pesos(35), "₱35.00"},
		{Money{Amount: 5505, Currency: CurrencyPHP}, "₱55.05"},
		{Money{Amount: -150, Currency: CurrencyPHP}, "-₱1.50"},
		{Money{Amount: 1000, Currency: "EUR"}, "10.00 EUR"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.m, got, tt.want)
		}
	}
	if got := Pesos(45).Major(); got != 45 {
		t.Errorf("Major() = %v, want 45", got)
	}
}
