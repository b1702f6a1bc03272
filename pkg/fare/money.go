package fare

import "fmt"

// CurrencyPHP is the ISO 4217 code of the Philippine peso
const CurrencyPHP = "PHP"

var currencySymbols = map[string]string{
	CurrencyPHP: "₱",
	"USD":       "$",
}

// Money is an amount in minor units (centavos for PHP).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Pesos builds a PHP amount from whole pesos.
func Pesos(p int64) Money {
	return Money{Amount: p * 100, Currency: CurrencyPHP}
}

// Add returns m plus n minor units
func (m Money) Add(n int64) Money {
	m.Amount += n
	return m
}

// Major returns the amount in major units, e.g. 35.5 for 3550 centavos.
func (m Money) Major() float64 {
	return float64(m.Amount) / 100
}

// String formats the amount with its currency symbol and two decimals.
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	symbol, ok := currencySymbols[m.Currency]
	if !ok {
		return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, amount/100, amount%100)
}
