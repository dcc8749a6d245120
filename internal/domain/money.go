package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places every stored amount carries.
const CurrencyPlaces = 2

// ZeroAmount is 0.00.
var ZeroAmount = decimal.New(0, -CurrencyPlaces)

// MaxAmount is the largest amount a NUMERIC(14,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// NormalizeAmount rounds an amount to cents (half away from zero) and rejects
// anything that is not strictly positive or exceeds MaxAmount afterwards.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	rounded := amount.Round(CurrencyPlaces)
	if !rounded.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, amount.String())
	}
	if rounded.GreaterThan(MaxAmount) {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %s exceeds %s", ErrInvalidInput, amount.String(), MaxAmount.StringFixed(CurrencyPlaces))
	}
	return rounded, nil
}

// ParseAmount parses a decimal string and normalizes it.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, s)
	}
	return NormalizeAmount(d)
}

// Cents returns the amount, rounded to two places, as a whole number of cents.
// The result stays a decimal so it cannot overflow.
func Cents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces).Shift(CurrencyPlaces)
}

// FromCents turns a whole number of cents back into a two-place amount.
func FromCents(cents decimal.Decimal) decimal.Decimal {
	return cents.Shift(-CurrencyPlaces).Round(CurrencyPlaces)
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(CurrencyPlaces)
}
