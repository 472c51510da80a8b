package wad

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Boundary conversions between human decimal units and raw WAD amounts.
// The numeric core never touches decimals; only the service, SDK and CLI
// layers render and parse them.

// FromDecimal converts a decimal number of units into a WAD amount,
// rounding half away from zero beyond 18 fractional digits.
func FromDecimal(d decimal.Decimal) (Wad, error) {
	scaled := d.Shift(18).Round(0)
	return FromBig(scaled.BigInt())
}

// UFromDecimal is FromDecimal for the unsigned domain.
func UFromDecimal(d decimal.Decimal) (UWad, error) {
	if d.IsNegative() {
		return UWad{}, ErrNegativeValue
	}
	scaled := d.Shift(18).Round(0)
	return UFromBig(scaled.BigInt())
}

// ParseUnits reads a decimal unit string such as "0.977249868".
func ParseUnits(s string) (Wad, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Wad{}, fmt.Errorf("wad: parse units %q: %w", s, err)
	}
	return FromDecimal(d)
}

// Decimal renders the value in units, e.g. "-0.5" for -5e17.
func (w Wad) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(w.Big(), -18)
}

// Decimal renders the value in units.
func (u UWad) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(u.Big(), -18)
}
