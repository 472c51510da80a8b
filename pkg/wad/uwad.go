package wad

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// UWad is an unsigned fixed-point number at 1e18 scale, used for
// probabilities and magnitudes. The zero value equals 0.
type UWad struct {
	x uint256.Int
}

// UFromUint64 converts an unsigned integer holding a raw WAD amount.
func UFromUint64(v uint64) UWad {
	return UWad{x: *uint256.NewInt(v)}
}

// UFromUnits converts a whole number of units, e.g. UFromUnits(2) is 2e18.
func UFromUnits(v uint64) UWad {
	var z uint256.Int
	z.Mul(uint256.NewInt(v), &One.x)
	return UWad{x: z}
}

// ParseU reads a raw unsigned WAD integer string.
func ParseU(s string) (UWad, error) {
	u, err := uint256.FromDecimal(s)
	if err != nil {
		return UWad{}, fmt.Errorf("wad: parse %q: %w", s, err)
	}
	return UWad{x: *u}, nil
}

// MustParseU is ParseU for package-level constants; it panics on error.
func MustParseU(s string) UWad {
	u, err := ParseU(s)
	if err != nil {
		panic(err)
	}
	return u
}

// UFromBig converts a non-negative big.Int holding a raw WAD amount.
func UFromBig(b *big.Int) (UWad, error) {
	if b.Sign() < 0 {
		return UWad{}, ErrNegativeValue
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return UWad{}, ErrOutOfRange
	}
	return UWad{x: *u}, nil
}

// IsZero reports whether the value is exactly zero.
func (u UWad) IsZero() bool { return u.x.IsZero() }

// Equal reports exact equality.
func (u UWad) Equal(o UWad) bool { return u.x.Eq(&o.x) }

// LessThan reports u < o.
func (u UWad) LessThan(o UWad) bool { return u.x.Lt(&o.x) }

// GreaterThan reports u > o.
func (u UWad) GreaterThan(o UWad) bool { return u.x.Gt(&o.x) }

// LessThanOrEqual reports u <= o.
func (u UWad) LessThanOrEqual(o UWad) bool { return !u.x.Gt(&o.x) }

// GreaterThanOrEqual reports u >= o.
func (u UWad) GreaterThanOrEqual(o UWad) bool { return !u.x.Lt(&o.x) }

// Add returns u + o.
func (u UWad) Add(o UWad) UWad {
	var z uint256.Int
	z.Add(&u.x, &o.x)
	return UWad{x: z}
}

// Sub returns u - o. The caller ensures u >= o; the difference wraps
// otherwise.
func (u UWad) Sub(o UWad) UWad {
	var z uint256.Int
	z.Sub(&u.x, &o.x)
	return UWad{x: z}
}

// Dist returns |u - o|.
func (u UWad) Dist(o UWad) UWad {
	if u.x.Lt(&o.x) {
		return o.Sub(u)
	}
	return u.Sub(o)
}

// Half returns u/2 truncated.
func (u UWad) Half() UWad {
	var z uint256.Int
	z.Rsh(&u.x, 1)
	return UWad{x: z}
}

// MulDiv returns u*o/d with a single truncating descale. The 256-bit
// intermediate product must not overflow. Division by zero yields zero,
// matching the EVM convention.
func (u UWad) MulDiv(o, d UWad) UWad {
	var z uint256.Int
	z.Mul(&u.x, &o.x)
	z.Div(&z, &d.x)
	return UWad{x: z}
}

// Mul returns the fixed-point product u*o/1e18 truncated.
func (u UWad) Mul(o UWad) UWad { return u.MulDiv(o, One) }

// Div returns the fixed-point quotient u*1e18/o truncated.
func (u UWad) Div(o UWad) UWad { return u.MulDiv(One, o) }

// DivMod returns the plain integer quotient and remainder of u/o.
// The quotient is a bare count, not a WAD-scaled value.
func (u UWad) DivMod(o UWad) (UWad, UWad) {
	var q, r uint256.Int
	q.DivMod(&u.x, &o.x, &r)
	return UWad{x: q}, UWad{x: r}
}

// Uint64 returns the low 64 bits; IsUint64 reports whether that is the
// whole value.
func (u UWad) Uint64() uint64 { return u.x.Uint64() }

// IsUint64 reports whether the value fits in a uint64.
func (u UWad) IsUint64() bool { return u.x.IsUint64() }

// ToInt reinterprets the value in the signed domain. Fails with
// ErrIntegerOverflow above the maximum signed value.
func (u UWad) ToInt() (Wad, error) {
	if u.x.Gt(maxInt256) {
		return Wad{}, ErrIntegerOverflow
	}
	return Wad{x: u.x}, nil
}

// String renders the raw WAD integer in decimal.
func (u UWad) String() string { return u.x.Dec() }

// Big returns the raw WAD amount as a big.Int.
func (u UWad) Big() *big.Int { return u.x.ToBig() }
