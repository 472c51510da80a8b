// Package wad implements signed and unsigned fixed-point numbers scaled
// by 1e18, the numeric convention used by on-chain financial contracts.
// Values are stored as 256-bit integers; the signed type follows two's
// complement int256 semantics and all divisions truncate toward zero,
// matching EVM arithmetic.
package wad

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Sentinel errors returned by the fallible conversions.
var (
	// ErrIntegerOverflow reports an unsigned value that exceeds the
	// maximum representable signed value.
	ErrIntegerOverflow = fmt.Errorf("wad: unsigned value overflows signed range")
	// ErrNegativeValue reports a negative value used where only
	// non-negative values are representable.
	ErrNegativeValue = fmt.Errorf("wad: negative value")
	// ErrOutOfRange reports an input outside the 256-bit domain during
	// parsing or big.Int bridging.
	ErrOutOfRange = fmt.Errorf("wad: value out of range")
)

// Wad is a signed fixed-point number: the real value v is stored as
// round(v * 1e18) in a two's complement 256-bit integer. The zero value
// is ready to use and equals 0.
type Wad struct {
	x uint256.Int
}

// Package constants shared by the distribution math.
var (
	// One is the scale factor 1e18 in the unsigned domain.
	One = MustParseU("1000000000000000000")
	// OneSigned mirrors One in the signed domain.
	OneSigned = MustParse("1000000000000000000")
	// SqrtTwoPi is sqrt(2*pi) at WAD scale, truncated.
	SqrtTwoPi = MustParseU("2506628274631000502")
	// LowerBound and UpperBound delimit the quantile search interval.
	// The standard normal CDF saturates well inside them.
	LowerBound = MustParse("-8000000000000000000")
	UpperBound = MustParse("8000000000000000000")
	// PrecisionThreshold is the accepted absolute error on the
	// probability scale: 1e8 here is 1e-10 of probability mass.
	PrecisionThreshold = MustParseU("100000000")
)

var (
	// 2^255 - 1 and 2^255, the signed-range magnitudes.
	maxInt256    = func() *uint256.Int { v := new(uint256.Int).Lsh(uint256.NewInt(1), 255); return v.Sub(v, uint256.NewInt(1)) }()
	minMagnitude = new(uint256.Int).Lsh(uint256.NewInt(1), 255)
)

// FromInt64 converts a signed integer holding a raw WAD amount.
func FromInt64(v int64) Wad {
	if v >= 0 {
		return Wad{x: *uint256.NewInt(uint64(v))}
	}
	// uint64(-v) wraps to the correct magnitude for MinInt64 as well.
	var z uint256.Int
	z.Neg(uint256.NewInt(uint64(-v)))
	return Wad{x: z}
}

// FromUnits converts a whole number of units, e.g. FromUnits(2) is 2e18.
func FromUnits(v int64) Wad {
	u := FromInt64(v)
	// Two's complement multiplication by a positive integer keeps the sign.
	var z uint256.Int
	z.Mul(&u.x, &One.x)
	return Wad{x: z}
}

// Parse reads a raw WAD integer string, e.g. "-42139678854452767551".
func Parse(s string) (Wad, error) {
	body, neg := strings.CutPrefix(s, "-")
	u, err := uint256.FromDecimal(body)
	if err != nil {
		return Wad{}, fmt.Errorf("wad: parse %q: %w", s, err)
	}
	if neg {
		if u.Gt(minMagnitude) {
			return Wad{}, ErrOutOfRange
		}
		var z uint256.Int
		z.Neg(u)
		return Wad{x: z}, nil
	}
	if u.Gt(maxInt256) {
		return Wad{}, ErrOutOfRange
	}
	return Wad{x: *u}, nil
}

// MustParse is Parse for package-level constants; it panics on error.
func MustParse(s string) Wad {
	w, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return w
}

// FromBig converts a signed big.Int holding a raw WAD amount.
func FromBig(b *big.Int) (Wad, error) {
	mag, overflow := uint256.FromBig(new(big.Int).Abs(b))
	if overflow {
		return Wad{}, ErrOutOfRange
	}
	if b.Sign() < 0 {
		if mag.Gt(minMagnitude) {
			return Wad{}, ErrOutOfRange
		}
		var z uint256.Int
		z.Neg(mag)
		return Wad{x: z}, nil
	}
	if mag.Gt(maxInt256) {
		return Wad{}, ErrOutOfRange
	}
	return Wad{x: *mag}, nil
}

// Sign returns -1, 0 or +1.
func (w Wad) Sign() int { return w.x.Sign() }

// IsZero reports whether the value is exactly zero.
func (w Wad) IsZero() bool { return w.x.IsZero() }

// IsNegative reports whether the value is below zero.
func (w Wad) IsNegative() bool { return w.x.Sign() < 0 }

// Equal reports exact equality.
func (w Wad) Equal(o Wad) bool { return w.x.Eq(&o.x) }

// LessThan reports w < o in signed order.
func (w Wad) LessThan(o Wad) bool { return w.x.Slt(&o.x) }

// GreaterThan reports w > o in signed order.
func (w Wad) GreaterThan(o Wad) bool { return w.x.Sgt(&o.x) }

// LessThanOrEqual reports w <= o in signed order.
func (w Wad) LessThanOrEqual(o Wad) bool { return !w.x.Sgt(&o.x) }

// GreaterThanOrEqual reports w >= o in signed order.
func (w Wad) GreaterThanOrEqual(o Wad) bool { return !w.x.Slt(&o.x) }

// Add returns w + o with two's complement wrap-around.
func (w Wad) Add(o Wad) Wad {
	var z uint256.Int
	z.Add(&w.x, &o.x)
	return Wad{x: z}
}

// Sub returns w - o with two's complement wrap-around.
func (w Wad) Sub(o Wad) Wad {
	var z uint256.Int
	z.Sub(&w.x, &o.x)
	return Wad{x: z}
}

// Neg returns -w.
func (w Wad) Neg() Wad {
	var z uint256.Int
	z.Neg(&w.x)
	return Wad{x: z}
}

// Abs returns |w| in the unsigned domain. Total: the magnitude of the
// minimum signed value is representable unsigned.
func (w Wad) Abs() UWad {
	var z uint256.Int
	z.Abs(&w.x)
	return UWad{x: z}
}

// Half returns w/2 truncated toward zero.
func (w Wad) Half() Wad {
	var z uint256.Int
	z.SDiv(&w.x, uint256.NewInt(2))
	return Wad{x: z}
}

// Mul returns the fixed-point product w*o/1e18 truncated toward zero.
// The 256-bit intermediate product must not overflow; the distribution
// math stays far inside that range.
func (w Wad) Mul(o Wad) Wad {
	neg := (w.x.Sign() < 0) != (o.x.Sign() < 0)
	m := w.Abs().MulDiv(o.Abs(), One)
	if neg {
		return Wad{x: m.x}.Neg()
	}
	return Wad{x: m.x}
}

// Div returns the fixed-point quotient w*1e18/o truncated toward zero.
// Division by zero yields zero, matching the EVM convention.
func (w Wad) Div(o Wad) Wad {
	neg := (w.x.Sign() < 0) != (o.x.Sign() < 0)
	m := w.Abs().MulDiv(One, o.Abs())
	if neg {
		return Wad{x: m.x}.Neg()
	}
	return Wad{x: m.x}
}

// ToUint reinterprets a non-negative value in the unsigned domain.
// Fails with ErrNegativeValue for negative input.
func (w Wad) ToUint() (UWad, error) {
	if w.x.Sign() < 0 {
		return UWad{}, ErrNegativeValue
	}
	return UWad{x: w.x}, nil
}

// String renders the raw WAD integer in decimal, e.g. "-500000000000000000".
func (w Wad) String() string {
	if w.x.Sign() < 0 {
		var n uint256.Int
		n.Neg(&w.x)
		return "-" + n.Dec()
	}
	return w.x.Dec()
}

// Big returns the raw WAD amount as a signed big.Int.
func (w Wad) Big() *big.Int {
	if w.x.Sign() < 0 {
		var n uint256.Int
		n.Neg(&w.x)
		return new(big.Int).Neg(n.ToBig())
	}
	return w.x.ToBig()
}
