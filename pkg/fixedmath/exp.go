// Package fixedmath provides deterministic special functions over WAD
// fixed-point numbers: the exponential, integer powers of a fixed-point
// base, the complementary error function and the normal CDF with
// location and scale. Every routine is integer-only with truncating
// division, so results are bit-for-bit reproducible across platforms.
package fixedmath

import (
	"fmt"

	"github.com/betbot/gostat/pkg/wad"
)

// ErrExpOverflow reports an exponent above the supported range of Exp.
var ErrExpOverflow = fmt.Errorf("fixedmath: exponent too large")

var (
	// Euler's number at WAD scale, truncated.
	eWad = wad.MustParseU("2718281828459045235")
	// Below this exponent e^x is under half a WAD unit and truncates to 0.
	expUnderflowBound = wad.MustParse("-42139678854452767551")
	// Above this exponent the intermediate powers would no longer fit
	// 256 bits. The Gaussian kernel only ever needs non-positive
	// exponents plus a sub-unit polynomial correction.
	expOverflowBound = wad.MustParse("50000000000000000000")
)

// Series length for the fractional-part expansion. The tail beyond 32
// terms is far below one WAD unit for arguments in [0, 1).
const expTerms = 32

// Exp returns e^x for a signed WAD exponent. Exponents at or below the
// underflow bound return zero; exponents at or above 50e18 fail with
// ErrExpOverflow. The magnitude is evaluated as an integer power of e
// times a truncated series for the fractional part, and negative
// exponents are reciprocated as 1e36/e^|x|, which undoes the WAD scale
// exactly.
func Exp(x wad.Wad) (wad.UWad, error) {
	if x.GreaterThanOrEqual(expOverflowBound) {
		return wad.UWad{}, ErrExpOverflow
	}
	if x.LessThanOrEqual(expUnderflowBound) {
		return wad.UWad{}, nil
	}
	m := x.Abs()
	q, r := m.DivMod(wad.One)
	v := RPow(eWad, q.Uint64(), wad.One).Mul(expFrac(r))
	if x.Sign() >= 0 {
		return v, nil
	}
	return wad.One.MulDiv(wad.One, v), nil
}

// expFrac evaluates e^r for r in [0, ONE) with a Horner-form Taylor
// series: 1 + r(1 + r/2(1 + r/3(...))).
func expFrac(r wad.UWad) wad.UWad {
	acc := wad.One
	for i := uint64(expTerms); i >= 1; i-- {
		acc = wad.One.Add(r.Mul(acc).Div(wad.UFromUnits(i)))
	}
	return acc
}

// RPow raises a fixed-point base to a plain integer power by
// square-and-multiply, rescaling after every step. RPow(b, 0, s) is s.
// Intermediate products must fit 256 bits; callers keep base^n inside
// the representable range.
func RPow(base wad.UWad, n uint64, scale wad.UWad) wad.UWad {
	result := scale
	b := base
	for n > 0 {
		if n&1 == 1 {
			result = result.MulDiv(b, scale)
		}
		n >>= 1
		if n > 0 {
			b = b.MulDiv(b, scale)
		}
	}
	return result
}
