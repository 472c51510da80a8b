// Package gaussian implements the standard normal distribution over WAD
// fixed-point numbers: density, cumulative distribution, error function
// and quantile. All functions are pure and deterministic, with hard
// bounds on every loop, which keeps the evaluation cost predictable for
// on-chain style execution environments.
package gaussian

import (
	"fmt"

	"github.com/betbot/gostat/pkg/fixedmath"
	"github.com/betbot/gostat/pkg/wad"
)

// Quantile input domain errors. The probability must lie strictly
// between 0 and ONE.
var (
	ErrProbabilityTooLow  = fmt.Errorf("gaussian: probability too low")
	ErrProbabilityTooHigh = fmt.Errorf("gaussian: probability too high")
)

// solverIterations caps the bisection loop. Together with the precision
// threshold this is a fixed cost contract: the loop never runs longer,
// and exits early once the oracle is within threshold of the target.
const solverIterations = 128

// Densities underflow to zero far inside this magnitude; the early
// return keeps the squaring away from 256-bit overflow for absurd
// inputs.
var pdfHorizon = wad.UFromUnits(100)

// CDF returns P(X <= x) for the standard normal, in [0, ONE]. Total
// over the full signed domain, saturating toward 0 and ONE at the
// extremes.
func CDF(x wad.Wad) wad.UWad {
	return fixedmath.CDF(x, wad.Wad{}, wad.One)
}

// Erf returns the error function as ONE - erfc(x). The identity is
// exact by construction; any bias of the erfc approximation propagates
// unchanged.
func Erf(x wad.Wad) wad.Wad {
	e, _ := fixedmath.Erfc(x).ToInt() // erfc is at most 2e18
	return wad.OneSigned.Sub(e)
}

// PDF returns the standard normal density at x:
//
//	ONE * e^(-x²/(2*ONE)) / SQRT_2PI
//
// Total: symmetric in x, maximal at zero, monotonically decreasing in
// |x|, and underflowing to zero at large magnitudes rather than
// failing.
func PDF(x wad.Wad) wad.Wad {
	a := x.Abs()
	if a.GreaterThanOrEqual(pdfHorizon) {
		return wad.Wad{}
	}
	sq, _ := a.Mul(a).ToInt() // bounded by the horizon
	exponent := sq.Half().Neg()
	ev, err := fixedmath.Exp(exponent)
	if err != nil {
		// Unreachable: the exponent is never positive.
		return wad.Wad{}
	}
	out, _ := ev.MulDiv(wad.One, wad.SqrtTwoPi).ToInt()
	return out
}

// PPF returns the quantile x with CDF(x) within the precision threshold
// of p. Fails with ErrProbabilityTooLow for p <= 0 and
// ErrProbabilityTooHigh for p >= ONE. On budget exhaustion the last
// bisection midpoint is returned as a best-effort approximation, which
// is an accepted tolerance rather than an error.
func PPF(p wad.Wad) (wad.Wad, error) {
	if p.Sign() <= 0 {
		return wad.Wad{}, ErrProbabilityTooLow
	}
	if p.GreaterThanOrEqual(wad.OneSigned) {
		return wad.Wad{}, ErrProbabilityTooHigh
	}
	target, _ := p.ToUint()
	return solve(target, CDF), nil
}

// solve bisects the search interval against a CDF oracle. Correctness
// rests on the oracle being monotone non-decreasing; the bounds are
// chosen so the standard normal CDF saturates within the precision
// threshold outside them.
func solve(p wad.UWad, oracle func(wad.Wad) wad.UWad) wad.Wad {
	left, right := wad.LowerBound, wad.UpperBound
	var mid wad.Wad
	for i := 0; i < solverIterations; i++ {
		mid = left.Add(right).Half()
		c := oracle(mid)
		if c.Dist(p).LessThan(wad.PrecisionThreshold) {
			return mid
		}
		if c.LessThan(p) {
			left = mid
		} else {
			right = mid
		}
	}
	return mid
}
