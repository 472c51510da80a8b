package gaussian

// Cross-checks against the float64 normal distribution from gonum. The
// fixed-point pipeline was tuned against these references; tolerances
// reflect the rational erfc approximation (~1.2e-7 of the function
// value) rather than float noise.

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/betbot/gostat/pkg/wad"
)

func fromFloat(t *testing.T, v float64) wad.Wad {
	t.Helper()
	w, err := wad.FromDecimal(decimal.NewFromFloat(v))
	if err != nil {
		t.Fatalf("convert %v: %v", v, err)
	}
	return w
}

func toFloat(t *testing.T, w wad.Wad) float64 {
	t.Helper()
	f, _ := w.Decimal().Float64()
	return f
}

func toFloatU(t *testing.T, u wad.UWad) float64 {
	t.Helper()
	f, _ := u.Decimal().Float64()
	return f
}

func TestPDFMatchesReference(t *testing.T) {
	for x := -6.0; x <= 6.0; x += 0.25 {
		got := toFloat(t, PDF(fromFloat(t, x)))
		want := distuv.UnitNormal.Prob(x)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("pdf(%v) = %v, reference %v", x, got, want)
		}
	}
}

func TestCDFMatchesReference(t *testing.T) {
	for x := -6.0; x <= 6.0; x += 0.25 {
		got := toFloatU(t, CDF(fromFloat(t, x)))
		want := distuv.UnitNormal.CDF(x)
		if math.Abs(got-want) > 2e-7 {
			t.Fatalf("cdf(%v) = %v, reference %v", x, got, want)
		}
	}
}

func TestPPFMatchesReference(t *testing.T) {
	for p := 0.01; p < 0.995; p += 0.01 {
		x, err := PPF(fromFloat(t, p))
		if err != nil {
			t.Fatalf("PPF(%v): %v", p, err)
		}
		got := toFloat(t, x)
		want := distuv.UnitNormal.Quantile(p)
		if math.Abs(got-want) > 1e-4 {
			t.Fatalf("ppf(%v) = %v, reference %v", p, got, want)
		}
	}
}
