package fixedmath

import (
	"testing"
	"testing/quick"

	"github.com/betbot/gostat/pkg/wad"
)

func TestErfcAtZero(t *testing.T) {
	// erfc(0) = 1; the rational approximation lands within its stated
	// 1.2e-7 fractional error.
	got := Erfc(wad.Wad{})
	if got.Dist(wad.One).GreaterThan(wad.MustParseU("100000000000")) {
		t.Fatalf("Erfc(0) got=%s want=%s±1e11", got, wad.One)
	}
}

func TestErfcKnownValues(t *testing.T) {
	cases := []struct {
		x         wad.Wad
		want      wad.UWad
		tolerance wad.UWad
	}{
		// erfc(1) = 0.15729920705028513...
		{wad.FromUnits(1), wad.MustParseU("157299207050285131"), wad.MustParseU("500000000000")},
		// erfc(2) = 0.00467773498104726...
		{wad.FromUnits(2), wad.MustParseU("4677734981047266"), wad.MustParseU("500000000000")},
		// erfc(4) = 1.541725790028002e-8
		{wad.FromUnits(4), wad.MustParseU("15417257900"), wad.MustParseU("10000000")},
	}
	for _, c := range cases {
		got := Erfc(c.x)
		if got.Dist(c.want).GreaterThan(c.tolerance) {
			t.Fatalf("Erfc(%s) got=%s want=%s±%s", c.x, got, c.want, c.tolerance)
		}
	}
}

func TestErfcReflection(t *testing.T) {
	// erfc(-x) = 2 - erfc(x), exact by construction.
	for _, raw := range []string{"0", "250000000000000000", "1000000000000000000", "3000000000000000000", "7250000000000000000"} {
		x := wad.MustParse(raw)
		lhs := Erfc(x.Neg())
		rhs := twoOne.Sub(Erfc(x))
		if !lhs.Equal(rhs) {
			t.Fatalf("reflection broken at x=%s: got=%s want=%s", x, lhs, rhs)
		}
	}
}

func TestErfcSaturation(t *testing.T) {
	if got := Erfc(wad.FromUnits(200)); !got.IsZero() {
		t.Fatalf("Erfc(200) got=%s want=0", got)
	}
	if got := Erfc(wad.FromUnits(-200)); !got.Equal(twoOne) {
		t.Fatalf("Erfc(-200) got=%s want=%s", got, twoOne)
	}
}

func TestErfcMonotoneDecreasing(t *testing.T) {
	property := func(a, b int64) bool {
		x := wad.FromInt64(a)
		y := wad.FromInt64(b)
		if y.LessThan(x) {
			x, y = y, x
		}
		return Erfc(y).LessThanOrEqual(Erfc(x))
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 100}); err != nil {
		t.Fatalf("Erfc monotonicity property failed: %v", err)
	}
}

func TestCDFAtZero(t *testing.T) {
	got := CDF(wad.Wad{}, wad.Wad{}, wad.One)
	half := wad.One.Half()
	if got.Dist(half).GreaterThan(wad.MustParseU("100000000000")) {
		t.Fatalf("CDF(0) got=%s want=%s±1e11", got, half)
	}
}

func TestCDFKnownValue(t *testing.T) {
	// Phi(2) = 0.97724986805182079...
	got := CDF(wad.FromUnits(2), wad.Wad{}, wad.One)
	want := wad.MustParseU("977249868051820792")
	if got.Dist(want).GreaterThan(wad.MustParseU("20000000000")) {
		t.Fatalf("CDF(2) got=%s want=%s±2e10", got, want)
	}
}

func TestCDFSaturatesAtSearchBounds(t *testing.T) {
	if got := CDF(wad.LowerBound, wad.Wad{}, wad.One); got.GreaterThanOrEqual(wad.PrecisionThreshold) {
		t.Fatalf("CDF(-8) got=%s, expected saturation below threshold", got)
	}
	if got := CDF(wad.UpperBound, wad.Wad{}, wad.One); wad.One.Sub(got).GreaterThanOrEqual(wad.PrecisionThreshold) {
		t.Fatalf("CDF(8) got=%s, expected saturation near one", got)
	}
}

func TestCDFMonotone(t *testing.T) {
	property := func(a, b int64) bool {
		x := wad.FromInt64(a)
		y := wad.FromInt64(b)
		if y.LessThan(x) {
			x, y = y, x
		}
		return CDF(x, wad.Wad{}, wad.One).LessThanOrEqual(CDF(y, wad.Wad{}, wad.One))
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 100}); err != nil {
		t.Fatalf("CDF monotonicity property failed: %v", err)
	}
}

func TestCDFLocationScale(t *testing.T) {
	// Phi((4-0)/2) equals the standard Phi(2) exactly: the normalization
	// is lossless here.
	scaled := CDF(wad.FromUnits(4), wad.Wad{}, wad.UFromUnits(2))
	standard := CDF(wad.FromUnits(2), wad.Wad{}, wad.One)
	if !scaled.Equal(standard) {
		t.Fatalf("scaled CDF got=%s want=%s", scaled, standard)
	}
	// Centering at the mean gives one half.
	mean := wad.FromUnits(5)
	got := CDF(mean, mean, wad.One)
	if got.Dist(wad.One.Half()).GreaterThan(wad.MustParseU("100000000000")) {
		t.Fatalf("CDF(mean,mean) got=%s want≈%s", got, wad.One.Half())
	}
}

func TestCDFDegenerateScales(t *testing.T) {
	// Zero scale is the step function at the mean.
	if got := CDF(wad.FromUnits(-1), wad.Wad{}, wad.UWad{}); !got.IsZero() {
		t.Fatalf("step below mean got=%s want=0", got)
	}
	if got := CDF(wad.FromUnits(1), wad.Wad{}, wad.UWad{}); !got.Equal(wad.One) {
		t.Fatalf("step above mean got=%s want=%s", got, wad.One)
	}
	if got := CDF(wad.Wad{}, wad.Wad{}, wad.UWad{}); !got.Equal(wad.One.Half()) {
		t.Fatalf("step at mean got=%s want=%s", got, wad.One.Half())
	}
	// A scale beyond the signed range flattens to one half.
	huge := wad.MustParseU("57896044618658097711785492504343953926634992332820282019728792003956564819968")
	if got := CDF(wad.FromUnits(3), wad.Wad{}, huge); !got.Equal(wad.One.Half()) {
		t.Fatalf("flat CDF got=%s want=%s", got, wad.One.Half())
	}
}
