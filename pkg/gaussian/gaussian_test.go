package gaussian

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/betbot/gostat/pkg/fixedmath"
	"github.com/betbot/gostat/pkg/wad"
)

var quickCfg = &quick.Config{MaxCount: 200}

func wadDist(a, b wad.Wad) wad.UWad {
	return a.Sub(b).Abs()
}

func TestPDFSymmetry(t *testing.T) {
	f := func(v int64) bool {
		x := wad.FromInt64(v)
		return PDF(x).Equal(PDF(x.Neg()))
	}
	if err := quick.Check(f, quickCfg); err != nil {
		t.Fatal(err)
	}
}

func TestPDFAtZero(t *testing.T) {
	// 1/sqrt(2*pi) = 0.3989422804014326779...
	want := wad.MustParse("398942280401432677")
	got := PDF(wad.Wad{})
	if wadDist(got, want).GreaterThan(wad.UFromUint64(2)) {
		t.Fatalf("pdf(0) = %s, want %s within 2", got, want)
	}
}

func TestPDFMonotoneDecreasingInMagnitude(t *testing.T) {
	f := func(a, b int64) bool {
		x, y := wad.FromInt64(a), wad.FromInt64(b)
		if y.Abs().LessThan(x.Abs()) {
			x, y = y, x
		}
		// |x| <= |y| must imply pdf(x) >= pdf(y).
		return PDF(x).GreaterThanOrEqual(PDF(y))
	}
	if err := quick.Check(f, quickCfg); err != nil {
		t.Fatal(err)
	}
}

func TestPDFUnderflowsFarOut(t *testing.T) {
	for _, units := range []int64{41, 100, 1000, -41, -100, -1000} {
		if got := PDF(wad.FromUnits(units)); !got.IsZero() {
			t.Fatalf("pdf(%d) = %s, want 0", units, got)
		}
	}
	if PDF(wad.FromUnits(5)).IsZero() {
		t.Fatal("pdf(5) underflowed, want positive")
	}
}

func TestCDFAtZero(t *testing.T) {
	got := CDF(wad.Wad{})
	if got.Dist(wad.One.Half()).GreaterThan(wad.UFromUint64(100_000_000_000)) {
		t.Fatalf("cdf(0) = %s, want ~%s", got, wad.One.Half())
	}
}

func TestCDFMonotone(t *testing.T) {
	f := func(a, b int64) bool {
		x, y := wad.FromInt64(a), wad.FromInt64(b)
		if y.LessThan(x) {
			x, y = y, x
		}
		return !CDF(y).LessThan(CDF(x))
	}
	if err := quick.Check(f, quickCfg); err != nil {
		t.Fatal(err)
	}
}

func TestErfComplementIdentity(t *testing.T) {
	// erf + erfc = ONE exactly: erf is defined by the subtraction.
	f := func(v int64) bool {
		x := wad.FromInt64(v)
		ec, err := fixedmath.Erfc(x).ToInt()
		if err != nil {
			return false
		}
		return Erf(x).Add(ec).Equal(wad.OneSigned)
	}
	if err := quick.Check(f, quickCfg); err != nil {
		t.Fatal(err)
	}
}

func TestErfOddSymmetry(t *testing.T) {
	for _, s := range []string{"0.5", "1", "2", "3.5", "0.001"} {
		x, err := wad.ParseUnits(s)
		if err != nil {
			t.Fatal(err)
		}
		if !Erf(x).Equal(Erf(x.Neg()).Neg()) {
			t.Fatalf("erf(%s) != -erf(-%s)", s, s)
		}
	}
}

func TestPPFDomain(t *testing.T) {
	cases := []struct {
		name string
		p    wad.Wad
		want error
	}{
		{"zero", wad.Wad{}, ErrProbabilityTooLow},
		{"negative", wad.FromInt64(-1), ErrProbabilityTooLow},
		{"one", wad.OneSigned, ErrProbabilityTooHigh},
		{"above one", wad.OneSigned.Add(wad.FromInt64(1)), ErrProbabilityTooHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PPF(tc.p); !errors.Is(err, tc.want) {
				t.Fatalf("PPF(%s) err = %v, want %v", tc.p, err, tc.want)
			}
		})
	}
}

func TestPPFMedian(t *testing.T) {
	x, err := PPF(wad.MustParse("500000000000000000"))
	if err != nil {
		t.Fatal(err)
	}
	// The cdf carries a ~3e-8 positive bias at the origin, so the
	// median lands slightly negative rather than at exactly zero.
	if x.Abs().GreaterThan(wad.MustParseU("200000000000")) {
		t.Fatalf("ppf(1/2) = %s, want ~0", x)
	}
}

func TestPPFTwoSigma(t *testing.T) {
	// Phi(2) = 0.97724986805...
	x, err := PPF(wad.MustParse("977249868000000000"))
	if err != nil {
		t.Fatal(err)
	}
	if wadDist(x, wad.FromUnits(2)).GreaterThan(wad.MustParseU("5000000000000")) {
		t.Fatalf("ppf(0.977249868) = %s, want ~2", x)
	}
}

func TestPPFRoundTrip(t *testing.T) {
	probs := []string{
		"0.001", "0.025", "0.1", "0.16", "0.5",
		"0.84", "0.9", "0.975", "0.977249868", "0.999",
	}
	for _, s := range probs {
		p, err := wad.ParseUnits(s)
		if err != nil {
			t.Fatal(err)
		}
		x, err := PPF(p)
		if err != nil {
			t.Fatalf("PPF(%s): %v", s, err)
		}
		pu, _ := p.ToUint()
		if d := CDF(x).Dist(pu); !d.LessThan(wad.PrecisionThreshold) {
			t.Fatalf("cdf(ppf(%s)) off by %s, want < %s", s, d, wad.PrecisionThreshold)
		}
	}
}

func TestPPFRoundTripProperty(t *testing.T) {
	// Probabilities drawn from [0.001, 0.999).
	lo := int64(1_000_000_000_000_000)
	span := int64(998_000_000_000_000_000)
	f := func(v int64) bool {
		raw := v % span
		if raw < 0 {
			raw = -raw
		}
		p := wad.FromInt64(lo + raw)
		x, err := PPF(p)
		if err != nil {
			return false
		}
		pu, _ := p.ToUint()
		return CDF(x).Dist(pu).LessThan(wad.PrecisionThreshold)
	}
	if err := quick.Check(f, quickCfg); err != nil {
		t.Fatal(err)
	}
}

func TestSolverBudget(t *testing.T) {
	// A discontinuous oracle never satisfies the threshold, so the
	// solver must exhaust its budget and hand back the last midpoint.
	step := wad.FromUnits(3)
	calls := 0
	oracle := func(x wad.Wad) wad.UWad {
		calls++
		if x.LessThan(step) {
			return wad.UWad{}
		}
		return wad.One
	}
	got := solve(wad.One.Half(), oracle)
	if calls != solverIterations {
		t.Fatalf("oracle called %d times, want %d", calls, solverIterations)
	}
	// 128 halvings of a 16e18-wide interval pin the midpoint to the
	// discontinuity.
	if wadDist(got, step).GreaterThan(wad.UFromUint64(1)) {
		t.Fatalf("solver returned %s, want ~%s", got, step)
	}
}

func TestSolverEarlyExit(t *testing.T) {
	calls := 0
	oracle := func(x wad.Wad) wad.UWad {
		calls++
		return CDF(x)
	}
	if x := solve(wad.One.Half(), oracle); x.Abs().GreaterThan(wad.MustParseU("200000000000")) {
		t.Fatalf("solver returned %s, want ~0", x)
	}
	if calls >= solverIterations {
		t.Fatalf("median lookup used the whole budget (%d calls)", calls)
	}
}
