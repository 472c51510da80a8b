package wad

import (
	"errors"
	"math/big"
	"testing"
	"testing/quick"
)

func TestConversionFailures(t *testing.T) {
	if _, err := FromInt64(-1).ToUint(); !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("ToUint(-1) err got=%v want=%v", err, ErrNegativeValue)
	}
	// 2^256-1 is the maximum unsigned value and has no signed counterpart.
	maxU := UWad{}
	maxU.x.SetAllOne()
	if _, err := maxU.ToInt(); !errors.Is(err, ErrIntegerOverflow) {
		t.Fatalf("ToInt(maxUint) err got=%v want=%v", err, ErrIntegerOverflow)
	}
	// 2^255-1 is the largest value valid in both domains.
	edge := UWad{x: *maxInt256}
	if _, err := edge.ToInt(); err != nil {
		t.Fatalf("ToInt(maxInt256) unexpected error: %v", err)
	}
	if _, err := edge.Add(UFromUint64(1)).ToInt(); !errors.Is(err, ErrIntegerOverflow) {
		t.Fatalf("ToInt(2^255) should overflow")
	}
}

func TestConversionRoundTrip(t *testing.T) {
	property := func(v int64) bool {
		if v < 0 {
			v = -v
		}
		if v < 0 { // MinInt64 negates to itself
			return true
		}
		w := FromInt64(v)
		u, err := w.ToUint()
		if err != nil {
			return false
		}
		back, err := u.ToInt()
		if err != nil {
			return false
		}
		return back.Equal(w)
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 100}); err != nil {
		t.Fatalf("conversion round-trip property failed: %v", err)
	}
}

func TestAbs(t *testing.T) {
	if got := FromInt64(-5).Abs(); !got.Equal(UFromUint64(5)) {
		t.Fatalf("Abs(-5) got=%s want=5", got)
	}
	if got := FromInt64(7).Abs(); !got.Equal(UFromUint64(7)) {
		t.Fatalf("Abs(7) got=%s want=7", got)
	}
	// The minimum signed value keeps its magnitude in the unsigned domain.
	minW := Wad{}
	minW.x.Set(minMagnitude)
	if got := minW.Abs(); !got.Equal(UWad{x: *minMagnitude}) {
		t.Fatalf("Abs(minInt256) got=%s want=2^255", got)
	}
}

func TestHalfTruncatesTowardZero(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{5, 2},
		{-5, -2},
		{4, 2},
		{-4, -2},
		{1, 0},
		{-1, 0},
	}
	for _, c := range cases {
		if got := FromInt64(c.in).Half(); !got.Equal(FromInt64(c.want)) {
			t.Fatalf("Half(%d) got=%s want=%d", c.in, got, c.want)
		}
	}
}

func TestMulDivWadScale(t *testing.T) {
	two := FromUnits(2)
	three := FromUnits(3)
	if got := two.Mul(three); !got.Equal(FromUnits(6)) {
		t.Fatalf("2*3 got=%s want=6e18", got)
	}
	if got := two.Mul(three.Neg()); !got.Equal(FromUnits(-6)) {
		t.Fatalf("2*-3 got=%s want=-6e18", got)
	}
	// 1/3 at WAD scale truncates to ...333.
	third := OneSigned.Div(three)
	if got := third.String(); got != "333333333333333333" {
		t.Fatalf("1/3 got=%s want=333333333333333333", got)
	}
	if got := OneSigned.Neg().Div(three).String(); got != "-333333333333333333" {
		t.Fatalf("-1/3 got=%s want=-333333333333333333", got)
	}
}

func TestUWadMulDiv(t *testing.T) {
	half := MustParseU("500000000000000000")
	if got := half.Mul(half); got.String() != "250000000000000000" {
		t.Fatalf("0.5*0.5 got=%s want=250000000000000000", got)
	}
	if got := One.Div(UFromUnits(4)); got.String() != "250000000000000000" {
		t.Fatalf("1/4 got=%s want=250000000000000000", got)
	}
	// MulDiv with a custom descale: 1e18 * 1e18 / 4e17 = 2.5e18.
	if got := One.MulDiv(One, MustParseU("400000000000000000")); !got.Equal(MustParseU("2500000000000000000")) {
		t.Fatalf("MulDiv got=%s want=2500000000000000000", got)
	}
}

func TestDivMod(t *testing.T) {
	q, r := MustParseU("2500000000000000000").DivMod(One)
	if q.Uint64() != 2 {
		t.Fatalf("quotient got=%d want=2", q.Uint64())
	}
	if !r.Equal(MustParseU("500000000000000000")) {
		t.Fatalf("remainder got=%s want=500000000000000000", r)
	}
}

func TestDist(t *testing.T) {
	a := UFromUint64(10)
	b := UFromUint64(3)
	if got := a.Dist(b); got.Uint64() != 7 {
		t.Fatalf("Dist got=%d want=7", got.Uint64())
	}
	if got := b.Dist(a); got.Uint64() != 7 {
		t.Fatalf("Dist reversed got=%d want=7", got.Uint64())
	}
}

func TestParseAndString(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"-1",
		"1000000000000000000",
		"-42139678854452767551",
		"2506628274631000502",
	}
	for _, s := range cases {
		w, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", s, err)
		}
		if got := w.String(); got != s {
			t.Fatalf("String round-trip got=%q want=%q", got, s)
		}
	}
	if _, err := Parse("not-a-number"); err == nil {
		t.Fatalf("Parse should reject junk")
	}
	// 2^255 is out of the positive signed range.
	if _, err := Parse("57896044618658097711785492504343953926634992332820282019728792003956564819968"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Parse(2^255) err got=%v want=%v", err, ErrOutOfRange)
	}
}

func TestBigBridge(t *testing.T) {
	w := MustParse("-8000000000000000000")
	b := w.Big()
	if b.String() != "-8000000000000000000" {
		t.Fatalf("Big got=%s", b)
	}
	back, err := FromBig(b)
	if err != nil {
		t.Fatalf("FromBig error: %v", err)
	}
	if !back.Equal(w) {
		t.Fatalf("Big round-trip got=%s want=%s", back, w)
	}
	big257 := new(big.Int).Lsh(big.NewInt(1), 257)
	if _, err := FromBig(big257); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("FromBig(2^257) err got=%v want=%v", err, ErrOutOfRange)
	}
}

func TestSignedComparisons(t *testing.T) {
	neg := FromUnits(-2)
	pos := FromUnits(3)
	if !neg.LessThan(pos) {
		t.Fatalf("-2 < 3 should hold")
	}
	if !pos.GreaterThan(neg) {
		t.Fatalf("3 > -2 should hold")
	}
	if !neg.LessThanOrEqual(neg) || !neg.GreaterThanOrEqual(neg) {
		t.Fatalf("reflexive comparisons should hold")
	}
	if neg.Sign() != -1 || pos.Sign() != 1 || (Wad{}).Sign() != 0 {
		t.Fatalf("Sign values wrong")
	}
}

func TestConstants(t *testing.T) {
	if One.String() != "1000000000000000000" {
		t.Fatalf("One got=%s", One)
	}
	if SqrtTwoPi.String() != "2506628274631000502" {
		t.Fatalf("SqrtTwoPi got=%s", SqrtTwoPi)
	}
	if LowerBound.String() != "-8000000000000000000" {
		t.Fatalf("LowerBound got=%s", LowerBound)
	}
	if UpperBound.String() != "8000000000000000000" {
		t.Fatalf("UpperBound got=%s", UpperBound)
	}
	if PrecisionThreshold.String() != "100000000" {
		t.Fatalf("PrecisionThreshold got=%s", PrecisionThreshold)
	}
	if !LowerBound.Neg().Equal(UpperBound) {
		t.Fatalf("bounds should be symmetric")
	}
}
