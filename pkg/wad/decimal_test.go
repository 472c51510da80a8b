package wad

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.5", "500000000000000000"},
		{"-0.5", "-500000000000000000"},
		{"2", "2000000000000000000"},
		{"0.977249868", "977249868000000000"},
		{"0.000000000000000001", "1"},
	}
	for _, c := range cases {
		w, err := ParseUnits(c.in)
		if err != nil {
			t.Fatalf("ParseUnits(%q) error: %v", c.in, err)
		}
		if got := w.String(); got != c.want {
			t.Fatalf("ParseUnits(%q) got=%s want=%s", c.in, got, c.want)
		}
	}
	if _, err := ParseUnits("one half"); err == nil {
		t.Fatalf("ParseUnits should reject junk")
	}
}

func TestFromDecimalRounding(t *testing.T) {
	// Sub-WAD digits round half away from zero.
	d := decimal.RequireFromString("0.0000000000000000015")
	w, err := FromDecimal(d)
	if err != nil {
		t.Fatalf("FromDecimal error: %v", err)
	}
	if w.String() != "2" {
		t.Fatalf("rounding got=%s want=2", w)
	}
}

func TestDecimalRendering(t *testing.T) {
	if got := MustParse("-500000000000000000").Decimal().String(); got != "-0.5" {
		t.Fatalf("Decimal got=%s want=-0.5", got)
	}
	if got := MustParseU("398942280401432678").Decimal().String(); got != "0.398942280401432678" {
		t.Fatalf("Decimal got=%s", got)
	}
}

func TestUFromDecimalRejectsNegative(t *testing.T) {
	d := decimal.RequireFromString("-1")
	if _, err := UFromDecimal(d); !errors.Is(err, ErrNegativeValue) {
		t.Fatalf("UFromDecimal(-1) err got=%v want=%v", err, ErrNegativeValue)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	w := MustParse("1414213562373095048")
	back, err := FromDecimal(w.Decimal())
	if err != nil {
		t.Fatalf("round-trip error: %v", err)
	}
	if !back.Equal(w) {
		t.Fatalf("round-trip got=%s want=%s", back, w)
	}
}
