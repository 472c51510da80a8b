package evmabi

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/betbot/gostat/pkg/wad"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec()
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestSelectors(t *testing.T) {
	c := newTestCodec(t)

	seen := make(map[string]string)
	for _, op := range c.Ops() {
		sel, err := c.Selector(op)
		if err != nil {
			t.Fatalf("Selector(%s): %v", op, err)
		}
		if len(sel) != 4 {
			t.Fatalf("Selector(%s): got %d bytes, want 4", op, len(sel))
		}
		if prev, dup := seen[string(sel)]; dup {
			t.Fatalf("selector collision between %s and %s", prev, op)
		}
		seen[string(sel)] = op
	}

	if _, err := c.Selector("tanh"); err == nil {
		t.Fatal("Selector of unknown op should fail")
	}
}

func TestPackCall(t *testing.T) {
	c := newTestCodec(t)

	data, err := c.PackCall("pdf", wad.FromUnits(1))
	if err != nil {
		t.Fatalf("PackCall: %v", err)
	}
	// 4-byte selector plus one 32-byte word.
	if len(data) != 4+32 {
		t.Fatalf("call data length = %d, want 36", len(data))
	}
	sel, _ := c.Selector("pdf")
	if !bytes.Equal(data[:4], sel) {
		t.Fatalf("call data selector = %x, want %x", data[:4], sel)
	}

	if _, err := c.PackCall("exp", wad.Wad{}); err == nil {
		t.Fatal("PackCall of unknown op should fail")
	}
}

func TestCallRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	values := []wad.Wad{
		{},
		wad.FromUnits(1),
		wad.FromUnits(-3),
		wad.MustParse("-1234567890123456789"),
		wad.MustParse("500000000000000000"),
	}
	for _, op := range c.Ops() {
		for _, x := range values {
			data, err := c.PackCall(op, x)
			if err != nil {
				t.Fatalf("PackCall(%s, %s): %v", op, x, err)
			}
			gotOp, gotX, err := c.DecodeCall(data)
			if err != nil {
				t.Fatalf("DecodeCall(%s, %s): %v", op, x, err)
			}
			if gotOp != op {
				t.Fatalf("DecodeCall op = %s, want %s", gotOp, op)
			}
			if !gotX.Equal(x) {
				t.Fatalf("DecodeCall(%s) x = %s, want %s", op, gotX, x)
			}
		}
	}
}

func TestDecodeCallErrors(t *testing.T) {
	c := newTestCodec(t)

	if _, _, err := c.DecodeCall([]byte{0x01, 0x02}); err == nil {
		t.Fatal("short call data should fail")
	}
	bogus := make([]byte, 36)
	bogus[0], bogus[1], bogus[2], bogus[3] = 0xde, 0xad, 0xbe, 0xef
	if _, _, err := c.DecodeCall(bogus); err == nil {
		t.Fatal("unknown selector should fail")
	}
}

func TestUnpackResult(t *testing.T) {
	c := newTestCodec(t)

	cases := []struct {
		name string
		op   string
		val  string
	}{
		{"pdf at zero", "pdf", "398942280401432678"},
		{"cdf midpoint", "cdf", "500000015000000224"},
		{"negative erf", "erf", "-842700792949714869"},
		{"ppf tail", "ppf", "-1000000000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := wad.MustParse(tc.val)
			raw, err := c.abi.Methods[tc.op].Outputs.Pack(want.Big())
			if err != nil {
				t.Fatalf("encode return value: %v", err)
			}
			got, err := c.UnpackResult(tc.op, raw)
			if err != nil {
				t.Fatalf("UnpackResult: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("UnpackResult = %s, want %s", got, want)
			}
		})
	}

	t.Run("unknown op", func(t *testing.T) {
		if _, err := c.UnpackResult("exp", make([]byte, 32)); err == nil {
			t.Fatal("unknown op should fail")
		}
	})

	t.Run("truncated data", func(t *testing.T) {
		if _, err := c.UnpackResult("pdf", []byte{0x01}); err == nil {
			t.Fatal("truncated return data should fail")
		}
	})
}

func TestResultIsBigInt(t *testing.T) {
	c := newTestCodec(t)

	want := big.NewInt(7)
	raw, err := c.abi.Methods["erf"].Outputs.Pack(want)
	if err != nil {
		t.Fatalf("encode return value: %v", err)
	}
	got, err := c.UnpackResult("erf", raw)
	if err != nil {
		t.Fatalf("UnpackResult: %v", err)
	}
	if got.Big().Cmp(want) != 0 {
		t.Fatalf("UnpackResult raw = %s, want %s", got.Big(), want)
	}
}
