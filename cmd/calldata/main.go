package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/betbot/gostat/pkg/evmabi"
	"github.com/betbot/gostat/pkg/wad"
)

func main() {
	var (
		op     = flag.String("op", "", "operation to pack: pdf, cdf, erf, ppf")
		xArg   = flag.String("x", "", "WAD argument (raw 1e18 integer, or units with -units)")
		units  = flag.Bool("units", false, "parse -x as decimal units")
		decode = flag.String("decode", "", "hex call data to decode instead of packing")
		result = flag.String("result", "", "hex return data to unpack (requires -op)")
	)
	flag.Parse()

	codec, err := evmabi.NewCodec()
	if err != nil {
		fatal(err)
	}

	switch {
	case *decode != "":
		data, err := parseHex(*decode)
		if err != nil {
			fatal(err)
		}
		gotOp, x, err := codec.DecodeCall(data)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s(%s)\n", gotOp, x)

	case *result != "":
		if *op == "" {
			fatal(fmt.Errorf("-result requires -op"))
		}
		data, err := parseHex(*result)
		if err != nil {
			fatal(err)
		}
		y, err := codec.UnpackResult(*op, data)
		if err != nil {
			fatal(err)
		}
		fmt.Println(y)

	case *op != "":
		if strings.TrimSpace(*xArg) == "" {
			fatal(fmt.Errorf("-x is required"))
		}
		var x wad.Wad
		if *units {
			x, err = wad.ParseUnits(*xArg)
		} else {
			x, err = wad.Parse(*xArg)
		}
		if err != nil {
			fatal(err)
		}
		data, err := codec.PackCall(*op, x)
		if err != nil {
			fatal(err)
		}
		fmt.Println("0x" + hex.EncodeToString(data))

	default:
		fatal(fmt.Errorf("one of -op (pack), -decode or -result is required"))
	}
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
