package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/betbot/gostat/pkg/fixedmath"
	"github.com/betbot/gostat/pkg/gaussian"
	"github.com/betbot/gostat/pkg/wad"
)

type rowOut struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type singleOut struct {
	Op        string `json:"op"`
	Input     string `json:"input"`
	Result    string `json:"result"`
	Reference string `json:"reference,omitempty"`
	Diff      string `json:"diff,omitempty"`
}

type tableOut struct {
	Op   string   `json:"op"`
	Rows []rowOut `json:"rows"`
}

func main() {
	var (
		op      = flag.String("op", "ppf", "operation: pdf, cdf, erf, ppf")
		xArg    = flag.String("x", "", "point argument for pdf/cdf/erf")
		pArg    = flag.String("p", "", "probability argument for ppf")
		meanArg = flag.String("mean", "", "cdf location (default 0)")
		scale   = flag.String("scale", "", "cdf scale (default 1)")
		from    = flag.String("from", "", "table start (inclusive)")
		to      = flag.String("to", "", "table end (inclusive)")
		step    = flag.String("step", "", "table step (positive)")
		units   = flag.Bool("units", false, "read and print decimal units instead of raw 1e18 integers")
		asJSON  = flag.Bool("json", false, "print JSON")
		check   = flag.Bool("check", false, "cross-check against the float64 reference")
	)
	flag.Parse()

	*op = strings.ToLower(strings.TrimSpace(*op))
	switch *op {
	case "pdf", "cdf", "erf", "ppf":
	default:
		fatal(fmt.Errorf("unknown op %q", *op))
	}

	mean, sc := parseCDFParams(*op, *meanArg, *scale, *units)

	if *from != "" || *to != "" || *step != "" {
		runTable(*op, *from, *to, *step, mean, sc, *units, *asJSON)
		return
	}

	raw := *xArg
	if *op == "ppf" && strings.TrimSpace(*pArg) != "" {
		raw = *pArg
	}
	if strings.TrimSpace(raw) == "" {
		fatal(fmt.Errorf("an input is required: -x (or -p for ppf), or -from/-to/-step for a table"))
	}

	x, err := parseValue(raw, *units)
	if err != nil {
		fatal(err)
	}

	result, err := compute(*op, x, mean, sc)
	if err != nil {
		fatal(err)
	}

	out := singleOut{Op: *op, Input: render(x.String(), *units), Result: render(result, *units)}
	if *check {
		ref, diff := referenceDiff(*op, x, mean, sc, result)
		out.Reference = fmt.Sprintf("%.12g", ref)
		out.Diff = fmt.Sprintf("%.3g", diff)
	}

	if *asJSON {
		printJSON(out)
		return
	}
	fmt.Println(out.Result)
	if *check {
		fmt.Fprintf(os.Stderr, "float64 参考值: %s（偏差 %s）\n", out.Reference, out.Diff)
	}
}

func runTable(op, fromArg, toArg, stepArg string, mean wad.Wad, sc wad.UWad, units, asJSON bool) {
	fromW, err := parseValue(fromArg, units)
	if err != nil {
		fatal(fmt.Errorf("from: %w", err))
	}
	toW, err := parseValue(toArg, units)
	if err != nil {
		fatal(fmt.Errorf("to: %w", err))
	}
	stepW, err := parseValue(stepArg, units)
	if err != nil {
		fatal(fmt.Errorf("step: %w", err))
	}
	if stepW.Sign() <= 0 {
		fatal(fmt.Errorf("step must be positive"))
	}
	if toW.LessThan(fromW) {
		fatal(fmt.Errorf("to must not be below from"))
	}

	rows := make([]rowOut, 0, 64)
	for x := fromW; !toW.LessThan(x); x = x.Add(stepW) {
		result, err := compute(op, x, mean, sc)
		if err != nil {
			fatal(fmt.Errorf("at %s: %w", x, err))
		}
		rows = append(rows, rowOut{X: render(x.String(), units), Y: render(result, units)})
	}

	if asJSON {
		printJSON(tableOut{Op: op, Rows: rows})
		return
	}
	for _, r := range rows {
		fmt.Printf("%s\t%s\n", r.X, r.Y)
	}
}

func parseCDFParams(op, meanArg, scaleArg string, units bool) (wad.Wad, wad.UWad) {
	mean := wad.Wad{}
	sc := wad.One
	if op != "cdf" {
		return mean, sc
	}
	if strings.TrimSpace(meanArg) != "" {
		m, err := parseValue(meanArg, units)
		if err != nil {
			fatal(fmt.Errorf("mean: %w", err))
		}
		mean = m
	}
	if strings.TrimSpace(scaleArg) != "" {
		s, err := parseValue(scaleArg, units)
		if err != nil {
			fatal(fmt.Errorf("scale: %w", err))
		}
		u, err := s.ToUint()
		if err != nil {
			fatal(fmt.Errorf("scale: %w", err))
		}
		sc = u
	}
	return mean, sc
}

func compute(op string, x, mean wad.Wad, sc wad.UWad) (string, error) {
	switch op {
	case "pdf":
		return gaussian.PDF(x).String(), nil
	case "cdf":
		return fixedmath.CDF(x, mean, sc).String(), nil
	case "erf":
		return gaussian.Erf(x).String(), nil
	case "ppf":
		out, err := gaussian.PPF(x)
		if err != nil {
			return "", err
		}
		return out.String(), nil
	}
	return "", fmt.Errorf("unknown op %q", op)
}

// referenceDiff computes the float64 reference value and the absolute
// difference against the fixed-point result, both in units.
func referenceDiff(op string, x, mean wad.Wad, sc wad.UWad, result string) (float64, float64) {
	xf, _ := x.Decimal().Float64()
	var ref float64
	switch op {
	case "pdf":
		ref = distuv.UnitNormal.Prob(xf)
	case "cdf":
		mf, _ := mean.Decimal().Float64()
		sf, _ := sc.Decimal().Float64()
		ref = distuv.Normal{Mu: mf, Sigma: sf}.CDF(xf)
	case "erf":
		ref = math.Erf(xf)
	case "ppf":
		ref = distuv.UnitNormal.Quantile(xf)
	}
	got, err := wad.Parse(result)
	if err != nil {
		return ref, math.NaN()
	}
	gf, _ := got.Decimal().Float64()
	return ref, math.Abs(gf - ref)
}

func parseValue(s string, units bool) (wad.Wad, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return wad.Wad{}, fmt.Errorf("value is required")
	}
	if units {
		return wad.ParseUnits(s)
	}
	return wad.Parse(s)
}

func render(canonical string, units bool) string {
	if !units {
		return canonical
	}
	v, err := wad.Parse(canonical)
	if err != nil {
		return canonical
	}
	return v.Decimal().String()
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
