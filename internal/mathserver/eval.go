package mathserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/betbot/gostat/internal/metrics"
	"github.com/betbot/gostat/pkg/fixedmath"
	"github.com/betbot/gostat/pkg/gaussian"
	"github.com/betbot/gostat/pkg/wad"
)

// evalError pairs a failed evaluation with its HTTP status and stable
// wire code, so SDK callers can switch on codes instead of messages.
type evalError struct {
	status int
	code   string
	msg    string
}

func (e *evalError) Error() string { return e.msg }

func invalidInput(err error) *evalError {
	return &evalError{status: http.StatusBadRequest, code: "invalid_input", msg: err.Error()}
}

// mapEvalError translates domain sentinels into wire errors.
func mapEvalError(err error) *evalError {
	var ee *evalError
	if errors.As(err, &ee) {
		return ee
	}
	switch {
	case errors.Is(err, gaussian.ErrProbabilityTooLow):
		return &evalError{status: http.StatusUnprocessableEntity, code: "probability_too_low", msg: err.Error()}
	case errors.Is(err, gaussian.ErrProbabilityTooHigh):
		return &evalError{status: http.StatusUnprocessableEntity, code: "probability_too_high", msg: err.Error()}
	case errors.Is(err, wad.ErrIntegerOverflow):
		return &evalError{status: http.StatusUnprocessableEntity, code: "integer_overflow", msg: err.Error()}
	case errors.Is(err, wad.ErrNegativeValue):
		return &evalError{status: http.StatusUnprocessableEntity, code: "negative_value", msg: err.Error()}
	case errors.Is(err, wad.ErrOutOfRange):
		return &evalError{status: http.StatusBadRequest, code: "out_of_range", msg: err.Error()}
	case errors.Is(err, fixedmath.ErrExpOverflow):
		return &evalError{status: http.StatusUnprocessableEntity, code: "exp_overflow", msg: err.Error()}
	default:
		return invalidInput(err)
	}
}

// evalInput is a fully parsed evaluation request. The canonical cache
// and audit representation is always the WAD integer string, so the
// units rendering mode never fragments the cache.
type evalInput struct {
	op       string
	x        wad.Wad  // pdf/cdf/erf argument, or the probability for ppf
	mean     wad.Wad  // cdf only
	scale    wad.UWad // cdf only
	hasScale bool
}

func (in evalInput) key() string {
	if in.op == "cdf" {
		return in.op + ":" + in.x.String() + ":" + in.mean.String() + ":" + in.scale.String()
	}
	return in.op + ":" + in.x.String()
}

func validOp(op string) bool {
	switch op {
	case "pdf", "cdf", "erf", "ppf":
		return true
	}
	return false
}

func parseSigned(s string, units bool) (wad.Wad, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return wad.Wad{}, fmt.Errorf("value is required")
	}
	if units {
		return wad.ParseUnits(s)
	}
	return wad.Parse(s)
}

// renderCanonical converts a canonical WAD string to the requested
// rendering mode.
func renderCanonical(canonical string, units bool) string {
	if !units {
		return canonical
	}
	v, err := wad.Parse(canonical)
	if err != nil {
		return canonical
	}
	return v.Decimal().String()
}

// parseEvalInput validates the request body against the operation.
func parseEvalInput(op string, req evalRequest) (evalInput, *evalError) {
	in := evalInput{op: op, scale: wad.One}

	raw := req.X
	if op == "ppf" {
		raw = req.P
		if strings.TrimSpace(raw) == "" && strings.TrimSpace(req.X) != "" {
			// Accept p under the generic field as well.
			raw = req.X
		}
	}
	v, err := parseSigned(raw, req.Units)
	if err != nil {
		return in, mapEvalError(err)
	}
	in.x = v

	if op == "cdf" {
		if strings.TrimSpace(req.Mean) != "" {
			m, err := parseSigned(req.Mean, req.Units)
			if err != nil {
				return in, mapEvalError(err)
			}
			in.mean = m
		}
		if strings.TrimSpace(req.Scale) != "" {
			s, err := parseSigned(req.Scale, req.Units)
			if err != nil {
				return in, mapEvalError(err)
			}
			u, err := s.ToUint()
			if err != nil {
				return in, mapEvalError(err)
			}
			in.scale = u
			in.hasScale = true
		}
	}
	return in, nil
}

// evalCompute runs one parsed evaluation and returns the canonical
// result string.
func evalCompute(in evalInput) (string, error) {
	switch in.op {
	case "pdf":
		return gaussian.PDF(in.x).String(), nil
	case "cdf":
		return fixedmath.CDF(in.x, in.mean, in.scale).String(), nil
	case "erf":
		return gaussian.Erf(in.x).String(), nil
	case "ppf":
		out, err := gaussian.PPF(in.x)
		if err != nil {
			return "", err
		}
		return out.String(), nil
	}
	return "", fmt.Errorf("unknown op %q", in.op)
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	op := strings.ToLower(strings.TrimSpace(urlParam(r, "op")))
	if !validOp(op) {
		writeErrorCode(w, http.StatusNotFound, "unknown_op", fmt.Sprintf("unknown op %q", op))
		return
	}

	var req evalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	in, ee := parseEvalInput(op, req)
	if ee != nil {
		metrics.EvalErrors.Add(1)
		writeErrorCode(w, ee.status, ee.code, ee.msg)
		return
	}

	start := time.Now()
	metrics.EvalRequests.Add(1)

	canonical := in.x.String()
	cacheKey := in.key()
	if s.cache != nil {
		if result, ok := s.cache.Get(cacheKey); ok {
			metrics.EvalCacheHits.Add(1)
			s.usage.bump(op)
			s.recordAudit(r, op, canonical, result, "", time.Since(start))
			s.broadcast(op, canonical, result, callerFrom(r))
			writeJSON(w, http.StatusOK, evalResponse{
				Op:     op,
				Input:  renderCanonical(canonical, req.Units),
				Result: renderCanonical(result, req.Units),
				Cached: true,
			})
			return
		}
	}

	result, err := evalCompute(in)
	if err != nil {
		ee := mapEvalError(err)
		metrics.EvalErrors.Add(1)
		s.recordAudit(r, op, canonical, "", ee.code, time.Since(start))
		writeErrorCode(w, ee.status, ee.code, ee.msg)
		return
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, result)
	}
	s.usage.bump(op)
	s.recordAudit(r, op, canonical, result, "", time.Since(start))
	s.broadcast(op, canonical, result, callerFrom(r))

	writeJSON(w, http.StatusOK, evalResponse{
		Op:     op,
		Input:  renderCanonical(canonical, req.Units),
		Result: renderCanonical(result, req.Units),
	})
}

// handleBatch evaluates one operation over many inputs. Items fail
// independently; the response preserves input order. Batch cdf is the
// standard normal (no mean/scale).
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	op := strings.ToLower(strings.TrimSpace(req.Op))
	if !validOp(op) {
		writeErrorCode(w, http.StatusNotFound, "unknown_op", fmt.Sprintf("unknown op %q", op))
		return
	}
	if len(req.Inputs) == 0 {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "inputs is empty")
		return
	}
	if len(req.Inputs) > s.cfg.Eval.BatchMaxSize {
		writeErrorCode(w, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("batch size %d exceeds limit %d", len(req.Inputs), s.cfg.Eval.BatchMaxSize))
		return
	}

	metrics.BatchRequests.Add(1)
	start := time.Now()

	results := make([]batchItem, 0, len(req.Inputs))
	for _, raw := range req.Inputs {
		item := batchItem{Input: raw}
		v, err := parseSigned(raw, req.Units)
		if err != nil {
			ee := mapEvalError(err)
			item.Code, item.Error = ee.code, ee.msg
			results = append(results, item)
			continue
		}
		in := evalInput{op: op, x: v, scale: wad.One}
		result, err := evalCompute(in)
		if err != nil {
			ee := mapEvalError(err)
			item.Code, item.Error = ee.code, ee.msg
			results = append(results, item)
			continue
		}
		s.usage.bump(op)
		item.Result = renderCanonical(result, req.Units)
		results = append(results, item)
	}

	s.recordAudit(r, op, fmt.Sprintf("batch[%d]", len(req.Inputs)), "", "", time.Since(start))
	writeJSON(w, http.StatusOK, batchResponse{Op: op, Results: results})
}

// handleTable renders y = op(x) over a closed range with a fixed step.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	op := strings.ToLower(strings.TrimSpace(q.Get("op")))
	if !validOp(op) {
		writeErrorCode(w, http.StatusNotFound, "unknown_op", fmt.Sprintf("unknown op %q", op))
		return
	}
	units := q.Get("units") == "1" || strings.EqualFold(q.Get("units"), "true")

	from, err := parseSigned(q.Get("from"), units)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("from: %v", err))
		return
	}
	to, err := parseSigned(q.Get("to"), units)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("to: %v", err))
		return
	}
	step, err := parseSigned(q.Get("step"), units)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("step: %v", err))
		return
	}
	if step.Sign() <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "step must be positive")
		return
	}
	if to.LessThan(from) {
		writeErrorCode(w, http.StatusBadRequest, "invalid_input", "to must not be below from")
		return
	}

	metrics.TableRequests.Add(1)
	start := time.Now()

	rows := make([]tableRow, 0, 64)
	for x := from; !to.LessThan(x); x = x.Add(step) {
		if len(rows) >= s.cfg.Eval.TableMaxRows {
			writeErrorCode(w, http.StatusBadRequest, "table_too_large",
				fmt.Sprintf("table exceeds %d rows", s.cfg.Eval.TableMaxRows))
			return
		}
		in := evalInput{op: op, x: x, scale: wad.One}
		result, err := evalCompute(in)
		if err != nil {
			ee := mapEvalError(err)
			writeErrorCode(w, ee.status, ee.code, fmt.Sprintf("at %s: %s", x, ee.msg))
			return
		}
		rows = append(rows, tableRow{
			X: renderCanonical(x.String(), units),
			Y: renderCanonical(result, units),
		})
	}

	s.usage.bump(op)
	s.recordAudit(r, op, fmt.Sprintf("table[%d]", len(rows)), "", "", time.Since(start))
	writeJSON(w, http.StatusOK, tableResponse{Op: op, Rows: rows})
}
