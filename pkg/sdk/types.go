package sdk

import "time"

// EvalRequest is the body of a single evaluation. Values are WAD
// integer strings unless Units is set, in which case they are plain
// decimals.
type EvalRequest struct {
	X     string `json:"x,omitempty"`
	P     string `json:"p,omitempty"`
	Mean  string `json:"mean,omitempty"`
	Scale string `json:"scale,omitempty"`
	Units bool   `json:"units,omitempty"`
}

type EvalResponse struct {
	Op     string `json:"op"`
	Input  string `json:"input"`
	Result string `json:"result"`
	Cached bool   `json:"cached,omitempty"`
}

type BatchResult struct {
	Input  string `json:"input"`
	Result string `json:"result,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the item evaluated successfully.
func (r BatchResult) OK() bool { return r.Code == "" }

type batchRequest struct {
	Op     string   `json:"op"`
	Inputs []string `json:"inputs"`
	Units  bool     `json:"units,omitempty"`
}

type batchResponse struct {
	Op      string        `json:"op"`
	Results []BatchResult `json:"results"`
}

type TableRow struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type tableResponse struct {
	Op   string     `json:"op"`
	Rows []TableRow `json:"rows"`
}

// Event is one evaluation pushed on the watch stream.
type Event struct {
	Op     string    `json:"op"`
	Input  string    `json:"input"`
	Result string    `json:"result"`
	Caller string    `json:"caller,omitempty"`
	TS     time.Time `json:"ts"`
}

// Usage mirrors the server's usage counters.
type Usage struct {
	TotalRequests int64            `json:"total_requests"`
	PerOp         map[string]int64 `json:"per_op"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
