package mathserver

import "time"

// evalRequest is the body of POST /v1/eval/:op.
// Values are WAD integer strings by default; with units=true they are
// parsed and rendered as plain decimals instead.
type evalRequest struct {
	X     string `json:"x,omitempty"`
	P     string `json:"p,omitempty"`
	Mean  string `json:"mean,omitempty"`
	Scale string `json:"scale,omitempty"`
	Units bool   `json:"units,omitempty"`
}

type evalResponse struct {
	Op     string `json:"op"`
	Input  string `json:"input"`
	Result string `json:"result"`
	Cached bool   `json:"cached,omitempty"`
}

type batchRequest struct {
	Op     string   `json:"op"`
	Inputs []string `json:"inputs"`
	Units  bool     `json:"units,omitempty"`
}

type batchItem struct {
	Input  string `json:"input"`
	Result string `json:"result,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

type batchResponse struct {
	Op      string      `json:"op"`
	Results []batchItem `json:"results"`
}

type tableRow struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type tableResponse struct {
	Op   string     `json:"op"`
	Rows []tableRow `json:"rows"`
}

// evalEvent is broadcast to /v1/watch subscribers after each
// successful single evaluation.
type evalEvent struct {
	Op     string    `json:"op"`
	Input  string    `json:"input"`
	Result string    `json:"result"`
	Caller string    `json:"caller,omitempty"`
	TS     time.Time `json:"ts"`
}

// auditEntry is one audit log row as served by GET /v1/audit/recent.
type auditEntry struct {
	TS         string `json:"ts"`
	RequestID  string `json:"request_id,omitempty"`
	Caller     string `json:"caller,omitempty"`
	Op         string `json:"op"`
	Input      string `json:"input"`
	Result     string `json:"result,omitempty"`
	Code       string `json:"code,omitempty"`
	DurationUS int64  `json:"duration_us"`
}

type auditRecentResponse struct {
	Entries []auditEntry `json:"entries"`
}
