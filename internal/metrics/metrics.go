package metrics

import "expvar"

var (
	EvalRequests  = expvar.NewInt("eval_requests")
	EvalErrors    = expvar.NewInt("eval_errors")
	EvalCacheHits = expvar.NewInt("eval_cache_hits")
	BatchRequests = expvar.NewInt("batch_requests")
	TableRequests = expvar.NewInt("table_requests")
	WatchSessions = expvar.NewInt("watch_sessions")
	WatchDropped  = expvar.NewInt("watch_dropped")
	AuditQueued   = expvar.NewInt("audit_queued")
	AuditFlushed  = expvar.NewInt("audit_flushed")
	AuditDropped  = expvar.NewInt("audit_dropped")
	SnapshotSaves = expvar.NewInt("snapshot_saves")
	SnapshotLoads = expvar.NewInt("snapshot_loads")
	RateLimited   = expvar.NewInt("rate_limited")
	AuthFailures  = expvar.NewInt("auth_failures")
)
