package mathserver

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/betbot/gostat/internal/metrics"
	"github.com/betbot/gostat/pkg/logger"
	"github.com/betbot/gostat/pkg/sigchan"
	"github.com/betbot/gostat/pkg/syncgroup"
)

// auditRecord is one evaluation to be written to the audit log.
type auditRecord struct {
	TS         time.Time
	RequestID  string
	Caller     string
	Op         string
	Input      string
	Result     string
	Code       string
	DurationUS int64
}

// auditWriter batches audit rows into SQLite. Writes happen on a
// single background goroutine; the request path only enqueues and
// never blocks on the database.
type auditWriter struct {
	db       *sql.DB
	queue    chan auditRecord
	flush    sigchan.Chan
	batch    int
	interval time.Duration

	cancel context.CancelFunc
	sg     *syncgroup.SyncGroup
}

func newAuditWriter(db *sql.DB, batchSize int, interval time.Duration) *auditWriter {
	ctx, cancel := context.WithCancel(context.Background())
	w := &auditWriter{
		db:       db,
		queue:    make(chan auditRecord, batchSize*4),
		flush:    sigchan.New(1),
		batch:    batchSize,
		interval: interval,
		cancel:   cancel,
		sg:       syncgroup.NewSyncGroup(),
	}
	w.sg.Add(func() { w.loop(ctx) })
	w.sg.Run()
	return w
}

// Enqueue hands a record to the writer without blocking. Records are
// dropped (and counted) when the queue is full.
func (w *auditWriter) Enqueue(rec auditRecord) {
	select {
	case w.queue <- rec:
		metrics.AuditQueued.Add(1)
	default:
		metrics.AuditDropped.Add(1)
	}
}

// Flush asks the writer to persist the current buffer soon.
func (w *auditWriter) Flush() {
	w.flush.Emit()
}

// Close flushes outstanding records and stops the writer.
func (w *auditWriter) Close() {
	w.cancel()
	w.sg.Wait()
}

func (w *auditWriter) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	buf := make([]auditRecord, 0, w.batch)
	for {
		select {
		case <-ctx.Done():
			// 退出前把队列里剩余的记录全部落库
			for {
				select {
				case rec := <-w.queue:
					buf = append(buf, rec)
				default:
					w.flushBatch(buf)
					return
				}
			}
		case rec := <-w.queue:
			buf = append(buf, rec)
			if len(buf) >= w.batch {
				w.flushBatch(buf)
				buf = buf[:0]
			}
		case <-ticker.C:
			w.flushBatch(buf)
			buf = buf[:0]
		case <-w.flush.C():
			w.flushBatch(buf)
			buf = buf[:0]
		}
	}
}

func (w *auditWriter) flushBatch(buf []auditRecord) {
	if len(buf) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Errorf("审计日志开启事务失败: %v", err)
		return
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO eval_audit (ts, request_id, caller, op, input, result, code, duration_us)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		_ = tx.Rollback()
		logger.Errorf("审计日志准备语句失败: %v", err)
		return
	}
	for _, rec := range buf {
		if _, err := stmt.ExecContext(ctx,
			rec.TS.UTC().Format(time.RFC3339Nano),
			rec.RequestID,
			rec.Caller,
			rec.Op,
			rec.Input,
			rec.Result,
			rec.Code,
			rec.DurationUS,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			logger.Errorf("审计日志写入失败: %v", err)
			return
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		logger.Errorf("审计日志提交失败: %v", err)
		return
	}
	metrics.AuditFlushed.Add(int64(len(buf)))
}

func migrateAudit(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS eval_audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  request_id TEXT,
  caller TEXT,
  op TEXT NOT NULL,
  input TEXT NOT NULL,
  result TEXT,
  code TEXT,
  duration_us INTEGER NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_eval_audit_ts ON eval_audit(ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_eval_audit_op ON eval_audit(op);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}

// recentAudit reads the newest audit rows, newest first.
func (s *Server) recentAudit(ctx context.Context, limit int) ([]auditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ts, request_id, caller, op, input, result, code, duration_us
FROM eval_audit ORDER BY id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]auditEntry, 0, limit)
	for rows.Next() {
		var e auditEntry
		if err := rows.Scan(&e.TS, &e.RequestID, &e.Caller, &e.Op,
			&e.Input, &e.Result, &e.Code, &e.DurationUS); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeErrorCode(w, http.StatusNotFound, "audit_disabled", "audit log is not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorCode(w, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	// 先催一次落库，把在途的记录尽量带上；不等待写入完成
	if s.audit != nil {
		s.audit.Flush()
	}

	entries, err := s.recentAudit(r.Context(), limit)
	if err != nil {
		logger.Errorf("审计日志查询失败: %v", err)
		writeErrorCode(w, http.StatusInternalServerError, "internal_error", "audit query failed")
		return
	}
	writeJSON(w, http.StatusOK, auditRecentResponse{Entries: entries})
}

// recordAudit enqueues one audit row if auditing is enabled.
func (s *Server) recordAudit(r *http.Request, op, input, result, code string, d time.Duration) {
	if s.audit == nil {
		return
	}
	s.audit.Enqueue(auditRecord{
		TS:         time.Now(),
		RequestID:  requestIDFrom(r),
		Caller:     callerFrom(r),
		Op:         op,
		Input:      input,
		Result:     result,
		Code:       code,
		DurationUS: d.Microseconds(),
	})
}
