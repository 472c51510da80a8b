package mathserver

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/betbot/gostat/internal/metrics"
	"github.com/betbot/gostat/pkg/logger"
	"github.com/betbot/gostat/pkg/persistence"
)

// UsageSnapshot 评估用量统计（跨重启累计）
type UsageSnapshot struct {
	TotalRequests int64            `json:"total_requests"`
	PerOp         map[string]int64 `json:"per_op"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// usageState 持有用量计数，通过 persistence tag 做快照落盘
type usageState struct {
	mu       sync.Mutex
	Snapshot UsageSnapshot `persistence:"usage"`
}

const usagePersistenceID = "mathserver"

func newUsageState(service persistence.Service) *usageState {
	u := &usageState{}
	if service != nil {
		if err := persistence.LoadFields(u, usagePersistenceID, service); err != nil {
			if !errors.Is(err, persistence.ErrNotExists) {
				logger.Warnf("加载用量快照失败: %v", err)
			}
		} else {
			metrics.SnapshotLoads.Add(1)
		}
	}
	if u.Snapshot.PerOp == nil {
		u.Snapshot.PerOp = make(map[string]int64)
	}
	return u
}

func (u *usageState) bump(op string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Snapshot.TotalRequests++
	u.Snapshot.PerOp[op]++
}

// read returns a copy safe to serialize outside the lock.
func (u *usageState) read() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := UsageSnapshot{
		TotalRequests: u.Snapshot.TotalRequests,
		PerOp:         make(map[string]int64, len(u.Snapshot.PerOp)),
		UpdatedAt:     u.Snapshot.UpdatedAt,
	}
	for op, n := range u.Snapshot.PerOp {
		out.PerOp[op] = n
	}
	return out
}

func (u *usageState) save(service persistence.Service) {
	if service == nil {
		return
	}
	// 序列化过程会读 PerOp map，必须和 bump 互斥
	u.mu.Lock()
	u.Snapshot.UpdatedAt = time.Now().UTC()
	err := persistence.SaveFields(u, usagePersistenceID, service)
	u.mu.Unlock()

	if err != nil {
		logger.Errorf("保存用量快照失败: %v", err)
		return
	}
	metrics.SnapshotSaves.Add(1)
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.usage.read())
}
