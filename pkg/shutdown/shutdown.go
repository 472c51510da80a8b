// Package shutdown coordinates graceful termination: callbacks are
// registered during startup and executed concurrently, bounded by the
// caller's context deadline.
package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/gostat/pkg/logger"
)

// Handler 关闭回调；应在 ctx 截止前返回
type Handler func(ctx context.Context)

// Manager 优雅关闭管理器
type Manager struct {
	mu        sync.Mutex
	callbacks []Handler
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调；可在任意阶段调用
func (m *Manager) OnShutdown(h Handler) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.callbacks = append(m.callbacks, h)
	m.mu.Unlock()
}

// Shutdown 并发执行所有回调并等待完成；ctx 超时则提前返回，
// 未完成的回调继续在后台跑完
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	callbacks := m.callbacks
	m.mu.Unlock()

	if len(callbacks) == 0 {
		return
	}
	logger.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		go func(h Handler) {
			defer wg.Done()
			h(ctx)
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("所有关闭回调已完成")
	case <-ctx.Done():
		logger.Warnf("关闭超时: %v", ctx.Err())
	}
}
