// Package syncgroup runs a registered set of functions as goroutines
// exactly once and waits for all of them together. The wrapper owns the
// Add/Done bookkeeping, so a forgotten Done cannot hang Wait.
package syncgroup

import "sync"

// SyncGroup 一次性 goroutine 组：先 Add 注册，Run 统一启动，Wait 等待退出
type SyncGroup struct {
	mu      sync.Mutex
	fns     []func()
	started bool

	wg sync.WaitGroup
}

// NewSyncGroup 创建空的 goroutine 组
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{}
}

// Add 注册一个待运行的函数；Run 之后的注册不再生效
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return
	}
	g.fns = append(g.fns, fn)
}

// Run 为每个已注册函数启动一个 goroutine；重复调用只生效第一次
func (g *SyncGroup) Run() {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	fns := g.fns
	g.fns = nil
	g.mu.Unlock()

	g.wg.Add(len(fns))
	for _, fn := range fns {
		go func(f func()) {
			defer g.wg.Done()
			f()
		}(fn)
	}
}

// Wait 阻塞直到所有 goroutine 退出；未 Run 时立即返回
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}
