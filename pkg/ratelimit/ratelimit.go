// Package ratelimit 提供两种限流器：令牌桶（服务端按调用方分桶）和
// 滑动窗口（客户端自我节流）。两者都满足 RateLimiter 接口。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
	GetResetTime() time.Time
}

// TokenBucket 令牌桶：按纳秒粒度匀速补充令牌，容量即突发上限。
// 补充只推进已结算的整令牌间隔，余数留给下一次，不丢精度。
type TokenBucket struct {
	mu            sync.Mutex
	capacity      int
	tokens        int
	nanosPerToken int64     // 相邻两枚令牌的到账间隔（纳秒）
	last          time.Time // 补充已结算到的时间点
}

// NewTokenBucket 创建令牌桶。perSecond 为每秒补充速率，capacity 为桶容量。
func NewTokenBucket(capacity int, perSecond float64) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	npt := int64(1)
	if perSecond > 0 {
		npt = int64(float64(time.Second) / perSecond)
		if npt < 1 {
			npt = 1
		}
	}
	return &TokenBucket{
		capacity:      capacity,
		tokens:        capacity,
		nanosPerToken: npt,
		last:          time.Now(),
	}
}

// refill 把 last 到 now 之间到账的令牌补进桶里
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.last).Nanoseconds()
	if elapsed < tb.nanosPerToken {
		return
	}
	n := elapsed / tb.nanosPerToken
	if n >= int64(tb.capacity-tb.tokens) {
		tb.tokens = tb.capacity
		tb.last = now
		return
	}
	tb.tokens += int(n)
	tb.last = tb.last.Add(time.Duration(n * tb.nanosPerToken))
}

// Allow 尝试取走一枚令牌
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 阻塞到取得令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		tb.refill(now)
		if tb.tokens > 0 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		// 桶空：下一枚令牌在 last+nanosPerToken 到账
		next := tb.last.Add(time.Duration(tb.nanosPerToken))
		tb.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetRemaining 当前可用令牌数
func (tb *TokenBucket) GetRemaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	return tb.tokens
}

// GetResetTime 桶重新填满的时刻
func (tb *TokenBucket) GetResetTime() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := time.Now()
	tb.refill(now)
	missing := tb.capacity - tb.tokens
	if missing <= 0 {
		return now
	}
	return tb.last.Add(time.Duration(int64(missing) * tb.nanosPerToken))
}

// SlidingWindow 滑动窗口：窗口内最多 limit 个请求。时间戳存在
// 定长环形队列里，头部是窗口内最老的一次请求。
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	head   int
	count  int
}

// NewSlidingWindow 创建滑动窗口限流器
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, limit),
	}
}

// evict 把滑出窗口的时间戳从队头移掉
func (sw *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-sw.window)
	for sw.count > 0 && !sw.stamps[sw.head].After(cutoff) {
		sw.head = (sw.head + 1) % sw.limit
		sw.count--
	}
}

// Allow 记录一次请求，窗口已满则拒绝
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.evict(now)
	if sw.count >= sw.limit {
		return false
	}
	sw.stamps[(sw.head+sw.count)%sw.limit] = now
	sw.count++
	return true
}

// Wait 阻塞到窗口腾出名额或 ctx 结束
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		// 窗口满：最老的请求滑出后才有名额。拿锁前名额可能已经
		// 腾出来，此时立即重试。
		next := time.Now()
		if sw.count > 0 {
			next = sw.stamps[sw.head].Add(sw.window)
		}
		sw.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetRemaining 窗口内剩余名额
func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.evict(time.Now())
	return sw.limit - sw.count
}

// GetResetTime 最早腾出一个名额的时刻
func (sw *SlidingWindow) GetResetTime() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := time.Now()
	sw.evict(now)
	if sw.count == 0 {
		return now
	}
	return sw.stamps[sw.head].Add(sw.window)
}

// callerEntry 单个调用方的限流状态
type callerEntry struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// CallerLimiter 按调用方（Token 或 IP）分桶的速率限制管理器
type CallerLimiter struct {
	mu        sync.Mutex
	perSecond float64
	burst     int
	entries   map[string]*callerEntry
}

// NewCallerLimiter 创建按调用方分桶的限流管理器。
// perSecond 为每个调用方每秒允许的请求数，burst 为突发容量。
func NewCallerLimiter(perSecond float64, burst int) *CallerLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	cl := &CallerLimiter{
		perSecond: perSecond,
		burst:     burst,
		entries:   make(map[string]*callerEntry),
	}

	// 定期清理长时间未出现的调用方，避免 map 无限增长
	go cl.prune()

	return cl
}

// Allow 检查指定调用方是否允许请求
func (cl *CallerLimiter) Allow(caller string) bool {
	return cl.get(caller).Allow()
}

// GetRemaining 获取指定调用方的剩余配额
func (cl *CallerLimiter) GetRemaining(caller string) int {
	return cl.get(caller).GetRemaining()
}

// GetResetTime 获取指定调用方的配额重置时间
func (cl *CallerLimiter) GetResetTime(caller string) time.Time {
	return cl.get(caller).GetResetTime()
}

// get 获取调用方的令牌桶（不存在则惰性创建）
func (cl *CallerLimiter) get(caller string) *TokenBucket {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	entry, ok := cl.entries[caller]
	if !ok {
		entry = &callerEntry{bucket: NewTokenBucket(cl.burst, cl.perSecond)}
		cl.entries[caller] = entry
	}
	entry.lastSeen = time.Now()
	return entry.bucket
}

func (cl *CallerLimiter) prune() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		cl.mu.Lock()
		for caller, entry := range cl.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(cl.entries, caller)
			}
		}
		cl.mu.Unlock()
	}
}
