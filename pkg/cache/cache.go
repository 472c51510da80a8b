package cache

import (
	"sync"
	"time"
)

// Cache 通用缓存接口
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Clear()
	Size() int
}

// InMemoryCache 内存缓存实现
type InMemoryCache[K comparable, V any] struct {
	items      map[K]*cacheItem[V]
	mu         sync.RWMutex
	defaultTTL time.Duration
	maxEntries int // 0 表示不限制
}

// cacheItem 缓存项
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewInMemoryCache 创建新的内存缓存
func NewInMemoryCache[K comparable, V any](defaultTTL time.Duration) *InMemoryCache[K, V] {
	return NewBoundedCache[K, V](defaultTTL, 0)
}

// NewBoundedCache 创建带容量上限的内存缓存
// maxEntries <= 0 表示不限制条目数
func NewBoundedCache[K comparable, V any](defaultTTL time.Duration, maxEntries int) *InMemoryCache[K, V] {
	cache := &InMemoryCache[K, V]{
		items:      make(map[K]*cacheItem[V]),
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
	}

	// 启动清理 goroutine
	go cache.startCleanup()

	return cache
}

// Get 获取缓存值
func (c *InMemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}

	// 检查是否过期
	if time.Now().After(item.expiresAt) {
		// 异步删除过期项
		go c.Delete(key)
		var zero V
		return zero, false
	}

	return item.value, true
}

// Set 设置缓存值
func (c *InMemoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	// 容量已满时先腾出一个位置（优先驱逐最早过期的条目）
	if c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		if _, exists := c.items[key]; !exists {
			c.evictOldestLocked()
		}
	}

	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// evictOldestLocked 驱逐最早过期的条目（调用方必须持有写锁）
func (c *InMemoryCache[K, V]) evictOldestLocked() {
	var oldestKey K
	var oldestAt time.Time
	first := true
	for key, item := range c.items {
		if first || item.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = item.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}

// Delete 删除缓存项
func (c *InMemoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear 清空缓存
func (c *InMemoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*cacheItem[V])
}

// Size 获取缓存大小
func (c *InMemoryCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// startCleanup 启动清理 goroutine（定期清理过期项）
func (c *InMemoryCache[K, V]) startCleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

// cleanup 清理过期项
func (c *InMemoryCache[K, V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

// ResultCache 评估结果缓存（op+输入 -> 序列化结果）
// 所有评估都是纯函数，结果可以安全缓存
type ResultCache struct {
	cache *InMemoryCache[string, string]
	ttl   time.Duration
}

// NewResultCache 创建新的评估结果缓存
func NewResultCache(ttl time.Duration, maxEntries int) *ResultCache {
	return &ResultCache{
		cache: NewBoundedCache[string, string](ttl, maxEntries),
		ttl:   ttl,
	}
}

// Get 获取缓存的评估结果
func (rc *ResultCache) Get(key string) (string, bool) {
	return rc.cache.Get(key)
}

// Set 写入评估结果
func (rc *ResultCache) Set(key, result string) {
	rc.cache.Set(key, result, rc.ttl)
}

// Size 当前缓存条目数
func (rc *ResultCache) Size() int {
	return rc.cache.Size()
}
