// Package cache implements the analysis engine's result cache: a
// bounded, TTL-expiring map keyed by a hash of the question and
// max_results, evicted by lowest access count rather than recency.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/logtrail/logtrail/internal/model"
	"github.com/logtrail/logtrail/internal/monitoring"
)

// Stats mirrors the original's get_stats() shape.
type Stats struct {
	Size    int     `json:"size"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is the result cache: capacity-bounded, TTL-expiring, evicted by
// lowest access count on insert-when-full. The backing hashicorp/golang-lru
// structure supplies the concurrent bounded map and Keys()/Get()/Remove()
// primitives; its own recency-based eviction is never allowed to fire,
// because Set always makes room itself before calling Add.
type Cache struct {
	mu      sync.RWMutex
	entries *lru.Cache[string, *model.CacheEntry]
	ttl     time.Duration
	maxSize int
	hits    uint64
	misses  uint64
	metrics *monitoring.Metrics
}

// New builds a Cache with the given capacity and TTL. maxSize defaults to
// 100 and ttl to 300s if non-positive, matching the original's defaults.
func New(maxSize int, ttl time.Duration) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	// Oversize the backing LRU so its own eviction never triggers before
	// our explicit lowest-access-count eviction runs in Set.
	backing, err := lru.New[string, *model.CacheEntry](maxSize + 1)
	if err != nil {
		return nil, fmt.Errorf("allocating cache: %w", err)
	}
	return &Cache{entries: backing, ttl: ttl, maxSize: maxSize, metrics: monitoring.New(false)}, nil
}

// WithMetrics attaches a metrics recorder, returning c for chaining.
func (c *Cache) WithMetrics(m *monitoring.Metrics) *Cache {
	c.metrics = m
	return c
}

// Key hashes question and maxResults into a cache key, matching the
// original's sha256(f"{question}:{max_results}").
func Key(question string, maxResults int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", question, maxResults)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for key if present and unexpired,
// incrementing its access count. An expired entry is evicted on access.
func (c *Cache) Get(key string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	if entry.Expired(time.Now(), c.ttl) {
		c.entries.Remove(key)
		c.misses++
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	entry.AccessCount++
	c.hits++
	c.metrics.RecordCacheHit()
	return entry.Result, true
}

// Set stores result under key, evicting the entry with the lowest access
// count if the cache is at capacity and key is not already present.
func (c *Cache) Set(key string, result map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries.Peek(key); !exists && c.entries.Len() >= c.maxSize {
		c.evictLowestAccessCount()
	}

	c.entries.Add(key, &model.CacheEntry{
		Result:      result,
		CachedAt:    time.Now(),
		AccessCount: 0,
	})
	c.metrics.SetCacheSize(c.entries.Len())
}

// evictLowestAccessCount removes the entry with the smallest AccessCount,
// matching the original's _evict_lru despite its misleading name.
func (c *Cache) evictLowestAccessCount() {
	keys := c.entries.Keys()
	if len(keys) == 0 {
		return
	}

	var victim string
	lowest := -1
	for _, k := range keys {
		entry, ok := c.entries.Peek(k)
		if !ok {
			continue
		}
		if lowest == -1 || entry.AccessCount < lowest {
			lowest = entry.AccessCount
			victim = k
		}
	}
	if victim != "" {
		c.entries.Remove(victim)
	}
}

// InvalidateAll clears the cache entirely.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.metrics.SetCacheSize(0)
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
	c.metrics.SetCacheSize(c.entries.Len())
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}

// Stats reports hit/miss counters and current size.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:    c.entries.Len(),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}
