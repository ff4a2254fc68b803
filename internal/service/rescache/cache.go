// Package rescache memoizes aggregated bar windows per
// (timeframe, anchor, count) key in two capacity-bounded tiers.
package rescache

import (
	"sync"

	"ChartReplay/internal/domain/models"
	domrepo "ChartReplay/internal/domain/repository"
)

// Key identifies one requested trailing window. The literal tuple is
// the cache key; no hashing, so distinct windows can never collide.
type Key struct {
	TF     domrepo.Timeframe
	Anchor int64 // open time of the last 1-minute bar in the window
	Count  int
}

type tier struct {
	entries map[Key][]models.Bar
	order   []Key // insertion order, oldest first
	cap     int
}

func newTier(capacity int) *tier {
	return &tier{entries: make(map[Key][]models.Bar), cap: capacity}
}

func (t *tier) get(k Key) ([]models.Bar, bool) {
	v, ok := t.entries[k]
	return v, ok
}

// put inserts k and returns the evicted oldest entry, if any.
func (t *tier) put(k Key, bars []models.Bar) (Key, []models.Bar, bool) {
	if _, ok := t.entries[k]; ok {
		t.entries[k] = bars
		return Key{}, nil, false
	}
	t.entries[k] = bars
	t.order = append(t.order, k)
	if len(t.entries) <= t.cap {
		return Key{}, nil, false
	}
	oldest := t.order[0]
	t.order = t.order[1:]
	evicted := t.entries[oldest]
	delete(t.entries, oldest)
	return oldest, evicted, true
}

// Cache is a two-tier memoized store for aggregated windows. Timeframe
// switching, not window drift, dominates the access pattern, so entries
// are prioritized by timeframe tier rather than pure recency: hot-tier
// timeframes overflow by demotion into warm, warm overflow drops the
// oldest-inserted entry. Stored slices are never mutated in place.
type Cache struct {
	mu      sync.Mutex
	hot     *tier
	warm    *tier
	hits    uint64
	misses  uint64
	metrics domrepo.Metrics
}

// Option configures the cache.
type Option func(*config)

type config struct {
	hotCap  int
	warmCap int
	metrics domrepo.Metrics
}

// WithCapacity sets hot and warm tier capacities.
func WithCapacity(hot, warm int) Option {
	return func(c *config) {
		if hot > 0 {
			c.hotCap = hot
		}
		if warm > 0 {
			c.warmCap = warm
		}
	}
}

// WithMetrics attaches a metrics recorder for hit/miss counters.
func WithMetrics(m domrepo.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

func New(opts ...Option) *Cache {
	cfg := &config{hotCap: 8, warmCap: 12}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Cache{
		hot:     newTier(cfg.hotCap),
		warm:    newTier(cfg.warmCap),
		metrics: cfg.metrics,
	}
}

// Get returns the cached window for k, checking hot then warm. Warm
// hits stay warm; there is no promotion back.
func (c *Cache) Get(k Key) ([]models.Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bars, ok := c.hot.get(k); ok {
		c.recordHit(k)
		return bars, true
	}
	if bars, ok := c.warm.get(k); ok {
		c.recordHit(k)
		return bars, true
	}
	c.misses++
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(string(k.TF))
	}
	return nil, false
}

// Put stores a computed window. The caller hands over ownership of
// bars; the slice must not be modified afterwards.
func (c *Cache) Put(k Key, bars []models.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if k.TF.Tier() == domrepo.TierHot {
		if demotedKey, demoted, ok := c.hot.put(k, bars); ok {
			// oldest hot entry moves down; warm overflow drops its oldest
			c.warm.put(demotedKey, demoted)
		}
		return
	}
	c.warm.put(k, bars)
}

// GetOrCompute returns the cached window or computes, stores, and
// returns it. compute runs outside the cache lock; per-session
// serialization is the caller's job.
func (c *Cache) GetOrCompute(k Key, compute func() []models.Bar) []models.Bar {
	if bars, ok := c.Get(k); ok {
		return bars
	}
	bars := compute()
	c.Put(k, bars)
	return bars
}

// Clear empties both tiers and resets counters. Must be called when the
// underlying series identity changes.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hot = newTier(c.hot.cap)
	c.warm = newTier(c.warm.cap)
	c.hits = 0
	c.misses = 0
}

// Counters returns accumulated hit and miss counts.
func (c *Cache) Counters() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns entry counts per tier.
func (c *Cache) Len() (hot, warm int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hot.entries), len(c.warm.entries)
}

func (c *Cache) recordHit(k Key) {
	c.hits++
	if c.metrics != nil {
		c.metrics.RecordCacheHit(string(k.TF))
	}
}
