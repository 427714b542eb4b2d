package cache

import (
	"context"
	"sync"
	"time"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
)

type memoryEntry struct {
	value    model.Dataset
	storedAt time.Time
}

// MemoryCache is an in-process AnalyticsCache. Writes replace whole entries
// under a lock, so readers never observe a partially written value.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[model.DatasetKind]map[string]memoryEntry
	ttls    TTLs
	now     func() time.Time
}

var _ repository.AnalyticsCache = (*MemoryCache)(nil)

// NewMemoryCache creates a cache. Kinds missing from ttls use DefaultTTLs.
func NewMemoryCache(ttls TTLs) *MemoryCache {
	return NewMemoryCacheWithClock(ttls, time.Now)
}

// NewMemoryCacheWithClock creates a cache that reads time from now.
func NewMemoryCacheWithClock(ttls TTLs, now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[model.DatasetKind]map[string]memoryEntry),
		ttls:    ttls.withDefaults(),
		now:     now,
	}
}

func (c *MemoryCache) Get(_ context.Context, kind model.DatasetKind, key string) (model.Dataset, bool, error) {
	ttl, err := c.ttls.For(kind)
	if err != nil {
		return nil, false, err
	}
	c.mu.RLock()
	e, ok := c.entries[kind][key]
	c.mu.RUnlock()
	if !ok || c.expired(e, ttl) {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, kind model.DatasetKind, key string, value model.Dataset) error {
	if _, err := c.ttls.For(kind); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.entries[kind]
	if !ok {
		bucket = make(map[string]memoryEntry)
		c.entries[kind] = bucket
	}
	bucket[key] = memoryEntry{value: value, storedAt: c.now()}
	return nil
}

func (c *MemoryCache) Clear(_ context.Context, kinds ...model.DatasetKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(kinds) == 0 {
		c.entries = make(map[model.DatasetKind]map[string]memoryEntry)
		return nil
	}
	for _, k := range kinds {
		delete(c.entries, k)
	}
	return nil
}

func (c *MemoryCache) Stats(_ context.Context) (model.CacheStats, error) {
	stats := model.CacheStats{Backend: "memory", Entries: make(map[model.DatasetKind]int)}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, kind := range model.DatasetKinds() {
		ttl := c.ttls[kind]
		n := 0
		for _, e := range c.entries[kind] {
			if !c.expired(e, ttl) {
				n++
			}
		}
		stats.Entries[kind] = n
		stats.Total += n
	}
	return stats, nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for kind, bucket := range c.entries {
		ttl := c.ttls[kind]
		for key, e := range bucket {
			if c.expired(e, ttl) {
				delete(bucket, key)
				removed++
			}
		}
	}
	return removed
}

func (c *MemoryCache) expired(e memoryEntry, ttl time.Duration) bool {
	return c.now().Sub(e.storedAt) >= ttl
}
