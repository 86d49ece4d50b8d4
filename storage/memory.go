package storage

import (
	"context"
	"sync"
	"time"

	"github.com/richinex/mentorspace/model"
)

type memoryEntry struct {
	report    model.AnalysisReport
	expiresAt time.Time
}

// MemoryCache implements AnalysisCache with a map. Data is lost when the
// process terminates.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached report.
func (c *MemoryCache) Get(ctx context.Context, key string) (model.AnalysisReport, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || expired(e.expiresAt, c.now()) {
		return model.AnalysisReport{}, false, nil
	}
	return cloneReport(e.report), true, nil
}

// Put stores a copy of report.
func (c *MemoryCache) Put(ctx context.Context, key string, report model.AnalysisReport, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{report: cloneReport(report), expiresAt: expiry(c.now(), ttl)}
	return nil
}

// Purge removes expired entries.
func (c *MemoryCache) Purge(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if expired(e.expiresAt, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op.
func (c *MemoryCache) Close() error { return nil }

var _ AnalysisCache = (*MemoryCache)(nil)
