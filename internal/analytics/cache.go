package analytics

import (
	"sync"
	"time"

	"botpanel/internal/domain"
)

// StatsCache holds the latest stats computed per bot by the refresh task.
type StatsCache struct {
	mu      sync.RWMutex
	entries map[string]cachedStats
}

type cachedStats struct {
	stats     domain.Stats
	updatedAt time.Time
}

// NewStatsCache returns an empty cache.
func NewStatsCache() *StatsCache {
	return &StatsCache{entries: make(map[string]cachedStats)}
}

// Get returns the cached stats for botID and when they were computed.
func (c *StatsCache) Get(botID string) (domain.Stats, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[botID]
	return e.stats, e.updatedAt, ok
}

// Set stores stats for botID.
func (c *StatsCache) Set(botID string, stats domain.Stats, at time.Time) {
	c.mu.Lock()
	c.entries[botID] = cachedStats{stats: stats, updatedAt: at}
	c.mu.Unlock()
}

// Forget drops botID.
func (c *StatsCache) Forget(botID string) {
	c.mu.Lock()
	delete(c.entries, botID)
	c.mu.Unlock()
}
