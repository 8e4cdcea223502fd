package server

import (
	"sync"
	"time"

	"github.com/ogulcanaydogan/kwscore/internal/store"
)

// bestCache holds the last best-runs answer until it expires. A nil cache
// never hits.
type bestCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	runs      []store.RunEntry
	expiresAt time.Time
}

func newBestCache(ttl time.Duration) *bestCache {
	if ttl <= 0 {
		return nil
	}
	return &bestCache{ttl: ttl}
}

func (c *bestCache) fresh(now time.Time) ([]store.RunEntry, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.runs == nil || !c.expiresAt.After(now) {
		return nil, false
	}
	return c.runs, true
}

func (c *bestCache) put(runs []store.RunEntry, now time.Time) {
	if c == nil {
		return
	}
	if runs == nil {
		runs = []store.RunEntry{}
	}
	c.mu.Lock()
	c.runs = runs
	c.expiresAt = now.Add(c.ttl)
	c.mu.Unlock()
}
