package server

import (
	"sync"
	"time"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// briefCache is a short-TTL read cache in front of the brief store. The
// store itself has no TTL concept, it always returns the most recent row;
// the cache only absorbs repeated reads between generations. A cached nil is
// valid and means "never generated yet".
type briefCache struct {
	mu      sync.Mutex
	entries map[domain.Window]briefCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type briefCacheEntry struct {
	brief   *domain.Brief
	expires time.Time
}

func newBriefCache(ttl time.Duration) *briefCache {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &briefCache{
		entries: make(map[domain.Window]briefCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *briefCache) get(window domain.Window) (*domain.Brief, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[window]
	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.brief, true
}

func (c *briefCache) set(window domain.Window, brief *domain.Brief) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[window] = briefCacheEntry{brief: brief, expires: c.now().Add(c.ttl)}
}

// invalidate drops all cached entries, called after brief generation
func (c *briefCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[domain.Window]briefCacheEntry)
}
