package cache

import (
	"sync"

	"github.com/mucoll/hitstats/pkg/core"
)

// Ancestry is a resolved oldest ancestor and the number of parent steps to it.
type Ancestry struct {
	ID    core.ParticleID
	Depth int
}

// AncestorCache memoizes resolved ancestries for the current event.
// It must be reset between events because particle IDs are event-local.
type AncestorCache struct {
	mu      sync.RWMutex
	entries map[core.ParticleID]Ancestry
}

func NewAncestorCache() *AncestorCache {
	return &AncestorCache{
		entries: make(map[core.ParticleID]Ancestry),
	}
}

// Get retrieves the ancestry of a particle
func (c *AncestorCache) Get(id core.ParticleID) (Ancestry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[id]
	return a, ok
}

// Set stores the ancestry of a particle
func (c *AncestorCache) Set(id core.ParticleID, a Ancestry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = a
}

// Len returns the number of cached particles
func (c *AncestorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset clears the cache
func (c *AncestorCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[core.ParticleID]Ancestry)
}
