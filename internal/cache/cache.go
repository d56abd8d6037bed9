package cache

import (
	"sync"

	"github.com/mucoll/hitstats/internal/cellid"
)

// SchemaCache keeps parsed cell ID schemas keyed by their encoding string.
// Collections of the same sub-detector repeat the encoding in every event,
// so parsing happens once per run.
type SchemaCache struct {
	mu      sync.RWMutex
	schemas map[string]*cellid.Schema
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{
		schemas: make(map[string]*cellid.Schema),
	}
}

// Get returns the schema for encoding, parsing and storing it on first use.
// Parse errors are not cached.
func (c *SchemaCache) Get(encoding string) (*cellid.Schema, error) {
	c.mu.RLock()
	s, ok := c.schemas[encoding]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := cellid.ParseSchema(encoding)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.schemas[encoding]; ok {
		return existing, nil
	}
	c.schemas[encoding] = s
	return s, nil
}

// Len returns the number of distinct schemas seen.
func (c *SchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemas)
}

func (c *SchemaCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas = make(map[string]*cellid.Schema)
}
