package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mucoll/hitstats/internal/cellid"
	"github.com/mucoll/hitstats/pkg/core"
)

func TestSchemaCache_ParsesOnce(t *testing.T) {
	c := NewSchemaCache()

	s1, err := c.Get("system:5,side:-2,layer:6")
	require.NoError(t, err)
	s2, err := c.Get("system:5,side:-2,layer:6")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, c.Len())
}

func TestSchemaCache_DistinctEncodings(t *testing.T) {
	c := NewSchemaCache()

	_, err := c.Get("a:4")
	require.NoError(t, err)
	_, err = c.Get("a:8")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
}

func TestSchemaCache_ErrorNotCached(t *testing.T) {
	c := NewSchemaCache()

	_, err := c.Get("a:70")
	require.Error(t, err)
	assert.ErrorIs(t, err, cellid.ErrSchema)
	assert.Equal(t, 0, c.Len())
}

func TestSchemaCache_Reset(t *testing.T) {
	c := NewSchemaCache()
	_, _ = c.Get("a:4")
	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestSchemaCache_ConcurrentAccess(t *testing.T) {
	c := NewSchemaCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get("system:5,layer:6")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
}

func TestAncestorCache_SetGet(t *testing.T) {
	c := NewAncestorCache()

	_, ok := c.Get(7)
	assert.False(t, ok)

	c.Set(7, Ancestry{ID: core.ParticleID(1), Depth: 3})

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, core.ParticleID(1), got.ID)
	assert.Equal(t, 3, got.Depth)
	assert.Equal(t, 1, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}
