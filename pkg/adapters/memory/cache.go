package memory

import (
	"context"
	"sync"

	"github.com/aretw0/facet/pkg/graphic"
)

// FragmentCache implements ports.FragmentCache in memory.
// Stored trees are shared with readers and never modified.
type FragmentCache struct {
	mu   sync.RWMutex
	data map[string]*graphic.Element
	gens map[string]uint64
}

// NewFragmentCache creates an empty cache.
func NewFragmentCache() *FragmentCache {
	return &FragmentCache{
		data: make(map[string]*graphic.Element),
		gens: make(map[string]uint64),
	}
}

// Get returns the cached tree for a variation id.
func (c *FragmentCache) Get(ctx context.Context, variationID string) (*graphic.Element, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	el, ok := c.data[variationID]
	return el, ok, nil
}

// Put stores a tree.
func (c *FragmentCache) Put(ctx context.Context, variationID string, fragment *graphic.Element) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[variationID] = fragment
	return nil
}

// Generation returns the invalidation counter of a variation id.
func (c *FragmentCache) Generation(ctx context.Context, variationID string) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[variationID], nil
}

// PutIfGeneration stores a tree unless the id was invalidated since gen.
func (c *FragmentCache) PutIfGeneration(ctx context.Context, variationID string, gen uint64, fragment *graphic.Element) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[variationID] != gen {
		return false, nil
	}
	c.data[variationID] = fragment
	return true, nil
}

// Invalidate drops the given ids and advances their generation.
func (c *FragmentCache) Invalidate(ctx context.Context, variationIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range variationIDs {
		delete(c.data, id)
		c.gens[id]++
	}
	return nil
}

// Len returns the number of cached fragments.
func (c *FragmentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
