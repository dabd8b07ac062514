package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/facet/pkg/graphic"
	backend "github.com/redis/go-redis/v9"
)

// FragmentCache implements ports.FragmentCache using Redis, so parsed fragments are
// shared by every instance. Trees are stored as JSON.
type FragmentCache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type CacheOption func(*FragmentCache)

// WithCacheTTL sets the expiration of cached fragments. Zero means no expiration.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *FragmentCache) {
		c.ttl = ttl
	}
}

// WithCachePrefix sets the key prefix.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *FragmentCache) {
		c.prefix = prefix
	}
}

// NewFragmentCache creates a cache on an existing client.
func NewFragmentCache(client *backend.Client, opts ...CacheOption) *FragmentCache {
	c := &FragmentCache{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// putIfGenerationScript sets the fragment only while the generation key still holds
// ARGV[1]. A missing generation key is generation 0. ARGV[3] is the TTL in ms.
const putIfGenerationScript = `
local gen = redis.call("get", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("set", KEYS[1], ARGV[2], "px", ARGV[3])
else
	redis.call("set", KEYS[1], ARGV[2])
end
return 1
`

func (c *FragmentCache) key(variationID string) string {
	return c.prefix + "fragment:" + variationID
}

func (c *FragmentCache) genKey(variationID string) string {
	return c.prefix + "fragment-gen:" + variationID
}

// Get returns the cached tree for a variation id.
func (c *FragmentCache) Get(ctx context.Context, variationID string) (*graphic.Element, bool, error) {
	val, err := c.client.Get(ctx, c.key(variationID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get fragment from redis: %w", err)
	}

	var el graphic.Element
	if err := json.Unmarshal(val, &el); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal fragment: %w", err)
	}
	return &el, true, nil
}

// Put stores a tree.
func (c *FragmentCache) Put(ctx context.Context, variationID string, fragment *graphic.Element) error {
	data, err := json.Marshal(fragment)
	if err != nil {
		return fmt.Errorf("failed to marshal fragment: %w", err)
	}
	if err := c.client.Set(ctx, c.key(variationID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache fragment: %w", err)
	}
	return nil
}

// Generation returns the invalidation counter of a variation id.
func (c *FragmentCache) Generation(ctx context.Context, variationID string) (uint64, error) {
	gen, err := c.client.Get(ctx, c.genKey(variationID)).Uint64()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read fragment generation: %w", err)
	}
	return gen, nil
}

// PutIfGeneration stores a tree unless the id was invalidated since gen.
func (c *FragmentCache) PutIfGeneration(ctx context.Context, variationID string, gen uint64, fragment *graphic.Element) (bool, error) {
	data, err := json.Marshal(fragment)
	if err != nil {
		return false, fmt.Errorf("failed to marshal fragment: %w", err)
	}
	stored, err := c.client.Eval(ctx, putIfGenerationScript,
		[]string{c.key(variationID), c.genKey(variationID)},
		strconv.FormatUint(gen, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache fragment: %w", err)
	}
	return stored == 1, nil
}

// Invalidate drops the given ids and advances their generation.
func (c *FragmentCache) Invalidate(ctx context.Context, variationIDs ...string) error {
	if len(variationIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for _, id := range variationIDs {
			pipe.Del(ctx, c.key(id))
			pipe.Incr(ctx, c.genKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate fragments: %w", err)
	}
	return nil
}
