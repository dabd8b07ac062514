package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "facet:"

const maxTxRetries = 10

// Store implements ports.AttributeStore using Redis.
//
// Layout (under the prefix):
//
//	attributes  HASH  category ID -> category JSON
//	order       LIST  category IDs in creation order
//	keys        HASH  category key -> category ID
//	variations  HASH  variation ID -> category ID
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) attributesKey() string { return s.prefix + "attributes" }
func (s *Store) orderKey() string      { return s.prefix + "order" }
func (s *Store) keysKey() string       { return s.prefix + "keys" }
func (s *Store) variationsKey() string { return s.prefix + "variations" }

// Create stores a new category.
func (s *Store) Create(ctx context.Context, category domain.Category) (*domain.Category, error) {
	c := category.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Variations {
		c.Variations[i] = prepare(c.Variations[i], c.Key)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal category: %w", err)
	}

	// 1. Reserve the key atomically
	ok, err := s.client.HSetNX(ctx, s.keysKey(), c.Key, c.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve key in redis: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateKey, c.Key)
	}

	// 2. Write document and indexes
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.attributesKey(), c.ID, data)
	pipe.RPush(ctx, s.orderKey(), c.ID)
	for _, v := range c.Variations {
		pipe.HSet(ctx, s.variationsKey(), v.ID, c.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Release the key so the caller can retry
		s.client.HDel(ctx, s.keysKey(), c.Key)
		return nil, fmt.Errorf("failed to save to redis: %w", err)
	}

	return &c, nil
}

// Get retrieves a category by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Category, error) {
	val, err := s.client.HGet(ctx, s.attributesKey(), id).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.NewAttributeNotFound(id)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decodeCategory(val)
}

// List returns all categories in creation order.
func (s *Store) List(ctx context.Context) ([]domain.Category, error) {
	ids, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Category{}, nil
	}

	vals, err := s.client.HMGet(ctx, s.attributesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	out := make([]domain.Category, 0, len(vals))
	for _, raw := range vals {
		str, ok := raw.(string)
		if !ok {
			continue // index entry without document
		}
		c, err := decodeCategory(str)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// KeyExists reports whether a category uses the given key.
func (s *Store) KeyExists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.keysKey(), key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key in redis: %w", err)
	}
	return ok, nil
}

// AppendVariations adds variations at the end of a category.
func (s *Store) AppendVariations(ctx context.Context, id string, variations []domain.Variation) (*domain.Category, error) {
	var added []domain.Variation
	return s.update(ctx, id, func(c *domain.Category) error {
		added = added[:0]
		for _, v := range variations {
			v = prepare(v, c.Key)
			c.Variations = append(c.Variations, v)
			added = append(added, v)
		}
		return nil
	}, func(pipe backend.Pipeliner, c *domain.Category) {
		for _, v := range added {
			pipe.HSet(ctx, s.variationsKey(), v.ID, c.ID)
		}
	})
}

// AddColors adds colors with set semantics.
func (s *Store) AddColors(ctx context.Context, id string, colors []string) (*domain.Category, error) {
	return s.update(ctx, id, func(c *domain.Category) error {
		c.AddColors(colors...)
		return nil
	}, nil)
}

// ReplaceVariation swaps the stored variation that has the same ID.
func (s *Store) ReplaceVariation(ctx context.Context, id string, variation domain.Variation) (*domain.Category, error) {
	return s.update(ctx, id, func(c *domain.Category) error {
		for i, v := range c.Variations {
			if v.ID == variation.ID {
				variation.CategoryKey = c.Key
				c.Variations[i] = variation
				return nil
			}
		}
		return domain.NewVariationNotFound(variation.ID)
	}, nil)
}

// FindVariations returns the variations for ids, in order.
func (s *Store) FindVariations(ctx context.Context, ids []string) ([]domain.Variation, error) {
	if len(ids) == 0 {
		return []domain.Variation{}, nil
	}

	owners, err := s.client.HMGet(ctx, s.variationsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up variations: %w", err)
	}

	categories := make(map[string]*domain.Category)
	out := make([]domain.Variation, 0, len(ids))
	var missing []string

	for i, raw := range owners {
		cid, ok := raw.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		c, cached := categories[cid]
		if !cached {
			c, err = s.Get(ctx, cid)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					missing = append(missing, ids[i])
					continue
				}
				return nil, err
			}
			categories[cid] = c
		}
		v, found := c.Variation(ids[i])
		if !found {
			missing = append(missing, ids[i])
			continue
		}
		out = append(out, v)
	}

	if len(missing) > 0 {
		return nil, domain.NewVariationNotFound(missing...)
	}
	return out, nil
}

// update runs an optimistic read-modify-write of one category. extra may queue
// index writes in the same transaction.
func (s *Store) update(ctx context.Context, id string, fn func(*domain.Category) error, extra func(backend.Pipeliner, *domain.Category)) (*domain.Category, error) {
	var result *domain.Category

	txf := func(tx *backend.Tx) error {
		val, err := tx.HGet(ctx, s.attributesKey(), id).Result()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.NewAttributeNotFound(id)
			}
			return fmt.Errorf("failed to get from redis: %w", err)
		}
		c, err := decodeCategory(val)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal category: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.HSet(ctx, s.attributesKey(), id, data)
			if extra != nil {
				extra(pipe, c)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = c
		return nil
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, s.attributesKey())
		if errors.Is(err, backend.TxFailedErr) {
			continue // concurrent write, retry
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to update category %s: too much contention", id)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decodeCategory(val string) (*domain.Category, error) {
	var c domain.Category
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category: %w", err)
	}
	return &c, nil
}

func prepare(v domain.Variation, key string) domain.Variation {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CategoryKey = key
	return v
}
