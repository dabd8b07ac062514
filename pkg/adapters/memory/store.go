package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.AttributeStore in memory.
// Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	order      []string                    // category IDs in creation order
	data       map[string]*domain.Category // by category ID
	keys       map[string]string           // key -> category ID
	variations map[string]string           // variation ID -> category ID
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:       make(map[string]*domain.Category),
		keys:       make(map[string]string),
		variations: make(map[string]string),
	}
}

// NewStoreFrom creates a store pre-populated with categories.
// This improves DX for tests and seeding.
func NewStoreFrom(ctx context.Context, categories ...domain.Category) (*Store, error) {
	s := NewStore()
	for _, c := range categories {
		if _, err := s.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to seed category %q: %w", c.Key, err)
		}
	}
	return s, nil
}

// Create stores a new category.
func (s *Store) Create(ctx context.Context, category domain.Category) (*domain.Category, error) {
	c := category.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Variations {
		c.Variations[i] = s.prepare(c.Variations[i], c.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.keys[c.Key]; taken {
		return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateKey, c.Key)
	}
	if _, taken := s.data[c.ID]; taken {
		return nil, fmt.Errorf("category id %q already exists", c.ID)
	}

	s.data[c.ID] = &c
	s.keys[c.Key] = c.ID
	s.order = append(s.order, c.ID)
	for _, v := range c.Variations {
		s.variations[v.ID] = c.ID
	}

	out := c.Clone()
	return &out, nil
}

// Get retrieves a category by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[id]
	if !ok {
		return nil, domain.NewAttributeNotFound(id)
	}
	// Create a copy on read so caller can't mutate store state directly by pointer
	out := c.Clone()
	return &out, nil
}

// List returns all categories in creation order.
func (s *Store) List(ctx context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Clone())
	}
	return out, nil
}

// KeyExists reports whether a category uses the given key.
func (s *Store) KeyExists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

// AppendVariations adds variations at the end of a category.
func (s *Store) AppendVariations(ctx context.Context, id string, variations []domain.Variation) (*domain.Category, error) {
	return s.update(id, func(c *domain.Category) error {
		for _, v := range variations {
			v = s.prepare(v, c.Key)
			c.Variations = append(c.Variations, v)
			s.variations[v.ID] = c.ID
		}
		return nil
	})
}

// AddColors adds colors with set semantics.
func (s *Store) AddColors(ctx context.Context, id string, colors []string) (*domain.Category, error) {
	return s.update(id, func(c *domain.Category) error {
		c.AddColors(colors...)
		return nil
	})
}

// ReplaceVariation swaps the stored variation that has the same ID.
func (s *Store) ReplaceVariation(ctx context.Context, id string, variation domain.Variation) (*domain.Category, error) {
	return s.update(id, func(c *domain.Category) error {
		for i, v := range c.Variations {
			if v.ID == variation.ID {
				variation.CategoryKey = c.Key
				c.Variations[i] = variation
				return nil
			}
		}
		return domain.NewVariationNotFound(variation.ID)
	})
}

// FindVariations returns the variations for ids, in order.
func (s *Store) FindVariations(ctx context.Context, ids []string) ([]domain.Variation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Variation, 0, len(ids))
	var missing []string
	for _, id := range ids {
		v, ok := s.lookupVariation(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, v)
	}
	if len(missing) > 0 {
		return nil, domain.NewVariationNotFound(missing...)
	}
	return out, nil
}

func (s *Store) lookupVariation(id string) (domain.Variation, bool) {
	cid, ok := s.variations[id]
	if !ok {
		return domain.Variation{}, false
	}
	return s.data[cid].Variation(id)
}

// update applies fn to a private copy and swaps it in only when fn succeeds.
func (s *Store) update(id string, fn func(*domain.Category) error) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[id]
	if !ok {
		return nil, domain.NewAttributeNotFound(id)
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	s.data[id] = &next

	out := next.Clone()
	return &out, nil
}

func (s *Store) prepare(v domain.Variation, key string) domain.Variation {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CategoryKey = key
	return v
}
