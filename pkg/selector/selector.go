// Package selector draws random avatars from a category catalog.
package selector

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/aretw0/facet/pkg/domain"
)

// Selector picks one variation and one color per category, uniformly and
// independently. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithSource pins the random source, typically to make tests deterministic.
func WithSource(src rand.Source) Option {
	return func(s *Selector) {
		s.rng = rand.New(src)
	}
}

// New creates a Selector. Without WithSource it draws from the runtime's
// randomly seeded generator.
func New(opts ...Option) *Selector {
	s := &Selector{}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(runtimeSource{})
	}
	return s
}

// Select returns one layer per category, in catalog order.
func (s *Selector) Select(catalog []domain.Category) (domain.LayerRequest, error) {
	if len(catalog) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	for _, c := range catalog {
		if len(c.Variations) == 0 || len(c.Colors) == 0 {
			return nil, fmt.Errorf("%w: %q", domain.ErrEmptyCategory, c.Key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	layers := make(domain.LayerRequest, 0, len(catalog))
	for _, c := range catalog {
		v := c.Variations[s.rng.IntN(len(c.Variations))]
		color := c.Colors[s.rng.IntN(len(c.Colors))]
		layers = append(layers, domain.Layer{VariationID: v.ID, Color: color})
	}
	return layers, nil
}

// runtimeSource reads from the package-level generator, which needs no locking.
type runtimeSource struct{}

func (runtimeSource) Uint64() uint64 { return rand.Uint64() }
