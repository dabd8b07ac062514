package ports

import (
	"context"

	"github.com/aretw0/facet/pkg/graphic"
)

// FragmentCache keeps parsed fragments keyed by variation id.
// Cached trees are shared between requests and must be treated as immutable.
type FragmentCache interface {
	// Get returns the cached tree and true, or nil and false on a miss.
	Get(ctx context.Context, variationID string) (*graphic.Element, bool, error)

	// Put stores a tree for a variation id.
	Put(ctx context.Context, variationID string, fragment *graphic.Element) error

	// Generation returns a counter that every Invalidate of variationID advances.
	// An id that was never invalidated is at generation 0.
	Generation(ctx context.Context, variationID string) (uint64, error)

	// PutIfGeneration stores the tree only while the id is still at gen, so a tree
	// read before an invalidation cannot overwrite it. It reports whether it stored.
	PutIfGeneration(ctx context.Context, variationID string, gen uint64, fragment *graphic.Element) (bool, error)

	// Invalidate drops the given ids. Unknown ids are ignored.
	Invalidate(ctx context.Context, variationIDs ...string) error
}
