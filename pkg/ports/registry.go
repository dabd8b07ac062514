package ports

import (
	"context"

	"github.com/aretw0/facet/pkg/domain"
)

// FragmentResolver resolves variation ids to raw fragment documents.
type FragmentResolver interface {
	// ResolveFragments returns one fragment per id, in order, duplicates included.
	// Returns a *domain.NotFoundError naming every unresolved id.
	ResolveFragments(ctx context.Context, ids []string) ([]domain.Fragment, error)
}

// CatalogProvider lists the categories available for random selection.
type CatalogProvider interface {
	Catalog(ctx context.Context) ([]domain.Category, error)
}

// Registry is what the engine consumes from the attribute registry.
type Registry interface {
	FragmentResolver
	CatalogProvider
}

// FragmentWatcher reports fragments whose backing document changed.
// This is used to invalidate cached trees when a file-based catalog is edited.
type FragmentWatcher interface {
	// WatchFragments returns a channel of variation id batches. The channel is closed
	// when ctx is done.
	WatchFragments(ctx context.Context) (<-chan []string, error)
}
