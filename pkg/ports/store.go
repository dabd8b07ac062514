package ports

import (
	"context"

	"github.com/aretw0/facet/pkg/domain"
)

// AttributeStore persists categories ("attributes") and their variations.
// Implementations return copies; callers may not mutate stored state through them.
type AttributeStore interface {
	// Create stores a new category. It assigns IDs to the category and its variations
	// when they are empty and returns the stored copy.
	// Returns domain.ErrDuplicateKey if the key is taken.
	Create(ctx context.Context, category domain.Category) (*domain.Category, error)

	// Get retrieves a category by ID.
	// Returns a *domain.NotFoundError if it does not exist.
	Get(ctx context.Context, id string) (*domain.Category, error)

	// List returns all categories in creation order.
	List(ctx context.Context) ([]domain.Category, error)

	// KeyExists reports whether a category uses the given key.
	KeyExists(ctx context.Context, key string) (bool, error)

	// AppendVariations adds variations at the end of a category, assigning IDs.
	AppendVariations(ctx context.Context, id string, variations []domain.Variation) (*domain.Category, error)

	// AddColors adds colors with set semantics, keeping insertion order.
	AddColors(ctx context.Context, id string, colors []string) (*domain.Category, error)

	// ReplaceVariation swaps the stored variation that has the same ID.
	ReplaceVariation(ctx context.Context, id string, variation domain.Variation) (*domain.Category, error)

	// FindVariations returns the variations for ids, in the same order, duplicates included.
	// Returns a *domain.NotFoundError listing every id that does not exist.
	FindVariations(ctx context.Context, ids []string) ([]domain.Variation, error)
}
