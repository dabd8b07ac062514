package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/facet/pkg/domain"
)

// SeedAttribute is an attribute declared in a seed file.
type SeedAttribute struct {
	Key        string         `json:"key" yaml:"key" mapstructure:"key"`
	Variations []NewVariation `json:"variations" yaml:"variations" mapstructure:"variations"`
	Colors     []string       `json:"colors" yaml:"colors" mapstructure:"colors"`
}

// Seed creates the attributes whose key is not taken yet and returns how many were created.
// Existing keys are skipped so that seeding is idempotent across restarts.
func (r *Registry) Seed(ctx context.Context, attrs []SeedAttribute) (int, error) {
	created := 0
	for _, a := range attrs {
		exists, err := r.store.KeyExists(ctx, a.Key)
		if err != nil {
			return created, storeErr(err)
		}
		if exists {
			r.logger.Debug("seed attribute exists, skipping", "key", a.Key)
			continue
		}
		if _, err := r.CreateAttribute(ctx, a.Key, a.Variations, a.Colors); err != nil {
			if errors.Is(err, domain.ErrDuplicateKey) {
				continue
			}
			return created, fmt.Errorf("seed attribute %q: %w", a.Key, err)
		}
		created++
	}
	return created, nil
}
