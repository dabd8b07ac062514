package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/aretw0/facet/pkg/ports"
	"github.com/aretw0/facet/pkg/schema"
)

// DefaultLockTTL bounds how long an administrative edit may hold an attribute.
const DefaultLockTTL = 5 * time.Second

// NewVariation is an uploaded variation before validation.
type NewVariation struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	SVG  string `json:"svg" yaml:"svg" mapstructure:"svg"`
}

// Registry is the attribute registry service. It validates administrative edits,
// resolves fragments for the engine and serves the catalog.
type Registry struct {
	store   ports.AttributeStore
	cache   ports.FragmentCache
	locker  ports.DistributedLocker
	logger  *slog.Logger
	lockTTL time.Duration
}

// Option configures the registry.
type Option func(*Registry)

// WithCache sets the fragment cache invalidated on edits.
func WithCache(cache ports.FragmentCache) Option {
	return func(r *Registry) {
		r.cache = cache
	}
}

// WithLocker serializes edits of one attribute across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(r *Registry) {
		r.locker = locker
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		r.lockTTL = ttl
	}
}

// New creates a registry on top of a store.
func New(store ports.AttributeStore, opts ...Option) *Registry {
	r := &Registry{
		store:   store,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		lockTTL: DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveFragments implements ports.FragmentResolver.
func (r *Registry) ResolveFragments(ctx context.Context, ids []string) ([]domain.Fragment, error) {
	variations, err := r.store.FindVariations(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}

	out := make([]domain.Fragment, len(variations))
	for i, v := range variations {
		if v.Fragment == nil {
			return nil, fmt.Errorf("%w: variation %q has no fragment", domain.ErrRegistryUnavailable, v.ID)
		}
		out[i] = domain.Fragment{ID: v.ID, Document: graphic.Serialize(v.Fragment)}
	}
	return out, nil
}

// Catalog implements ports.CatalogProvider.
func (r *Registry) Catalog(ctx context.Context) ([]domain.Category, error) {
	categories, err := r.store.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return categories, nil
}

// List returns every attribute with its variations serialized to SVG.
func (r *Registry) List(ctx context.Context) ([]AttributeView, error) {
	categories, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AttributeView, len(categories))
	for i, c := range categories {
		out[i] = View(c)
	}
	return out, nil
}

// CreateAttribute validates and stores a new attribute.
func (r *Registry) CreateAttribute(ctx context.Context, key string, variations []NewVariation, colors []string) (*domain.Category, error) {
	var c schema.Collector

	if c.Required("key", key) && c.Length("key", key, domain.MinKeyLength, domain.MaxKeyLength) {
		exists, err := r.store.KeyExists(ctx, key)
		if err != nil {
			return nil, storeErr(err)
		}
		if exists {
			c.Add("key", schema.CodeUniqueField, "key already exists", key)
		}
	}

	parsed := r.validateVariations(&c, variations, domain.Category{})
	validateColors(&c, colors)

	if err := c.Err(); err != nil {
		return nil, err
	}

	unlock, err := r.lock(ctx, "key:"+key)
	if err != nil {
		return nil, err
	}
	defer r.unlock(ctx, unlock)

	created, err := r.store.Create(ctx, domain.Category{
		Key:        key,
		Variations: parsed,
		Colors:     colors,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	r.logger.Info("attribute created", "id", created.ID, "key", created.Key, "variations", len(created.Variations))
	return created, nil
}

// AddVariations appends variations to an attribute. Names must be unique within it.
func (r *Registry) AddVariations(ctx context.Context, attributeID string, variations []NewVariation) (*domain.Category, error) {
	unlock, err := r.lock(ctx, attributeID)
	if err != nil {
		return nil, err
	}
	defer r.unlock(ctx, unlock)

	current, err := r.store.Get(ctx, attributeID)
	if err != nil {
		return nil, storeErr(err)
	}

	var c schema.Collector
	parsed := r.validateVariations(&c, variations, *current)
	if err := c.Err(); err != nil {
		return nil, err
	}

	updated, err := r.store.AppendVariations(ctx, attributeID, parsed)
	if err != nil {
		return nil, storeErr(err)
	}

	r.logger.Info("variations added", "id", attributeID, "count", len(parsed))
	return updated, nil
}

// AddColors adds colors to an attribute. Colors already present are ignored.
func (r *Registry) AddColors(ctx context.Context, attributeID string, colors []string) (*domain.Category, error) {
	var c schema.Collector
	validateColors(&c, colors)
	if err := c.Err(); err != nil {
		return nil, err
	}

	unlock, err := r.lock(ctx, attributeID)
	if err != nil {
		return nil, err
	}
	defer r.unlock(ctx, unlock)

	updated, err := r.store.AddColors(ctx, attributeID, colors)
	if err != nil {
		return nil, storeErr(err)
	}
	return updated, nil
}

// UpdateVariation replaces the artwork of a variation and optionally renames it.
// The cached tree for the variation is dropped.
func (r *Registry) UpdateVariation(ctx context.Context, attributeID, variationID string, update NewVariation) (*domain.Category, error) {
	unlock, err := r.lock(ctx, attributeID)
	if err != nil {
		return nil, err
	}
	defer r.unlock(ctx, unlock)

	current, err := r.store.Get(ctx, attributeID)
	if err != nil {
		return nil, storeErr(err)
	}
	existing, ok := current.Variation(variationID)
	if !ok {
		return nil, domain.NewVariationNotFound(variationID)
	}

	var c schema.Collector
	if update.Name != "" && update.Name != existing.Name {
		if c.Length("name", update.Name, domain.MinKeyLength, domain.MaxKeyLength) && current.HasVariationName(update.Name) {
			c.Add("name", schema.CodeUniqueField, "variation name already exists", update.Name)
		}
		existing.Name = update.Name
	}
	if c.Required("svg", update.SVG) {
		if tree := validateSVG(&c, "svg", update.SVG); tree != nil {
			existing.Fragment = tree
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	updated, err := r.store.ReplaceVariation(ctx, attributeID, existing)
	if err != nil {
		return nil, storeErr(err)
	}

	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, variationID); err != nil {
			r.logger.Error("failed to invalidate fragment cache", "variation", variationID, "err", err)
		}
	}

	r.logger.Info("variation updated", "id", attributeID, "variation", variationID)
	return updated, nil
}

func (r *Registry) validateVariations(c *schema.Collector, variations []NewVariation, current domain.Category) []domain.Variation {
	if !c.MinItems("variations", len(variations), 1) {
		return nil
	}

	seen := make(map[string]bool, len(variations))
	out := make([]domain.Variation, 0, len(variations))
	for i, nv := range variations {
		nameKey := fmt.Sprintf("variations[%d].name", i)
		if c.Required(nameKey, nv.Name) && c.Length(nameKey, nv.Name, domain.MinKeyLength, domain.MaxKeyLength) {
			if seen[nv.Name] || current.HasVariationName(nv.Name) {
				c.Add(nameKey, schema.CodeUniqueField, "variation name already exists", nv.Name)
			}
			seen[nv.Name] = true
		}

		svgKey := fmt.Sprintf("variations[%d].svg", i)
		if !c.Required(svgKey, nv.SVG) {
			continue
		}
		if tree := validateSVG(c, svgKey, nv.SVG); tree != nil {
			out = append(out, domain.Variation{Name: nv.Name, Fragment: tree})
		}
	}
	return out
}

func validateSVG(c *schema.Collector, key, doc string) *graphic.Element {
	tree, err := SanitizeSVG(doc)
	if err != nil {
		c.Add(key, schema.CodeInvalidSVG, err.Error(), nil)
		return nil
	}
	return tree
}

func validateColors(c *schema.Collector, colors []string) {
	if !c.MinItems("colors", len(colors), 1) {
		return
	}
	for i, color := range colors {
		if !domain.IsHexColor(color) {
			c.Add(fmt.Sprintf("colors[%d]", i), schema.CodeInvalidColor, "invalid hex color", color)
		}
	}
}

func (r *Registry) lock(ctx context.Context, key string) (ports.UnlockFunc, error) {
	if r.locker == nil {
		return nil, nil
	}
	unlock, err := r.locker.Lock(ctx, "attribute:"+key, r.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
	return unlock, nil
}

func (r *Registry) unlock(ctx context.Context, unlock ports.UnlockFunc) {
	if unlock == nil {
		return
	}
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("failed to release attribute lock", "err", err)
	}
}

// storeErr keeps the errors callers branch on and classifies the rest as unavailability.
func storeErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicateKey),
		errors.Is(err, domain.ErrReadOnly),
		errors.Is(err, domain.ErrRegistryUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}
}
