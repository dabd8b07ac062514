package facet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/facet/pkg/adapters/loam"
	"github.com/aretw0/facet/pkg/adapters/memory"
	"github.com/aretw0/facet/pkg/compose"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/aretw0/facet/pkg/ports"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/aretw0/facet/pkg/selector"
)

// ErrWatchUnsupported is returned by Watch when no change source is configured.
var ErrWatchUnsupported = errors.New("current registry does not support watching")

// Engine is the high-level entry point for the facet library.
// It resolves variations through the registry and the fragment cache, then composes them.
type Engine struct {
	registry ports.Registry
	cache    ports.FragmentCache
	watcher  ports.FragmentWatcher
	selector *selector.Selector
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	Name     string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry injects a Registry, bypassing the default Loam catalog.
func WithRegistry(r ports.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithCache sets the fragment cache. A nil cache disables caching.
func WithCache(c ports.FragmentCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// WithWatcher sets the source of catalog change notifications used by Watch.
func WithWatcher(w ports.FragmentWatcher) Option {
	return func(e *Engine) {
		e.watcher = w
	}
}

// WithSelector sets the random selector.
func WithSelector(s *selector.Selector) Option {
	return func(e *Engine) {
		e.selector = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Engine.
// By default, it reads a read-only Loam catalog at catalogDir.
// If WithRegistry option is provided, catalogDir can be empty and Loam is skipped.
func New(catalogDir string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		cache: memory.NewFragmentCache(),
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if eng.registry == nil {
		if catalogDir == "" {
			return nil, fmt.Errorf("catalogDir is required when no custom registry is provided")
		}
		catalog, err := loam.Open(catalogDir, loam.WithLogger(eng.logger))
		if err != nil {
			return nil, err
		}
		eng.registry = registry.New(catalog, registry.WithLogger(eng.logger))
		if eng.watcher == nil {
			eng.watcher = catalog
		}
		eng.Name = catalogDir
	}

	if eng.Name != "" {
		eng.logger = eng.logger.With("catalog", eng.Name)
	}

	if eng.selector == nil {
		eng.selector = selector.New()
	}

	return eng, nil
}

// ComposeAvatar merges the requested layers, bottom-most first.
func (e *Engine) ComposeAvatar(ctx context.Context, req domain.LayerRequest) (*domain.CompositeResult, error) {
	return e.compose(ctx, req, false)
}

// SelectRandom draws one variation and one color per catalog category.
func (e *Engine) SelectRandom(ctx context.Context) (domain.LayerRequest, error) {
	catalog, err := e.registry.Catalog(ctx)
	if err != nil {
		return nil, registryErr(err)
	}
	return e.selector.Select(catalog)
}

// ComposeRandom selects a random avatar and composes it. The result carries the draw.
func (e *Engine) ComposeRandom(ctx context.Context) (*domain.CompositeResult, error) {
	req, err := e.SelectRandom(ctx)
	if err != nil {
		return nil, err
	}
	return e.compose(ctx, req, true)
}

func (e *Engine) compose(ctx context.Context, req domain.LayerRequest, random bool) (result *domain.CompositeResult, err error) {
	start := time.Now()
	defer func() {
		if e.hooks.OnCompose != nil {
			e.hooks.OnCompose(ctx, &domain.ComposeEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventCompose},
				Random:    random,
				Layers:    len(req),
				Duration:  time.Since(start),
				Err:       err,
			})
		}
		if err != nil {
			e.logger.Debug("compose failed", "layers", len(req), "random", random, "err", err)
		}
	}()

	if len(req) == 0 {
		return nil, domain.ErrEmptyInput
	}
	colors := req.Colors()
	for _, c := range colors {
		if c != "" && !domain.IsHexColor(c) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidColor, c)
		}
	}

	fragments, err := e.fragments(ctx, req.VariationIDs())
	if err != nil {
		return nil, err
	}

	root, err := compose.Compose(fragments, colors)
	if err != nil {
		return nil, err
	}

	return &domain.CompositeResult{
		Root:   root,
		SVG:    graphic.Serialize(root),
		Layers: append(domain.LayerRequest(nil), req...),
	}, nil
}

// fragments returns one parsed tree per id, from the cache when possible.
func (e *Engine) fragments(ctx context.Context, ids []string) ([]*graphic.Element, error) {
	trees := make(map[string]*graphic.Element, len(ids))
	var misses []string
	hits := 0

	for _, id := range ids {
		if _, done := trees[id]; done {
			continue
		}
		if tree := e.cached(ctx, id); tree != nil {
			trees[id] = tree
			hits++
			continue
		}
		trees[id] = nil
		misses = append(misses, id)
	}

	if len(misses) > 0 {
		// Generations are read before the registry so that an edit landing in
		// between keeps the stale tree out of the cache.
		gens := e.generations(ctx, misses)

		resolved, err := e.registry.ResolveFragments(ctx, misses)
		if err != nil {
			return nil, registryErr(err)
		}
		for _, f := range resolved {
			tree, err := graphic.Parse(f.Document)
			if err != nil {
				return nil, fmt.Errorf("variation %q: %w", f.ID, err)
			}
			trees[f.ID] = tree

			gen, ok := gens[f.ID]
			if !ok {
				continue
			}
			stored, err := e.cache.PutIfGeneration(ctx, f.ID, gen, tree)
			if err != nil {
				e.logger.Warn("failed to cache fragment", "variation", f.ID, "err", err)
			} else if !stored {
				e.logger.Debug("fragment changed while resolving, not cached", "variation", f.ID)
			}
		}
	}

	if e.hooks.OnResolve != nil {
		e.hooks.OnResolve(ctx, &domain.ResolveEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventFragmentResolve},
			Requested: len(trees),
			CacheHits: hits,
		})
	}

	out := make([]*graphic.Element, len(ids))
	for i, id := range ids {
		tree := trees[id]
		if tree == nil {
			return nil, fmt.Errorf("%w: registry returned no fragment for %q", domain.ErrRegistryUnavailable, id)
		}
		out[i] = tree
	}
	return out, nil
}

// generations returns the cache generation of every id that can be cached.
func (e *Engine) generations(ctx context.Context, ids []string) map[string]uint64 {
	if e.cache == nil {
		return nil
	}
	gens := make(map[string]uint64, len(ids))
	for _, id := range ids {
		gen, err := e.cache.Generation(ctx, id)
		if err != nil {
			e.logger.Warn("fragment cache read failed", "variation", id, "err", err)
			continue
		}
		gens[id] = gen
	}
	return gens
}

func (e *Engine) cached(ctx context.Context, id string) *graphic.Element {
	if e.cache == nil {
		return nil
	}
	tree, ok, err := e.cache.Get(ctx, id)
	if err != nil {
		e.logger.Warn("fragment cache read failed", "variation", id, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return tree
}

// Watch invalidates cached fragments whenever the catalog reports a change.
// The returned channel repeats each invalidated batch and closes when ctx is done.
func (e *Engine) Watch(ctx context.Context) (<-chan []string, error) {
	if e.watcher == nil {
		return nil, ErrWatchUnsupported
	}
	changes, err := e.watcher.WatchFragments(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []string, 1)
	go func() {
		defer close(out)
		for ids := range changes {
			if err := e.Invalidate(ctx, ids...); err != nil {
				e.logger.Error("failed to invalidate fragments", "err", err)
			}
			select {
			case out <- ids:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Invalidate drops cached trees for the given variation ids.
func (e *Engine) Invalidate(ctx context.Context, ids ...string) error {
	if e.cache == nil || len(ids) == 0 {
		return nil
	}
	if err := e.cache.Invalidate(ctx, ids...); err != nil {
		return err
	}
	e.logger.Info("fragments invalidated", "variations", ids)
	if e.hooks.OnInvalidate != nil {
		e.hooks.OnInvalidate(ctx, &domain.InvalidateEvent{
			EventBase:    domain.EventBase{Timestamp: time.Now(), Type: domain.EventCacheInvalidate},
			VariationIDs: ids,
		})
	}
	return nil
}

// Registry returns the registry used by the engine.
func (e *Engine) Registry() ports.Registry {
	return e.registry
}

// registryErr passes not-found through and classifies anything else as unavailability.
func registryErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrRegistryUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
}
