package facet_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/facet"
	"github.com/aretw0/facet/pkg/adapters/memory"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/aretw0/facet/pkg/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *graphic.Element {
	t.Helper()
	el, err := graphic.Parse(doc)
	require.NoError(t, err)
	return el
}

// countingRegistry records every id the engine asks the registry for.
type countingRegistry struct {
	*registry.Registry
	mu       sync.Mutex
	resolved []string
	err      error
	docs     map[string]string
}

func (c *countingRegistry) ResolveFragments(ctx context.Context, ids []string) ([]domain.Fragment, error) {
	c.mu.Lock()
	c.resolved = append(c.resolved, ids...)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.docs != nil {
		out := make([]domain.Fragment, len(ids))
		for i, id := range ids {
			out[i] = domain.Fragment{ID: id, Document: c.docs[id]}
		}
		return out, nil
	}
	return c.Registry.ResolveFragments(ctx, ids)
}

func (c *countingRegistry) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.resolved...)
}

func newCatalog(t *testing.T) *countingRegistry {
	t.Helper()
	store, err := memory.NewStoreFrom(context.Background(),
		domain.Category{
			ID:  "background",
			Key: "background",
			Variations: []domain.Variation{
				{ID: "v1", Name: "hollow", Fragment: mustParse(t, `<svg width="10" height="10" fill="none"><path d="a"/></svg>`)},
			},
			Colors: []string{"#ffffff"},
		},
		domain.Category{
			ID:  "eyes",
			Key: "eyes",
			Variations: []domain.Variation{
				{ID: "v2", Name: "plain", Fragment: mustParse(t, `<svg><path d="b"/></svg>`)},
				{ID: "v3", Name: "dotted", Fragment: mustParse(t, `<svg stroke="#000"><circle r="1"/></svg>`)},
			},
			Colors: []string{"#ff0000", "#00ff00"},
		},
	)
	require.NoError(t, err)
	return &countingRegistry{Registry: registry.New(store)}
}

func TestEngine_ComposeAvatar(t *testing.T) {
	reg := newCatalog(t)
	eng, err := facet.New("", facet.WithRegistry(reg))
	require.NoError(t, err)

	result, err := eng.ComposeAvatar(context.Background(), domain.LayerRequest{
		{VariationID: "v1"},
		{VariationID: "v2", Color: "#ff0000"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`<svg viewBox="0 0 10 10"><g fill="none"><path d="a"/></g><g stroke="#ff0000" fill="#ff0000"><path d="b"/></g></svg>`,
		result.SVG)
	assert.Equal(t, result.SVG, graphic.Serialize(result.Root))
	assert.Equal(t, domain.LayerRequest{{VariationID: "v1"}, {VariationID: "v2", Color: "#ff0000"}}, result.Layers)
}

func TestEngine_UsesCache(t *testing.T) {
	reg := newCatalog(t)
	cache := memory.NewFragmentCache()
	eng, err := facet.New("", facet.WithRegistry(reg), facet.WithCache(cache))
	require.NoError(t, err)
	ctx := context.Background()

	req := domain.LayerRequest{{VariationID: "v2"}, {VariationID: "v2", Color: "#00ff00"}}
	_, err = eng.ComposeAvatar(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, reg.calls(), "duplicates resolve once")
	assert.Equal(t, 1, cache.Len())

	_, err = eng.ComposeAvatar(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, reg.calls(), "second request is served from cache")

	require.NoError(t, eng.Invalidate(ctx, "v2"))
	_, err = eng.ComposeAvatar(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v2"}, reg.calls())
}

func TestEngine_CachedTreesAreNotMutated(t *testing.T) {
	reg := newCatalog(t)
	cache := memory.NewFragmentCache()
	eng, err := facet.New("", facet.WithRegistry(reg), facet.WithCache(cache))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v3", Color: "#00ff00"}})
	require.NoError(t, err)
	first.Root.Children[0].(*graphic.Element).Children = nil

	cached, ok, err := cache.Get(ctx, "v3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, graphic.Equal(mustParse(t, `<svg stroke="#000"><circle r="1"/></svg>`), cached))
}

// editingRegistry updates a variation right after the engine read it, once.
type editingRegistry struct {
	*registry.Registry
	once sync.Once
	t    *testing.T
}

func (r *editingRegistry) ResolveFragments(ctx context.Context, ids []string) ([]domain.Fragment, error) {
	frags, err := r.Registry.ResolveFragments(ctx, ids)
	r.once.Do(func() {
		_, uerr := r.Registry.UpdateVariation(ctx, "eyes", "v2", registry.NewVariation{SVG: `<svg><path d="new"/></svg>`})
		require.NoError(r.t, uerr)
	})
	return frags, err
}

func TestEngine_EditDuringResolveIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := memory.NewFragmentCache()
	store, err := memory.NewStoreFrom(ctx, domain.Category{
		ID:         "eyes",
		Key:        "eyes",
		Variations: []domain.Variation{{ID: "v2", Name: "plain", Fragment: mustParse(t, `<svg><path d="old"/></svg>`)}},
		Colors:     []string{"#ff0000"},
	})
	require.NoError(t, err)

	reg := &editingRegistry{Registry: registry.New(store, registry.WithCache(cache)), t: t}
	eng, err := facet.New("", facet.WithRegistry(reg), facet.WithCache(cache))
	require.NoError(t, err)

	first, err := eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v2"}})
	require.NoError(t, err)
	assert.Contains(t, first.SVG, `d="old"`, "the in-flight request keeps what it read")
	assert.Zero(t, cache.Len(), "the stale tree must not be cached")

	second, err := eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v2"}})
	require.NoError(t, err)
	assert.Equal(t, `<svg><g><path d="new"/></g></svg>`, second.SVG)
	assert.Equal(t, 1, cache.Len())
}

func TestEngine_WithoutCache(t *testing.T) {
	reg := newCatalog(t)
	eng, err := facet.New("", facet.WithRegistry(reg), facet.WithCache(nil))
	require.NoError(t, err)
	ctx := context.Background()

	for range 2 {
		_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v1"}})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"v1", "v1"}, reg.calls())
}

func TestEngine_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty Request", func(t *testing.T) {
		eng, err := facet.New("", facet.WithRegistry(newCatalog(t)))
		require.NoError(t, err)
		_, err = eng.ComposeAvatar(ctx, nil)
		assert.ErrorIs(t, err, domain.ErrEmptyInput)
	})

	t.Run("Invalid Color Checked Before Lookup", func(t *testing.T) {
		reg := newCatalog(t)
		eng, err := facet.New("", facet.WithRegistry(reg))
		require.NoError(t, err)
		_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v1", Color: "red"}})
		assert.ErrorIs(t, err, domain.ErrInvalidColor)
		assert.Empty(t, reg.calls())
	})

	t.Run("Unknown Variations", func(t *testing.T) {
		eng, err := facet.New("", facet.WithRegistry(newCatalog(t)))
		require.NoError(t, err)
		_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "x"}, {VariationID: "v1"}, {VariationID: "y"}})
		require.ErrorIs(t, err, domain.ErrNotFound)
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"x", "y"}, nf.IDs)
	})

	t.Run("Registry Down", func(t *testing.T) {
		reg := newCatalog(t)
		reg.err = errors.New("connection reset")
		eng, err := facet.New("", facet.WithRegistry(reg))
		require.NoError(t, err)
		_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v1"}})
		assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)
	})

	t.Run("Malformed Fragment", func(t *testing.T) {
		reg := newCatalog(t)
		reg.docs = map[string]string{"v1": "<svg><g></svg>"}
		eng, err := facet.New("", facet.WithRegistry(reg))
		require.NoError(t, err)
		_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v1"}})
		assert.ErrorIs(t, err, domain.ErrParse)
	})

	t.Run("Missing Catalog Dir", func(t *testing.T) {
		_, err := facet.New("")
		assert.Error(t, err)
	})
}

func TestEngine_ComposeRandom(t *testing.T) {
	reg := newCatalog(t)
	sel := selector.New(selector.WithSource(rand.NewPCG(7, 11)))
	eng, err := facet.New("", facet.WithRegistry(reg), facet.WithSelector(sel))
	require.NoError(t, err)
	ctx := context.Background()

	seen := map[string]bool{}
	for range 50 {
		result, err := eng.ComposeRandom(ctx)
		require.NoError(t, err)
		require.Len(t, result.Layers, 2, "one layer per category")
		assert.Equal(t, "v1", result.Layers[0].VariationID)
		assert.Equal(t, "#ffffff", result.Layers[0].Color)
		assert.Contains(t, []string{"v2", "v3"}, result.Layers[1].VariationID)
		assert.Contains(t, []string{"#ff0000", "#00ff00"}, result.Layers[1].Color)
		seen[result.Layers[1].VariationID] = true

		replay, err := eng.ComposeAvatar(ctx, result.Layers)
		require.NoError(t, err)
		assert.Equal(t, result.SVG, replay.SVG, "the reported draw reproduces the avatar")
	}
	assert.Len(t, seen, 2)
}

func TestEngine_ComposeRandom_EmptyCategory(t *testing.T) {
	store, err := memory.NewStoreFrom(context.Background(), domain.Category{ID: "eyes", Key: "eyes", Colors: []string{"#000"}})
	require.NoError(t, err)
	eng, err := facet.New("", facet.WithRegistry(registry.New(store)))
	require.NoError(t, err)

	_, err = eng.ComposeRandom(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyCategory)
}

func TestEngine_ComposeRandom_EmptyCatalog(t *testing.T) {
	eng, err := facet.New("", facet.WithRegistry(registry.New(memory.NewStore())))
	require.NoError(t, err)

	_, err = eng.ComposeRandom(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)
	assert.NotErrorIs(t, err, domain.ErrEmptyInput)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var composed []*domain.ComposeEvent
	var resolved []*domain.ResolveEvent
	hooks := domain.LifecycleHooks{
		OnCompose: func(_ context.Context, e *domain.ComposeEvent) { composed = append(composed, e) },
		OnResolve: func(_ context.Context, e *domain.ResolveEvent) { resolved = append(resolved, e) },
	}

	eng, err := facet.New("", facet.WithRegistry(newCatalog(t)), facet.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	ctx := context.Background()

	req := domain.LayerRequest{{VariationID: "v1"}, {VariationID: "v2"}}
	_, err = eng.ComposeAvatar(ctx, req)
	require.NoError(t, err)
	_, err = eng.ComposeAvatar(ctx, req)
	require.NoError(t, err)
	_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "nope"}})
	require.Error(t, err)

	require.Len(t, composed, 3)
	assert.Equal(t, domain.EventCompose, composed[0].Type)
	assert.Equal(t, 2, composed[0].Layers)
	assert.NoError(t, composed[0].Err)
	assert.ErrorIs(t, composed[2].Err, domain.ErrNotFound)

	require.Len(t, resolved, 2, "failed lookups do not report a resolve")
	assert.Equal(t, 0, resolved[0].CacheHits)
	assert.Equal(t, 2, resolved[1].CacheHits)
}

type fakeWatcher struct {
	ch chan []string
}

func (f *fakeWatcher) WatchFragments(ctx context.Context) (<-chan []string, error) {
	return f.ch, nil
}

func TestEngine_Watch(t *testing.T) {
	reg := newCatalog(t)
	cache := memory.NewFragmentCache()
	watcher := &fakeWatcher{ch: make(chan []string)}

	var invalidated []string
	var mu sync.Mutex
	hooks := domain.LifecycleHooks{
		OnInvalidate: func(_ context.Context, e *domain.InvalidateEvent) {
			mu.Lock()
			defer mu.Unlock()
			invalidated = append(invalidated, e.VariationIDs...)
		},
	}

	eng, err := facet.New("",
		facet.WithRegistry(reg),
		facet.WithCache(cache),
		facet.WithWatcher(watcher),
		facet.WithLifecycleHooks(hooks),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err = eng.ComposeAvatar(ctx, domain.LayerRequest{{VariationID: "v1"}, {VariationID: "v2"}})
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	changes, err := eng.Watch(ctx)
	require.NoError(t, err)

	watcher.ch <- []string{"v1"}
	select {
	case ids := <-changes:
		assert.Equal(t, []string{"v1"}, ids)
	case <-time.After(time.Second):
		t.Fatal("invalidation was not forwarded")
	}

	assert.Equal(t, 1, cache.Len())
	mu.Lock()
	assert.Equal(t, []string{"v1"}, invalidated)
	mu.Unlock()

	close(watcher.ch)
}

func TestEngine_WatchUnsupported(t *testing.T) {
	eng, err := facet.New("", facet.WithRegistry(newCatalog(t)))
	require.NoError(t, err)
	_, err = eng.Watch(context.Background())
	assert.ErrorIs(t, err, facet.ErrWatchUnsupported)
}

func TestEngine_DefaultLoamCatalog(t *testing.T) {
	dir := t.TempDir()
	doc := `---
key: eyes
colors: ['#123456']
variations:
  - name: round
    svg: '<svg width="4" height="4"><circle r="2"/></svg>'
---
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eyes.md"), []byte(doc), 0o644))

	eng, err := facet.New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	result, err := eng.ComposeRandom(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LayerRequest{{VariationID: "eyes-round", Color: "#123456"}}, result.Layers)
	assert.Equal(t, `<svg viewBox="0 0 4 4"><g stroke="#123456" fill="#123456"><circle r="2"/></g></svg>`, result.SVG)
}
