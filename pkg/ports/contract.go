package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractFragment(t *testing.T, d string) *graphic.Element {
	t.Helper()
	el, err := graphic.Parse(fmt.Sprintf(`<svg width="10" height="10"><path d=%q/></svg>`, d))
	require.NoError(t, err)
	return el
}

// RunAttributeStoreContract runs a suite of tests to verify that an AttributeStore implementation
// adheres to the defined interface contract. The store must be empty.
func RunAttributeStoreContract(t *testing.T, store AttributeStore) {
	ctx := context.Background()
	suffix := time.Now().Format("150405")
	key := "eyes" + suffix

	var created *domain.Category

	t.Run("Create and Get", func(t *testing.T) {
		var err error
		created, err = store.Create(ctx, domain.Category{
			Key: key,
			Variations: []domain.Variation{
				{Name: "round", Fragment: contractFragment(t, "a")},
				{Name: "square", Fragment: contractFragment(t, "b")},
			},
			Colors: []string{"#000", "#fff"},
		})
		require.NoError(t, err, "Create should not return error")
		require.NotEmpty(t, created.ID, "Create should assign an ID")
		require.Len(t, created.Variations, 2)
		for _, v := range created.Variations {
			assert.NotEmpty(t, v.ID, "Create should assign variation IDs")
			assert.Equal(t, key, v.CategoryKey)
		}

		loaded, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, key, loaded.Key)
		assert.Equal(t, []string{"#000", "#fff"}, loaded.Colors)
		require.Len(t, loaded.Variations, 2)
		assert.Equal(t, "round", loaded.Variations[0].Name)
		assert.True(t, graphic.Equal(contractFragment(t, "a"), loaded.Variations[0].Fragment))
	})

	t.Run("Duplicate Key", func(t *testing.T) {
		_, err := store.Create(ctx, domain.Category{Key: key, Colors: []string{"#000"}})
		assert.ErrorIs(t, err, domain.ErrDuplicateKey)

		exists, err := store.KeyExists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.KeyExists(ctx, "missing"+suffix)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+suffix)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Returned Copies Are Isolated", func(t *testing.T) {
		require.NotNil(t, created)
		loaded, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		loaded.Colors[0] = "#123"
		loaded.Variations = nil

		again, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "#000", again.Colors[0])
		assert.Len(t, again.Variations, 2)
	})

	t.Run("Append Variations", func(t *testing.T) {
		require.NotNil(t, created)
		updated, err := store.AppendVariations(ctx, created.ID, []domain.Variation{
			{Name: "sleepy", Fragment: contractFragment(t, "c")},
		})
		require.NoError(t, err)
		require.Len(t, updated.Variations, 3)
		assert.Equal(t, "sleepy", updated.Variations[2].Name)
		assert.NotEmpty(t, updated.Variations[2].ID)

		_, err = store.AppendVariations(ctx, "non-existent-"+suffix, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Add Colors Is A Set", func(t *testing.T) {
		require.NotNil(t, created)
		updated, err := store.AddColors(ctx, created.ID, []string{"#fff", "#f00", "#f00"})
		require.NoError(t, err)
		assert.Equal(t, []string{"#000", "#fff", "#f00"}, updated.Colors)
	})

	t.Run("Find Variations", func(t *testing.T) {
		require.NotNil(t, created)
		a, b := created.Variations[0].ID, created.Variations[1].ID

		found, err := store.FindVariations(ctx, []string{b, a, b})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, b, found[0].ID)
		assert.Equal(t, a, found[1].ID)
		assert.Equal(t, b, found[2].ID)

		_, err = store.FindVariations(ctx, []string{a, "ghost-1", "ghost-2"})
		require.ErrorIs(t, err, domain.ErrNotFound)
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"ghost-1", "ghost-2"}, nf.IDs)
	})

	t.Run("Replace Variation", func(t *testing.T) {
		require.NotNil(t, created)
		v := created.Variations[0]
		v.Name = "renamed"
		v.Fragment = contractFragment(t, "z")

		updated, err := store.ReplaceVariation(ctx, created.ID, v)
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.Variations[0].Name)

		found, err := store.FindVariations(ctx, []string{v.ID})
		require.NoError(t, err)
		assert.True(t, graphic.Equal(contractFragment(t, "z"), found[0].Fragment))

		_, err = store.ReplaceVariation(ctx, created.ID, domain.Variation{ID: "ghost"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		second, err := store.Create(ctx, domain.Category{
			Key:        "mouth" + suffix,
			Variations: []domain.Variation{{Name: "smile", Fragment: contractFragment(t, "m")}},
			Colors:     []string{"#f00"},
		})
		require.NoError(t, err)

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, created.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)
	})
}

// RunFragmentCacheContract verifies that a FragmentCache implementation behaves as a
// keyed cache of immutable trees. The cache must be empty.
func RunFragmentCacheContract(t *testing.T, cache FragmentCache) {
	ctx := context.Background()

	t.Run("Miss", func(t *testing.T) {
		got, ok, err := cache.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Put and Get", func(t *testing.T) {
		frag := contractFragment(t, "a")
		require.NoError(t, cache.Put(ctx, "v1", frag))

		got, ok, err := cache.Get(ctx, "v1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, graphic.Equal(frag, got))
	})

	t.Run("Invalidate", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, "v2", contractFragment(t, "b")))
		require.NoError(t, cache.Invalidate(ctx, "v1", "unknown"))

		_, ok, err := cache.Get(ctx, "v1")
		require.NoError(t, err)
		assert.False(t, ok, "v1 should be gone")

		_, ok, err = cache.Get(ctx, "v2")
		require.NoError(t, err)
		assert.True(t, ok, "v2 should survive")

		require.NoError(t, cache.Invalidate(ctx))
	})

	t.Run("Generation", func(t *testing.T) {
		gen, err := cache.Generation(ctx, "v3")
		require.NoError(t, err)
		assert.Zero(t, gen)

		stored, err := cache.PutIfGeneration(ctx, "v3", gen, contractFragment(t, "c"))
		require.NoError(t, err)
		assert.True(t, stored)

		require.NoError(t, cache.Invalidate(ctx, "v3"))
		next, err := cache.Generation(ctx, "v3")
		require.NoError(t, err)
		assert.Greater(t, next, gen)

		stored, err = cache.PutIfGeneration(ctx, "v3", gen, contractFragment(t, "stale"))
		require.NoError(t, err)
		assert.False(t, stored, "a tree read before the invalidation is refused")
		_, ok, err := cache.Get(ctx, "v3")
		require.NoError(t, err)
		assert.False(t, ok)

		stored, err = cache.PutIfGeneration(ctx, "v3", next, contractFragment(t, "fresh"))
		require.NoError(t, err)
		assert.True(t, stored)
		got, ok, err := cache.Get(ctx, "v3")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, graphic.Equal(contractFragment(t, "fresh"), got))
	})
}
