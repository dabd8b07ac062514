package selector_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() []domain.Category {
	return []domain.Category{
		{
			Key:        "background",
			Variations: []domain.Variation{{ID: "bg-1"}, {ID: "bg-2"}},
			Colors:     []string{"#fff", "#000", "#abc"},
		},
		{
			Key:        "eyes",
			Variations: []domain.Variation{{ID: "eyes-1"}, {ID: "eyes-2"}, {ID: "eyes-3"}, {ID: "eyes-4"}},
			Colors:     []string{"#123456"},
		},
		{
			Key:        "mouth",
			Variations: []domain.Variation{{ID: "mouth-1"}},
			Colors:     []string{"#f00", "#0f0"},
		},
	}
}

func TestSelect_OneLayerPerCategoryInOrder(t *testing.T) {
	s := selector.New()
	cat := catalog()

	layers, err := s.Select(cat)
	require.NoError(t, err)
	require.Len(t, layers, len(cat))

	for i, c := range cat {
		_, ok := c.Variation(layers[i].VariationID)
		assert.True(t, ok, "layer %d picked %q outside category %q", i, layers[i].VariationID, c.Key)
		assert.Contains(t, c.Colors, layers[i].Color)
	}
}

func TestSelect_DeterministicWithPinnedSource(t *testing.T) {
	a := selector.New(selector.WithSource(rand.NewPCG(7, 11)))
	b := selector.New(selector.WithSource(rand.NewPCG(7, 11)))

	for range 20 {
		la, err := a.Select(catalog())
		require.NoError(t, err)
		lb, err := b.Select(catalog())
		require.NoError(t, err)
		assert.Equal(t, la, lb)
	}
}

func TestSelect_Coverage(t *testing.T) {
	s := selector.New(selector.WithSource(rand.NewPCG(1, 2)))
	cat := catalog()

	seenVariations := map[string]int{}
	seenColors := map[string]map[string]int{}
	for _, c := range cat {
		seenColors[c.Key] = map[string]int{}
	}

	for range 2000 {
		layers, err := s.Select(cat)
		require.NoError(t, err)
		for i, l := range layers {
			seenVariations[l.VariationID]++
			seenColors[cat[i].Key][l.Color]++
		}
	}

	for _, c := range cat {
		for _, v := range c.Variations {
			assert.Positive(t, seenVariations[v.ID], "variation %s never selected", v.ID)
		}
		for _, color := range c.Colors {
			assert.Positive(t, seenColors[c.Key][color], "color %s never selected for %s", color, c.Key)
		}
	}

	// Roughly uniform: 2000 draws over 4 eyes, expected 500 each.
	for _, id := range []string{"eyes-1", "eyes-2", "eyes-3", "eyes-4"} {
		assert.InDelta(t, 500, seenVariations[id], 120, id)
	}
}

func TestSelect_EmptyCategoryRejected(t *testing.T) {
	s := selector.New()

	_, err := s.Select([]domain.Category{{Key: "hat", Colors: []string{"#fff"}}})
	assert.ErrorIs(t, err, domain.ErrEmptyCategory)

	_, err = s.Select([]domain.Category{{Key: "hat", Variations: []domain.Variation{{ID: "h"}}}})
	assert.ErrorIs(t, err, domain.ErrEmptyCategory)
}

func TestSelect_EmptyCatalog(t *testing.T) {
	layers, err := selector.New().Select(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)
	assert.Nil(t, layers)
}

func TestSelect_ConcurrentUse(t *testing.T) {
	s := selector.New(selector.WithSource(rand.NewPCG(3, 4)))
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_, err := s.Select(catalog())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
