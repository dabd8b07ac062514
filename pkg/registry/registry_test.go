package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/facet/pkg/adapters/memory"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/aretw0/facet/pkg/ports/tests"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/aretw0/facet/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	roundEyes  = `<svg width="10" height="10"><circle r="2"/></svg>`
	squareEyes = `<svg width="10" height="10"><rect width="2" height="2"/></svg>`
	smile      = `<svg fill="none"><path d="M0 0"/></svg>`
)

func newRegistry(t *testing.T) (*registry.Registry, *memory.FragmentCache) {
	t.Helper()
	cache := memory.NewFragmentCache()
	reg := registry.New(memory.NewStore(),
		registry.WithCache(cache),
		registry.WithLocker(memory.NewLocker()),
	)
	return reg, cache
}

func codes(t *testing.T, err error) map[string]schema.Code {
	t.Helper()
	var aggr *schema.AggregateError
	require.ErrorAs(t, err, &aggr)
	out := make(map[string]schema.Code)
	for _, e := range aggr.Errors {
		var ve *schema.ValidationError
		require.True(t, errors.As(e, &ve))
		out[ve.Key] = ve.Code
	}
	return out
}

func TestRegistry_Contract(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	eyes, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{
		{Name: "round", SVG: roundEyes},
		{Name: "square", SVG: squareEyes},
	}, []string{"#000"})
	require.NoError(t, err)
	mouth, err := reg.CreateAttribute(ctx, "mouth", []registry.NewVariation{
		{Name: "smile", SVG: smile},
	}, []string{"#f00"})
	require.NoError(t, err)

	tests.RegistryContractTest(t, reg, map[string]string{
		eyes.Variations[0].ID:  roundEyes,
		eyes.Variations[1].ID:  squareEyes,
		mouth.Variations[0].ID: smile,
	})
}

func TestCreateAttribute_Validation(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateAttribute(ctx, "ab", []registry.NewVariation{
		{Name: "round", SVG: roundEyes},
		{Name: "round", SVG: roundEyes},
		{Name: "x", SVG: "<svg>"},
	}, []string{"#000", "red"})

	got := codes(t, err)
	assert.Equal(t, schema.CodeInvalidLen, got["key"])
	assert.Equal(t, schema.CodeUniqueField, got["variations[1].name"])
	assert.Equal(t, schema.CodeInvalidLen, got["variations[2].name"])
	assert.Equal(t, schema.CodeInvalidSVG, got["variations[2].svg"])
	assert.Equal(t, schema.CodeInvalidColor, got["colors[1]"])

	catalog, err := reg.Catalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, catalog, "nothing is stored on failure")
}

func TestCreateAttribute_RequiresVariationsAndColors(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.CreateAttribute(context.Background(), "", nil, nil)
	got := codes(t, err)
	assert.Equal(t, schema.CodeMissingField, got["key"])
	assert.Equal(t, schema.CodeInvalidLen, got["variations"])
	assert.Equal(t, schema.CodeInvalidLen, got["colors"])
}

func TestCreateAttribute_DuplicateKey(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{{Name: "round", SVG: roundEyes}}, []string{"#000"})
	require.NoError(t, err)

	_, err = reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{{Name: "round", SVG: roundEyes}}, []string{"#000"})
	assert.Equal(t, schema.CodeUniqueField, codes(t, err)["key"])
}

func TestCreateAttribute_NormalizesSVG(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	doc := "<?xml version=\"1.0\"?>\n<!-- exported -->\n<svg width=\"10\" height=\"10\">\n  <circle r=\"2\"></circle>\n</svg>"
	created, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{{Name: "round", SVG: doc}}, []string{"#000"})
	require.NoError(t, err)

	views, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, created.ID, views[0].ID)
	assert.Equal(t, `<svg width="10" height="10"><circle r="2"/></svg>`, views[0].Variations[0].SVG)
	assert.Equal(t, "eyes", views[0].Variations[0].Category)
}

func TestAddVariations(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	created, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{{Name: "round", SVG: roundEyes}}, []string{"#000"})
	require.NoError(t, err)

	updated, err := reg.AddVariations(ctx, created.ID, []registry.NewVariation{{Name: "square", SVG: squareEyes}})
	require.NoError(t, err)
	require.Len(t, updated.Variations, 2)
	assert.Equal(t, "square", updated.Variations[1].Name)

	_, err = reg.AddVariations(ctx, created.ID, []registry.NewVariation{{Name: "round", SVG: roundEyes}})
	assert.Equal(t, schema.CodeUniqueField, codes(t, err)["variations[0].name"])

	_, err = reg.AddVariations(ctx, "missing", []registry.NewVariation{{Name: "other", SVG: roundEyes}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddColors(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	created, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{{Name: "round", SVG: roundEyes}}, []string{"#000"})
	require.NoError(t, err)

	updated, err := reg.AddColors(ctx, created.ID, []string{"#000", "#abcdef"})
	require.NoError(t, err)
	assert.Equal(t, []string{"#000", "#abcdef"}, updated.Colors)

	_, err = reg.AddColors(ctx, created.ID, []string{"blue"})
	assert.Equal(t, schema.CodeInvalidColor, codes(t, err)["colors[0]"])

	_, err = reg.AddColors(ctx, "missing", []string{"#fff"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateVariation_InvalidatesCache(t *testing.T) {
	reg, cache := newRegistry(t)
	ctx := context.Background()

	created, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{
		{Name: "round", SVG: roundEyes},
		{Name: "square", SVG: squareEyes},
	}, []string{"#000"})
	require.NoError(t, err)
	id := created.Variations[0].ID

	old, err := graphic.Parse(roundEyes)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, id, old))

	updated, err := reg.UpdateVariation(ctx, created.ID, id, registry.NewVariation{Name: "oval", SVG: `<svg><ellipse rx="3"/></svg>`})
	require.NoError(t, err)
	assert.Equal(t, "oval", updated.Variations[0].Name)

	_, ok, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "stale tree must be dropped")

	frags, err := reg.ResolveFragments(ctx, []string{id})
	require.NoError(t, err)
	assert.Equal(t, `<svg><ellipse rx="3"/></svg>`, frags[0].Document)
}

func TestUpdateVariation_Errors(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	created, err := reg.CreateAttribute(ctx, "eyes", []registry.NewVariation{
		{Name: "round", SVG: roundEyes},
		{Name: "square", SVG: squareEyes},
	}, []string{"#000"})
	require.NoError(t, err)
	id := created.Variations[0].ID

	_, err = reg.UpdateVariation(ctx, created.ID, "ghost", registry.NewVariation{SVG: roundEyes})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = reg.UpdateVariation(ctx, created.ID, id, registry.NewVariation{Name: "square", SVG: roundEyes})
	assert.Equal(t, schema.CodeUniqueField, codes(t, err)["name"])

	_, err = reg.UpdateVariation(ctx, created.ID, id, registry.NewVariation{})
	assert.Equal(t, schema.CodeMissingField, codes(t, err)["svg"])

	_, err = reg.UpdateVariation(ctx, created.ID, id, registry.NewVariation{SVG: `<svg><script>x</script></svg>`})
	assert.Equal(t, schema.CodeInvalidSVG, codes(t, err)["svg"])
}

func TestResolveFragments_NotFoundListsAll(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.ResolveFragments(context.Background(), []string{"a", "b"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"a", "b"}, nf.IDs)
}

type brokenStore struct {
	*memory.Store
}

func (brokenStore) FindVariations(context.Context, []string) ([]domain.Variation, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) List(context.Context) ([]domain.Category, error) {
	return nil, errors.New("connection refused")
}

func TestRegistry_UnavailableStore(t *testing.T) {
	reg := registry.New(brokenStore{memory.NewStore()})
	ctx := context.Background()

	_, err := reg.ResolveFragments(ctx, []string{"a"})
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)

	_, err = reg.Catalog(ctx)
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)
}

func TestSeed_IsIdempotent(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	seed := []registry.SeedAttribute{
		{Key: "eyes", Variations: []registry.NewVariation{{Name: "round", SVG: roundEyes}}, Colors: []string{"#000"}},
		{Key: "mouth", Variations: []registry.NewVariation{{Name: "smile", SVG: smile}}, Colors: []string{"#f00"}},
	}

	n, err := reg.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = reg.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	catalog, err := reg.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog, 2)
}

func TestSeed_ReportsInvalidEntry(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Seed(context.Background(), []registry.SeedAttribute{{Key: "eyes"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `seed attribute "eyes"`)
}
