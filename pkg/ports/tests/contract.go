package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/aretw0/facet/pkg/ports"
)

// RegistryContractTest is a reusable test suite that verifies if an adapter complies with ports.Registry.
// fragments maps every variation id the registry holds to its expected document.
func RegistryContractTest(t *testing.T, reg ports.Registry, fragments map[string]string) {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, 0, len(fragments))
	for id := range fragments {
		ids = append(ids, id)
	}

	// 1. Resolve (Success)
	t.Run("ResolveFragments_Success", func(t *testing.T) {
		got, err := reg.ResolveFragments(ctx, ids)
		if err != nil {
			t.Fatalf("unexpected error resolving fragments: %v", err)
		}
		if len(got) != len(ids) {
			t.Fatalf("expected %d fragments, got %d", len(ids), len(got))
		}
		for i, f := range got {
			if f.ID != ids[i] {
				t.Errorf("fragment %d: expected id %s, got %s", i, ids[i], f.ID)
			}
			want, err := graphic.Parse(fragments[f.ID])
			if err != nil {
				t.Fatalf("bad fixture for %s: %v", f.ID, err)
			}
			have, err := graphic.Parse(f.Document)
			if err != nil {
				t.Fatalf("registry returned unparsable document for %s: %v", f.ID, err)
			}
			if !graphic.Equal(want, have) {
				t.Errorf("document mismatch for %s. got %q, want %q", f.ID, f.Document, fragments[f.ID])
			}
		}
	})

	// 2. Resolve (Duplicates keep order)
	t.Run("ResolveFragments_Duplicates", func(t *testing.T) {
		if len(ids) == 0 {
			t.Skip("no fragments")
		}
		req := []string{ids[0], ids[0]}
		got, err := reg.ResolveFragments(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 || got[0].ID != ids[0] || got[1].ID != ids[0] {
			t.Errorf("duplicates not preserved: %+v", got)
		}
	})

	// 3. Resolve (NotFound)
	t.Run("ResolveFragments_NotFound", func(t *testing.T) {
		_, err := reg.ResolveFragments(ctx, append([]string{"non-existent-variation"}, ids...))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) || len(nf.IDs) != 1 || nf.IDs[0] != "non-existent-variation" {
			t.Errorf("expected NotFoundError naming the missing id, got %v", err)
		}
	})

	// 4. Catalog
	t.Run("Catalog", func(t *testing.T) {
		catalog, err := reg.Catalog(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing catalog: %v", err)
		}
		seen := make(map[string]bool)
		for _, c := range catalog {
			if c.Key == "" {
				t.Errorf("category without key: %+v", c)
			}
			for _, v := range c.Variations {
				seen[v.ID] = true
			}
		}
		for id := range fragments {
			if !seen[id] {
				t.Errorf("expected variation %s in catalog", id)
			}
		}
	})
}
