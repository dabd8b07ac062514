package facet_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/facet"
	"github.com/aretw0/facet/pkg/adapters/memory"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
	"github.com/aretw0/facet/pkg/registry"
)

// ExampleNew_library demonstrates how to use facet purely as a Go library,
// injecting an in-memory catalog without reading from the filesystem.
func ExampleNew_library() {
	ctx := context.Background()

	eyes, err := graphic.Parse(`<svg width="10" height="10"><circle r="2"/></svg>`)
	if err != nil {
		log.Fatal(err)
	}

	// 1. Define your catalog using pure Go structs
	store, err := memory.NewStoreFrom(ctx, domain.Category{
		ID:         "eyes",
		Key:        "eyes",
		Variations: []domain.Variation{{ID: "eyes-round", Name: "round", Fragment: eyes}},
		Colors:     []string{"#f00"},
	})
	if err != nil {
		log.Fatal(err)
	}

	// 2. Initialize the Engine with the custom registry
	// No catalog path needed ("") because we are providing a registry.
	eng, err := facet.New("", facet.WithRegistry(registry.New(store)))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Compose
	avatar, err := eng.ComposeAvatar(ctx, domain.LayerRequest{
		{VariationID: "eyes-round", Color: "#f00"},
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(avatar.SVG)
	// Output: <svg viewBox="0 0 10 10"><g stroke="#f00" fill="#f00"><circle r="2"/></g></svg>
}
