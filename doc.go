/*
Package facet composes avatars from independently authored SVG fragments.

A catalog is a list of categories ("attributes") such as background, eyes or mouth. Each
category holds mutually exclusive variations and the colors they may be painted with. An
avatar is an ordered list of layers, one variation per layer, drawn bottom-most first.

# Concept

The engine resolves variation ids through a Registry, parses the fragments (keeping the parsed
trees in a FragmentCache), and merges them into a single document. Each fragment becomes a group
element whose stroke and fill come from the requested color, unless the fragment opts out with
"none". The random flow draws one variation and one color per category, uniformly.

The Registry and the cache are ports (see pkg/ports). Adapters exist for memory, Redis and a
read-only Loam directory of category documents. This Hexagonal layout allows the engine to be
served over HTTP, MCP, or used directly as a library.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/facet"
		"github.com/aretw0/facet/pkg/domain"
	)

	func main() {
		// Reads category documents from ./catalog
		eng, err := facet.New("./catalog")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		avatar, err := eng.ComposeAvatar(ctx, domain.LayerRequest{
			{VariationID: "background-plain"},
			{VariationID: "eyes-round", Color: "#336699"},
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(avatar.SVG)

		// Surprise me
		random, err := eng.ComposeRandom(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(random.Layers)
	}
*/
package facet
