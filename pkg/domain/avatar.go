package domain

import "github.com/aretw0/facet/pkg/graphic"

// Layer places one variation in a composite. An empty Color means "keep the
// fragment's own colors".
type Layer struct {
	VariationID string `json:"variation" yaml:"variation" mapstructure:"variation"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty" mapstructure:"color"`
}

// LayerRequest is an ordered list of layers. Index 0 is drawn first (bottom-most).
type LayerRequest []Layer

// VariationIDs returns the variation ids in request order.
func (r LayerRequest) VariationIDs() []string {
	ids := make([]string, len(r))
	for i, l := range r {
		ids[i] = l.VariationID
	}
	return ids
}

// Colors returns the color overrides in request order.
func (r LayerRequest) Colors() []string {
	colors := make([]string, len(r))
	for i, l := range r {
		colors[i] = l.Color
	}
	return colors
}

// CompositeResult is a merged avatar.
type CompositeResult struct {
	Root   *graphic.Element `json:"-"`
	SVG    string           `json:"svg"`
	Layers LayerRequest     `json:"layers"`
}

// Fragment is a raw fragment document as returned by the registry.
type Fragment struct {
	ID       string `json:"id"`
	Document string `json:"svg"`
}
