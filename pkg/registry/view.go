package registry

import (
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
)

// AttributeView is the public shape of an attribute.
type AttributeView struct {
	ID         string          `json:"id"`
	Key        string          `json:"key"`
	Variations []VariationView `json:"variations"`
	Colors     []string        `json:"colors"`
}

// VariationView is a variation with its fragment serialized.
type VariationView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	SVG      string `json:"svg"`
}

// View converts a stored category to its public shape.
func View(c domain.Category) AttributeView {
	out := AttributeView{
		ID:         c.ID,
		Key:        c.Key,
		Variations: make([]VariationView, len(c.Variations)),
		Colors:     append([]string{}, c.Colors...),
	}
	for i, v := range c.Variations {
		out.Variations[i] = VariationView{
			ID:       v.ID,
			Name:     v.Name,
			Category: c.Key,
		}
		if v.Fragment != nil {
			out.Variations[i].SVG = graphic.Serialize(v.Fragment)
		}
	}
	return out
}
