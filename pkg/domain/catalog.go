package domain

import "github.com/aretw0/facet/pkg/graphic"

// Key length bounds for attributes and variation names.
const (
	MinKeyLength = 3
	MaxKeyLength = 20
)

// Variation is one artwork of a category. It is never mutated once stored; edits
// replace it as a whole.
type Variation struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	CategoryKey string           `json:"category"`
	Fragment    *graphic.Element `json:"svg"`
}

// Category (an "attribute" in the API) groups mutually exclusive variations and the
// colors they may be painted with.
type Category struct {
	ID         string      `json:"id"`
	Key        string      `json:"key"`
	Variations []Variation `json:"variations"`
	Colors     []string    `json:"colors"`
}

// Clone returns a copy that shares no slices with c. Fragments are shared since they
// are immutable.
func (c Category) Clone() Category {
	out := c
	out.Variations = append([]Variation(nil), c.Variations...)
	out.Colors = append([]string(nil), c.Colors...)
	return out
}

// Variation returns the variation with the given id.
func (c Category) Variation(id string) (Variation, bool) {
	for _, v := range c.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// HasVariationName reports whether a variation with that name already exists.
func (c Category) HasVariationName(name string) bool {
	for _, v := range c.Variations {
		if v.Name == name {
			return true
		}
	}
	return false
}

// AddColors appends colors that are not yet present, keeping insertion order.
func (c *Category) AddColors(colors ...string) {
	seen := make(map[string]struct{}, len(c.Colors))
	for _, existing := range c.Colors {
		seen[existing] = struct{}{}
	}
	for _, color := range colors {
		if _, ok := seen[color]; ok {
			continue
		}
		seen[color] = struct{}{}
		c.Colors = append(c.Colors, color)
	}
}
