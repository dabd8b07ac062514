// Package compose merges fragment trees into a single layered avatar.
package compose

import (
	"fmt"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/graphic"
)

// GroupTag is the element each layer is wrapped in.
const GroupTag = "g"

const (
	attrStroke  = "stroke"
	attrFill    = "fill"
	attrWidth   = "width"
	attrHeight  = "height"
	attrViewBox = "viewBox"
)

// Compose stacks fragments in order (index 0 at the bottom) under one root.
//
// colors runs parallel to fragments; an empty string keeps the fragment's own color.
// A channel the fragment declares as "none" stays "none" whatever the override.
// The inputs are never modified and the result shares no nodes with them.
func Compose(fragments []*graphic.Element, colors []string) (*graphic.Element, error) {
	if err := validate(fragments, colors); err != nil {
		return nil, err
	}

	root := &graphic.Element{
		Name:     fragments[0].Name,
		Attrs:    rootAttrs(fragments[0]),
		Children: make([]graphic.Node, 0, len(fragments)),
	}
	for i, f := range fragments {
		root.Children = append(root.Children, layerGroup(f, colors[i]))
	}
	return root, nil
}

// ComposeToString composes and serializes in one step.
func ComposeToString(fragments []*graphic.Element, colors []string) (string, error) {
	root, err := Compose(fragments, colors)
	if err != nil {
		return "", err
	}
	return graphic.Serialize(root), nil
}

func validate(fragments []*graphic.Element, colors []string) error {
	if len(fragments) == 0 {
		return domain.ErrEmptyInput
	}
	if len(colors) != len(fragments) {
		return fmt.Errorf("%w: %d layers, %d colors", domain.ErrLengthMismatch, len(fragments), len(colors))
	}
	for i, f := range fragments {
		if f == nil {
			return fmt.Errorf("%w: layer %d has no fragment", domain.ErrEmptyInput, i)
		}
	}
	for i, c := range colors {
		if c == "" {
			continue
		}
		if err := domain.ValidateColor(c); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// rootAttrs builds the composite root's attributes from the first fragment: paint
// attributes are left out, and width+height collapse into a viewBox placed where the
// first sizing attribute was.
func rootAttrs(first *graphic.Element) []graphic.Attr {
	width, hasWidth := first.Attr(attrWidth)
	height, hasHeight := first.Attr(attrHeight)
	normalize := hasWidth && hasHeight

	attrs := make([]graphic.Attr, 0, len(first.Attrs))
	placed := false
	for _, a := range first.Attrs {
		switch a.Name {
		case attrStroke, attrFill:
			continue
		case attrWidth, attrHeight, attrViewBox:
			if !normalize {
				attrs = append(attrs, a)
				continue
			}
			if !placed {
				attrs = append(attrs, graphic.Attr{
					Name:  attrViewBox,
					Value: fmt.Sprintf("0 0 %s %s", width, height),
				})
				placed = true
			}
		default:
			attrs = append(attrs, a)
		}
	}
	return attrs
}

func layerGroup(f *graphic.Element, color string) *graphic.Element {
	g := &graphic.Element{Name: GroupTag}
	if v, ok := channel(f, attrStroke, color); ok {
		g.Attrs = append(g.Attrs, graphic.Attr{Name: attrStroke, Value: v})
	}
	if v, ok := channel(f, attrFill, color); ok {
		g.Attrs = append(g.Attrs, graphic.Attr{Name: attrFill, Value: v})
	}
	g.Children = graphic.CloneNodes(f.Children)
	if g.Children == nil {
		g.Children = []graphic.Node{}
	}
	return g
}

// channel resolves one paint channel: "none" on the fragment wins, then the override,
// then the fragment's declared value. ok is false when there is nothing to emit.
func channel(f *graphic.Element, name, override string) (string, bool) {
	declared, hasDeclared := f.Attr(name)
	switch {
	case hasDeclared && declared == domain.NoneValue:
		return domain.NoneValue, true
	case override != "":
		return override, true
	case hasDeclared:
		return declared, true
	default:
		return "", false
	}
}
