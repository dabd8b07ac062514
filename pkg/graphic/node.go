package graphic

// Node is a node of a graphic tree. It is implemented only by *Element and Text,
// so a type switch over those two cases is exhaustive.
type Node interface {
	isNode()
}

// Attr is a single attribute of an element. Name keeps its namespace prefix verbatim
// (e.g. "xlink:href").
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a markup element with ordered attributes and ordered children.
// Attribute names are unique within an element.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// Text is character data inside an element.
type Text struct {
	Value string
}

func (*Element) isNode() {}
func (Text) isNode()     {}

// NewElement creates an element with the given attributes and children.
func NewElement(name string, attrs []Attr, children ...Node) *Element {
	return &Element{Name: name, Attrs: attrs, Children: children}
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the element declares the named attribute.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{Name: e.Name}
	if e.Attrs != nil {
		out.Attrs = make([]Attr, len(e.Attrs))
		copy(out.Attrs, e.Attrs)
	}
	out.Children = CloneNodes(e.Children)
	return out
}

// CloneNodes deep copies a list of nodes.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		switch v := n.(type) {
		case *Element:
			out = append(out, v.Clone())
		case Text:
			out = append(out, v)
		}
	}
	return out
}

// Equal reports whether two nodes are structurally identical: same kind, same names,
// same attributes in the same order, and equal children in the same order.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Element:
		y, ok := b.(*Element)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == y
		}
		if x.Name != y.Name || len(x.Attrs) != len(y.Attrs) || len(x.Children) != len(y.Children) {
			return false
		}
		for i := range x.Attrs {
			if x.Attrs[i] != y.Attrs[i] {
				return false
			}
		}
		for i := range x.Children {
			if !Equal(x.Children[i], y.Children[i]) {
				return false
			}
		}
		return true
	case Text:
		y, ok := b.(Text)
		return ok && x.Value == y.Value
	default:
		return a == nil && b == nil
	}
}
