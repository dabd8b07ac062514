package graphic

import (
	"encoding/json"
	"fmt"
)

const (
	kindElement = "element"
	kindText    = "text"
)

// wireNode is the persisted shape of a node. Attributes are a list to keep their order.
type wireNode struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Attributes []Attr            `json:"attributes,omitempty"`
	Children   []json.RawMessage `json:"children,omitempty"`
	Value      string            `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Element) MarshalJSON() ([]byte, error) {
	w := wireNode{Type: kindElement, Name: e.Name, Attributes: e.Attrs}
	for _, c := range e.Children {
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		w.Children = append(w.Children, raw)
	}
	return json.Marshal(w)
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireNode{Type: kindText, Value: t.Value})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Element) UnmarshalJSON(data []byte) error {
	n, err := decodeNode(data)
	if err != nil {
		return err
	}
	el, ok := n.(*Element)
	if !ok {
		return fmt.Errorf("graphic: expected element, got text node")
	}
	*e = *el
	return nil
}

func decodeNode(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("graphic: failed to decode node: %w", err)
	}
	switch w.Type {
	case kindText:
		return Text{Value: w.Value}, nil
	case kindElement:
		if w.Name == "" {
			return nil, fmt.Errorf("graphic: element without name")
		}
		el := &Element{Name: w.Name, Attrs: w.Attributes}
		for _, raw := range w.Children {
			c, err := decodeNode(raw)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, c)
		}
		return el, nil
	default:
		return nil, fmt.Errorf("graphic: unknown node type %q", w.Type)
	}
}
