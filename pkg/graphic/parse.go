package graphic

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrParse is returned when a document is not well-formed markup or does not have
// exactly one root element.
var ErrParse = errors.New("malformed graphic document")

// xmlSpace is the XML whitespace set (production S).
const xmlSpace = " \t\r\n"

// Parse reads a document and returns its root element.
func Parse(document string) (*Element, error) {
	return ParseReader(strings.NewReader(document))
}

// ParseReader reads a document from r and returns its root element.
//
// Comments, processing instructions (including the XML declaration) and directives are
// dropped. Whitespace-only character data is dropped; any other text is kept verbatim.
// Namespace prefixes are kept as written.
func ParseReader(r io.Reader) (*Element, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		root  *Element
		stack []*Element
	)

	for {
		// RawToken keeps prefixes untouched; end tag matching is done on our stack.
		t, err := decoder.RawToken()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		switch tok := t.(type) {
		case xml.StartElement:
			el, err := newElement(tok)
			if err != nil {
				return nil, err
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements (%q after %q)", ErrParse, el.Name, root.Name)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			name := qualifiedName(tok.Name)
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected end tag </%s>", ErrParse, name)
			}
			open := stack[len(stack)-1]
			if open.Name != name {
				return nil, fmt.Errorf("%w: end tag </%s> does not match <%s>", ErrParse, name, open.Name)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			text := string(tok)
			// Only XML whitespace is insignificant; U+00A0 and friends are content.
			if strings.Trim(text, xmlSpace) == "" {
				continue
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: text outside of the root element", ErrParse)
			}
			parent := stack[len(stack)-1]
			// Adjacent chunks (e.g. text followed by CDATA) form one text node.
			if n := len(parent.Children); n > 0 {
				if prev, ok := parent.Children[n-1].(Text); ok {
					parent.Children[n-1] = Text{Value: prev.Value + text}
					continue
				}
			}
			parent.Children = append(parent.Children, Text{Value: text})

		case xml.Comment, xml.ProcInst, xml.Directive:
			// not part of the graphic tree
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: unclosed element <%s>", ErrParse, stack[len(stack)-1].Name)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrParse)
	}
	return root, nil
}

func newElement(se xml.StartElement) (*Element, error) {
	el := &Element{Name: qualifiedName(se.Name)}
	if len(se.Attr) > 0 {
		el.Attrs = make([]Attr, 0, len(se.Attr))
	}
	seen := make(map[string]struct{}, len(se.Attr))
	for _, a := range se.Attr {
		name := qualifiedName(a.Name)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate attribute %q on <%s>", ErrParse, name, el.Name)
		}
		seen[name] = struct{}{}
		el.Attrs = append(el.Attrs, Attr{Name: name, Value: a.Value})
	}
	return el, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
