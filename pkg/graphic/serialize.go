package graphic

import (
	"encoding/xml"
	"io"
	"strings"
)

// Serialize renders a node as markup. Elements without children are self-closed.
// Attribute values and text are escaped so that parsing the output yields the same tree.
func Serialize(n Node) string {
	var sb strings.Builder
	_ = Write(&sb, n)
	return sb.String()
}

// Write renders a node as markup into w.
func Write(w io.Writer, n Node) error {
	sw := &stickyWriter{w: w}
	writeNode(sw, n)
	return sw.err
}

func writeNode(w *stickyWriter, n Node) {
	switch v := n.(type) {
	case *Element:
		if v == nil {
			return
		}
		w.str("<")
		w.str(v.Name)
		for _, a := range v.Attrs {
			w.str(" ")
			w.str(a.Name)
			w.str(`="`)
			w.escape(a.Value)
			w.str(`"`)
		}
		if len(v.Children) == 0 {
			w.str("/>")
			return
		}
		w.str(">")
		for _, c := range v.Children {
			writeNode(w, c)
		}
		w.str("</")
		w.str(v.Name)
		w.str(">")
	case Text:
		w.escape(v.Value)
	}
}

// stickyWriter keeps the first write error and turns later writes into no-ops.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) str(v string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, v)
}

func (s *stickyWriter) escape(v string) {
	if s.err != nil {
		return
	}
	// EscapeText also encodes \t, \n and \r, which attribute value normalization would
	// otherwise turn into spaces on the next parse.
	s.err = xml.EscapeText(s.w, []byte(v))
}
