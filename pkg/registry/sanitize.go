package registry

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/facet/pkg/graphic"
)

var (
	// DefaultMaxSVGSize is 64KB
	DefaultMaxSVGSize = 64 * 1024
	// EnvMaxSVGSize is the environment variable to override the default
	EnvMaxSVGSize = "FACET_MAX_SVG_SIZE"
)

var (
	ErrSVGTooLarge = errors.New("svg exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("svg contains invalid UTF-8 sequences")
	ErrNotSVG      = errors.New("document root is not an svg element")
	ErrUnsafeSVG   = errors.New("svg contains active or external content")
)

// SanitizeSVG checks an uploaded fragment and returns its parsed tree.
// Scripts, event handlers and external references are rejected, not stripped, so that
// what is stored is exactly what was reviewed.
func SanitizeSVG(input string) (*graphic.Element, error) {
	limit := getMaxSVGSize()
	if len(input) > limit {
		return nil, fmt.Errorf("%w: size=%d limit=%d", ErrSVGTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return nil, ErrInvalidUTF8
	}

	root, err := graphic.Parse(stripControl(input))
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(localName(root.Name), "svg") {
		return nil, fmt.Errorf("%w: got <%s>", ErrNotSVG, root.Name)
	}
	if err := checkSafe(root); err != nil {
		return nil, err
	}
	return root, nil
}

func checkSafe(el *graphic.Element) error {
	switch strings.ToLower(localName(el.Name)) {
	case "script", "foreignobject":
		return fmt.Errorf("%w: <%s> element", ErrUnsafeSVG, el.Name)
	}

	for _, a := range el.Attrs {
		name := strings.ToLower(localName(a.Name))
		if strings.HasPrefix(name, "on") {
			return fmt.Errorf("%w: %s attribute on <%s>", ErrUnsafeSVG, a.Name, el.Name)
		}
		if name == "href" && !strings.HasPrefix(strings.TrimSpace(a.Value), "#") {
			return fmt.Errorf("%w: external reference %q", ErrUnsafeSVG, a.Value)
		}
		if err := checkCSS(a.Value, name == "style"); err != nil {
			return fmt.Errorf("%w: %s attribute on <%s>", err, a.Name, el.Name)
		}
	}

	isStyle := strings.EqualFold(localName(el.Name), "style")
	for _, child := range el.Children {
		switch c := child.(type) {
		case *graphic.Element:
			if err := checkSafe(c); err != nil {
				return err
			}
		case graphic.Text:
			if isStyle {
				if err := checkCSS(c.Value, true); err != nil {
					return fmt.Errorf("%w: <%s> content", err, el.Name)
				}
			}
		}
	}
	return nil
}

// checkCSS rejects @import and url() references that do not point inside the
// document. Stylesheets may not use escapes, which could spell either of them.
func checkCSS(value string, stylesheet bool) error {
	v := strings.ToLower(stripCSSComments(value))
	if stylesheet {
		if strings.Contains(v, "@import") {
			return fmt.Errorf("%w: @import", ErrUnsafeSVG)
		}
		if strings.ContainsRune(v, '\\') {
			return fmt.Errorf("%w: css escape", ErrUnsafeSVG)
		}
	}

	for {
		i := strings.Index(v, "url(")
		if i < 0 {
			return nil
		}
		v = v[i+len("url("):]
		target := strings.TrimLeft(v, " \t\r\n\f\"'")
		if !strings.HasPrefix(target, "#") {
			end := strings.IndexByte(v, ')')
			if end < 0 {
				end = len(v)
			}
			return fmt.Errorf("%w: external reference url(%s)", ErrUnsafeSVG, strings.TrimSpace(v[:end]))
		}
	}
}

func stripCSSComments(s string) string {
	for {
		start := strings.Index(s, "/*")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start+2:], "*/")
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+2+end+2:]
	}
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// stripControl removes control characters except newline, tab and carriage return.
func stripControl(input string) string {
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func getMaxSVGSize() int {
	if val := os.Getenv(EnvMaxSVGSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxSVGSize
}
