package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/facet/pkg/registry"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}

// CatalogMarkdown renders the catalog as a markdown document, one table per attribute.
func CatalogMarkdown(attrs []registry.AttributeView) string {
	var b strings.Builder
	b.WriteString("# Catalog\n\n")
	if len(attrs) == 0 {
		b.WriteString("_No attributes._\n")
		return b.String()
	}

	for _, a := range attrs {
		fmt.Fprintf(&b, "## %s\n\n", a.Key)
		fmt.Fprintf(&b, "- id: `%s`\n", a.ID)
		fmt.Fprintf(&b, "- colors: %s\n\n", joinCode(a.Colors))

		if len(a.Variations) == 0 {
			b.WriteString("_No variations._\n\n")
			continue
		}
		b.WriteString("| Variation | ID | Size |\n")
		b.WriteString("|---|---|---|\n")
		for _, v := range a.Variations {
			fmt.Fprintf(&b, "| %s | `%s` | %d B |\n", v.Name, v.ID, len(v.SVG))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func joinCode(items []string) string {
	if len(items) == 0 {
		return "_none_"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}
