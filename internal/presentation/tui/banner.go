package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the facet ASCII art banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Warm gradient, one color per line
	lines := []struct {
		text  string
		color string
	}{
		{"   __                _   ", "#fbbf24"},
		{"  / _| __ _  ___ ___| |_ ", "#fb923c"},
		{" | |_ / _` |/ __/ _ \\ __|", "#f87171"},
		{" |  _| (_| | (_|  __/ |_ ", "#f472b6"},
		{" |_|  \\__,_|\\___\\___|\\__|", "#c084fc"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
