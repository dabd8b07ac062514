package facet

import (
	_ "embed"
)

// Version is the current release, read from the VERSION file at build time.
//
//go:embed VERSION
var Version string
