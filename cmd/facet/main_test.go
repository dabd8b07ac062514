package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/facet/internal/testutils"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig creates a memory-backed config seeded with a single attribute.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"seed.yaml": `attributes:
  - key: eyes
    colors: ["#000"]
    variations:
      - name: round
        svg: '<svg viewBox="0 0 4 4"><circle r="1"/></svg>'
`,
		"facet.yaml": "catalog:\n  driver: memory\n  seed: " + filepath.Join(dir, "seed.yaml") + "\nlog:\n  level: error\n",
	})
	return filepath.Join(dir, "facet.yaml")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "facet version "))
}

func TestRootCmd_BadConfig(t *testing.T) {
	_, _, err := run(t, "random", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	cfg := writeConfig(t)
	_, _, err = run(t, "random", "--config", cfg, "--log-level", "loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestCatalogListAndCompose(t *testing.T) {
	cfg := writeConfig(t)

	out, _, err := run(t, "catalog", "ls", "--json", "--config", cfg)
	require.NoError(t, err)

	var attrs []registry.AttributeView
	require.NoError(t, json.Unmarshal([]byte(out), &attrs))
	require.Len(t, attrs, 1)
	require.Len(t, attrs[0].Variations, 1)
	id := attrs[0].Variations[0].ID

	out, _, err = run(t, "compose", id+":#0f0", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `<g stroke="#0f0" fill="#0f0"><circle r="1"/></g>`)

	_, _, err = run(t, "compose", "nope", "--config", cfg)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	md, _, err := run(t, "catalog", "ls", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, md, "## eyes")
	assert.Contains(t, md, "`"+id+"`")
}

func TestRandomCmd(t *testing.T) {
	cfg := writeConfig(t)

	t.Run("JSON", func(t *testing.T) {
		out, _, err := run(t, "random", "--json", "--config", cfg)
		require.NoError(t, err)

		var result domain.CompositeResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		require.Len(t, result.Layers, 1)
		assert.Equal(t, "#000", result.Layers[0].Color)
		assert.Contains(t, result.SVG, `fill="#000"`)
	})

	t.Run("Output File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "avatar.svg")
		out, _, err := run(t, "random", "-o", path, "--config", cfg)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), `<svg viewBox="0 0 4 4">`))
	})
}

func TestParseLayers(t *testing.T) {
	req, err := parseLayers([]string{"head-oval:#F5D0A9", " eyes-round "})
	require.NoError(t, err)
	assert.Equal(t, domain.LayerRequest{
		{VariationID: "head-oval", Color: "#F5D0A9"},
		{VariationID: "eyes-round"},
	}, req)

	_, err = parseLayers([]string{":#fff"})
	assert.ErrorContains(t, err, "missing variation id")

	_, err = parseLayers([]string{"eyes-round:blue"})
	assert.ErrorIs(t, err, domain.ErrInvalidColor)
}

func TestCatalogValidateCmd(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		dir, _ := testutils.SetupTestRepo(t)
		testutils.WriteFiles(t, dir, map[string]string{
			"mouth.json": `{"key":"mouth","colors":["#f00"],"variations":[{"name":"flat","svg":"<svg><rect/></svg>"}]}`,
		})

		out, _, err := run(t, "catalog", "validate", dir, "--config", writeConfig(t))
		require.NoError(t, err)
		assert.Contains(t, out, "Catalog is valid!")
		assert.Contains(t, out, "(1 attributes)")
	})

	t.Run("Problems", func(t *testing.T) {
		dir, _ := testutils.SetupTestRepo(t)
		testutils.WriteFiles(t, dir, map[string]string{
			"mouth.json": `{"key":"mouth","colors":["red"],"variations":[]}`,
		})

		_, stderr, err := run(t, "catalog", "validate", dir, "--config", writeConfig(t))
		assert.ErrorContains(t, err, "catalog has problems")
		assert.Contains(t, stderr, `"mouth.variations"`)
		assert.Contains(t, stderr, `"mouth.colors[0]"`)
	})

	t.Run("Unsafe Fragment", func(t *testing.T) {
		dir, _ := testutils.SetupTestRepo(t)
		testutils.WriteFiles(t, dir, map[string]string{
			"mouth.json": `{"key":"mouth","colors":["#f00"],"variations":[{"name":"flat","svg":"<svg><script/></svg>"}]}`,
		})

		_, _, err := run(t, "catalog", "validate", dir, "--config", writeConfig(t))
		assert.ErrorContains(t, err, "validation failed")
	})
}
