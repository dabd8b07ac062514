package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/facet/internal/cli"
	"github.com/aretw0/facet/internal/presentation/tui"
	"github.com/aretw0/facet/pkg/adapters/loam"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/aretw0/facet/pkg/schema"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newCatalogCmd(opts *options) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the attribute catalog",
	}
	catalogCmd.AddCommand(newCatalogListCmd(opts), newCatalogValidateCmd(opts))
	return catalogCmd
}

func newCatalogListCmd(opts *options) *cobra.Command {
	listCmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List attributes, variations and colors",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.BuildApp(cmd.Context(), opts.cfg, opts.logger, domain.LifecycleHooks{})
			if err != nil {
				return fmt.Errorf("error initializing facet: %w", err)
			}
			defer app.Close()

			attrs, err := app.Registry.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if attrs == nil {
					attrs = []registry.AttributeView{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(attrs)
			}

			md := tui.CatalogMarkdown(attrs)
			if out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
				rendered, err := tui.NewRenderer()(md)
				if err != nil {
					opts.logger.Debug("markdown rendering failed", "err", err)
				} else {
					md = rendered
				}
			}
			_, err = fmt.Fprint(out, md)
			return err
		},
	}
	listCmd.Flags().Bool("json", false, "Print the catalog as JSON")
	return listCmd
}

func newCatalogValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check a Loam catalog directory for consistency",
		Long: `Loads every attribute document, sanitizes each SVG fragment and reports key or
variation collisions, attributes that cannot be drawn and malformed colors.
Defaults to catalog.dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.cfg.Catalog.Dir
			if len(args) > 0 {
				dir = args[0]
			}

			count, err := validateCatalog(cmd, dir)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog is valid! ✅ (%d attributes)\n", count)
			return nil
		},
	}
}

// validateCatalog returns the number of attributes in dir or every problem found.
func validateCatalog(cmd *cobra.Command, dir string) (int, error) {
	catalog, err := loam.Open(dir)
	if err != nil {
		return 0, err
	}
	categories, err := catalog.List(cmd.Context())
	if err != nil {
		return 0, err
	}

	var c schema.Collector
	for _, cat := range categories {
		if len(cat.Variations) == 0 {
			c.Add(cat.Key+".variations", schema.CodeInvalidLen, "attribute has no variations", nil)
		}
		if len(cat.Colors) == 0 {
			c.Add(cat.Key+".colors", schema.CodeInvalidLen, "attribute has no colors", nil)
		}
		for i, color := range cat.Colors {
			if !domain.IsHexColor(color) {
				c.Add(fmt.Sprintf("%s.colors[%d]", cat.Key, i), schema.CodeInvalidColor, "color must be a hex string", color)
			}
		}
	}
	if err := c.Err(); err != nil {
		for _, e := range schema.ValidationErrors(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
		}
		return 0, errors.New("catalog has problems")
	}
	return len(categories), nil
}
