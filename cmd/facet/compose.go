package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/facet/internal/cli"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/spf13/cobra"
)

func newComposeCmd(opts *options) *cobra.Command {
	composeCmd := &cobra.Command{
		Use:   "compose <variation[:color]>...",
		Short: "Compose an avatar from variation ids",
		Long: `Composes an avatar from the given layers, bottom-most first.
Each layer is a variation id optionally followed by a hex color override:

  facet compose head-oval:#f5d0a9 eyes-round mouth-smile:#c0392b`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseLayers(args)
			if err != nil {
				return err
			}

			app, err := cli.BuildApp(cmd.Context(), opts.cfg, opts.logger, cli.DebugHooks(opts.logger, domain.LifecycleHooks{}))
			if err != nil {
				return fmt.Errorf("error initializing facet: %w", err)
			}
			defer app.Close()

			result, err := app.Engine.ComposeAvatar(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeResult(cmd, result)
		},
	}
	addOutputFlags(composeCmd)
	return composeCmd
}

func newRandomCmd(opts *options) *cobra.Command {
	randomCmd := &cobra.Command{
		Use:   "random",
		Short: "Compose a random avatar",
		Long:  `Draws one variation and one color from every attribute and composes them.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.BuildApp(cmd.Context(), opts.cfg, opts.logger, cli.DebugHooks(opts.logger, domain.LifecycleHooks{}))
			if err != nil {
				return fmt.Errorf("error initializing facet: %w", err)
			}
			defer app.Close()

			result, err := app.Engine.ComposeRandom(cmd.Context())
			if err != nil {
				return err
			}
			return writeResult(cmd, result)
		},
	}
	addOutputFlags(randomCmd)
	return randomCmd
}

// parseLayers turns "variation[:color]" arguments into a layer request.
func parseLayers(args []string) (domain.LayerRequest, error) {
	req := make(domain.LayerRequest, 0, len(args))
	for _, arg := range args {
		id, color, _ := strings.Cut(strings.TrimSpace(arg), ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid layer %q: missing variation id", arg)
		}
		color = strings.TrimSpace(color)
		if color != "" {
			if err := domain.ValidateColor(color); err != nil {
				return nil, fmt.Errorf("invalid layer %q: %w", arg, err)
			}
		}
		req = append(req, domain.Layer{VariationID: id, Color: color})
	}
	return req, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print the SVG and its layers as JSON")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}

func writeResult(cmd *cobra.Command, result *domain.CompositeResult) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	output, _ := cmd.Flags().GetString("output")

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprintln(w, result.SVG)
	return err
}
