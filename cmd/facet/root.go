package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/facet/internal/config"
	"github.com/aretw0/facet/internal/logging"
	"github.com/spf13/cobra"
)

// options carries the resolved configuration to every subcommand.
type options struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "facet",
		Short: "Facet composes SVG avatars from a catalog of layered fragments",
		Long: `Facet stacks SVG fragments (eyes, mouths, hair...) into a single avatar.
Avatars can be composed explicitly or drawn at random, over HTTP, MCP or straight from the terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format, _ = cmd.Flags().GetString("log-format")
			}
			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}

			opts.cfg = cfg
			opts.logger = logging.New(level, cfg.Log.Format)
			return nil
		},
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (YAML or JSON). Defaults to $"+config.EnvConfig+" or "+config.DefaultPath)
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newComposeCmd(opts),
		newRandomCmd(opts),
		newCatalogCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute builds the command tree and runs it.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
