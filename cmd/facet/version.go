package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/facet"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of facet",
		// Skip config loading so version always works.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "facet version %s\n", strings.TrimSpace(facet.Version))
		},
	}
}
