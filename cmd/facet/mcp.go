package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/facet/internal/cli"
	"github.com/aretw0/facet/pkg/adapters/mcp"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/spf13/cobra"
)

// Transports
const (
	transportStdio = "stdio"
	transportSSE   = "sse"
)

func newMCPCmd(opts *options) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Starts the facet engine as an MCP Server.
This allows AI agents to compose avatars and browse the catalog as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			logger := opts.logger

			port := cfg.MCP.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}
			transport, _ := cmd.Flags().GetString("transport")
			if transport == "" {
				transport = transportStdio
				if port > 0 {
					transport = transportSSE
				}
			}
			if transport != transportStdio && transport != transportSSE {
				return fmt.Errorf("unknown transport: %s. Supported: %s, %s", transport, transportStdio, transportSSE)
			}
			if transport == transportSSE && port <= 0 {
				return fmt.Errorf("the sse transport needs a port (--port or mcp.port)")
			}

			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()

			app, err := cli.BuildApp(sc, cfg, logger, cli.DebugHooks(logger, domain.LifecycleHooks{}))
			if err != nil {
				return fmt.Errorf("error initializing facet: %w", err)
			}
			defer app.Close()

			srv := mcp.NewServer(app.Engine, app.Registry, mcp.WithLogger(logger))

			switch transport {
			case transportStdio:
				// Ensure logs don't corrupt JSON-RPC on Stdout
				log.SetOutput(os.Stderr)
				logger.Info("starting facet MCP server (stdio)")
				if err := srv.ServeStdio(); err != nil {
					return fmt.Errorf("MCP server execution failed: %w", err)
				}
			case transportSSE:
				logger.Info("starting facet MCP server (SSE)", "port", port)
				if err := srv.ServeSSE(sc, port); err != nil {
					return fmt.Errorf("MCP server execution failed: %w", err)
				}
				logger.Info("MCP server stopped gracefully")
			}
			return nil
		},
	}

	mcpCmd.Flags().String("transport", "", "Transport protocol to use: 'stdio' or 'sse' (default stdio, or sse when mcp.port is set)")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE, overrides mcp.port)")
	return mcpCmd
}
