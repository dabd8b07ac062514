package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/facet"
	"github.com/aretw0/facet/internal/cli"
	"github.com/aretw0/facet/internal/metrics"
	"github.com/aretw0/facet/internal/presentation/tui"
	httpAdapter "github.com/aretw0/facet/pkg/adapters/http"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Starts the facet engine as an HTTP server exposing avatar composition, the attribute
catalog, Prometheus metrics and (for Loam catalogs) a stream of invalidation events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			logger := opts.logger
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				tui.PrintBanner(cmd.ErrOrStderr(), facet.Version)
			}

			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()

			collectors := metrics.New()
			app, err := cli.BuildApp(sc, cfg, logger, collectors.Hooks(cli.DebugHooks(logger, domain.LifecycleHooks{})))
			if err != nil {
				return fmt.Errorf("error initializing facet: %w", err)
			}
			defer app.Close()

			handlerOpts := []httpAdapter.Option{
				httpAdapter.WithMetrics(collectors.Handler()),
				httpAdapter.WithCORS(cfg.Server.CORS),
				httpAdapter.WithLogger(logger),
			}
			if cfg.Server.Admin {
				handlerOpts = append(handlerOpts, httpAdapter.WithAdmin(app.Registry))
			}
			if app.Watchable {
				events, err := app.Engine.Watch(sc)
				if err != nil {
					return fmt.Errorf("failed to watch catalog: %w", err)
				}
				handlerOpts = append(handlerOpts, httpAdapter.WithEventSource(events))
			}

			srv := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
				Handler: httpAdapter.NewHandler(app.Engine, app.Registry, handlerOpts...),
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("starting facet server",
					"address", srv.Addr,
					"catalog", cfg.Catalog.Driver,
					"cache", cfg.Cache.Driver,
					"admin", cfg.Server.Admin,
				)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)

			case <-sc.Done():
				logger.Info("start shutdown", "signal", sc.Signal())

				// Give outstanding requests a deadline for completion.
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
					if err := srv.Close(); err != nil {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				logger.Info("facet server stopped gracefully")
				return nil
			}
		},
	}

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
	return serveCmd
}
