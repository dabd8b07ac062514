package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/facet"
	"github.com/aretw0/facet/internal/config"
	"github.com/aretw0/facet/pkg/adapters/loam"
	"github.com/aretw0/facet/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/facet/pkg/adapters/redis"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/ports"
	"github.com/aretw0/facet/pkg/registry"
	backend "github.com/redis/go-redis/v9"
)

// App is a fully wired engine with the resources it owns.
type App struct {
	Engine   *facet.Engine
	Registry *registry.Registry

	// Watchable reports whether the catalog emits change notifications.
	Watchable bool

	closers []func() error
}

// Close releases the connections opened by BuildApp.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildApp wires stores, cache, locker and engine as described by cfg.
func BuildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*App, error) {
	app := &App{}

	var client *backend.Client
	if cfg.Catalog.Driver == config.DriverRedis || cfg.Cache.Driver == config.DriverRedis {
		client = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	var (
		store   ports.AttributeStore
		locker  ports.DistributedLocker
		watcher ports.FragmentWatcher
	)
	switch cfg.Catalog.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
		locker = memory.NewLocker()
	case config.DriverRedis:
		store = redisAdapter.NewFromClient(client, redisAdapter.WithPrefix(cfg.Redis.Prefix))
		locker = redisAdapter.NewLocker(client, cfg.Redis.Prefix)
	case config.DriverLoam:
		catalog, err := loam.Open(cfg.Catalog.Dir, loam.WithLogger(logger))
		if err != nil {
			app.Close()
			return nil, err
		}
		store = catalog
		watcher = catalog
	default:
		app.Close()
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}

	var cache ports.FragmentCache
	switch cfg.Cache.Driver {
	case config.DriverMemory:
		cache = memory.NewFragmentCache()
	case config.DriverRedis:
		cache = redisAdapter.NewFragmentCache(client,
			redisAdapter.WithCachePrefix(cfg.Redis.Prefix),
			redisAdapter.WithCacheTTL(cfg.Cache.TTL),
		)
	case config.DriverNone:
	default:
		app.Close()
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	regOpts := []registry.Option{registry.WithLogger(logger)}
	if cache != nil {
		regOpts = append(regOpts, registry.WithCache(cache))
	}
	if locker != nil {
		regOpts = append(regOpts, registry.WithLocker(locker))
	}
	app.Registry = registry.New(store, regOpts...)

	if cfg.Catalog.Seed != "" && cfg.Catalog.Driver != config.DriverLoam {
		attrs, err := config.LoadSeed(cfg.Catalog.Seed)
		if err != nil {
			app.Close()
			return nil, err
		}
		created, err := app.Registry.Seed(ctx, attrs)
		if err != nil {
			app.Close()
			return nil, err
		}
		logger.Info("catalog seeded", "file", cfg.Catalog.Seed, "created", created, "listed", len(attrs))
	}

	engineOpts := []facet.Option{
		facet.WithRegistry(app.Registry),
		facet.WithCache(cache),
		facet.WithLogger(logger),
		facet.WithLifecycleHooks(hooks),
	}
	if watcher != nil {
		engineOpts = append(engineOpts, facet.WithWatcher(watcher))
		app.Watchable = true
	}

	engine, err := facet.New("", engineOpts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine

	logger.Debug("engine ready",
		"catalog", cfg.Catalog.Driver,
		"cache", cfg.Cache.Driver,
		"watchable", app.Watchable,
	)
	return app, nil
}
