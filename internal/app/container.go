// Package app wires every streambox component from a Config.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/amaumene/streambox/internal/api"
	"github.com/amaumene/streambox/internal/cache"
	"github.com/amaumene/streambox/internal/config"
	"github.com/amaumene/streambox/internal/controllers"
	"github.com/amaumene/streambox/internal/models"
	"github.com/amaumene/streambox/internal/scheduler"
	"github.com/amaumene/streambox/internal/seed"
	"github.com/amaumene/streambox/internal/store"
	"github.com/amaumene/streambox/internal/store/bolt"
	"github.com/amaumene/streambox/internal/store/memory"
	"github.com/amaumene/streambox/internal/store/sqlite"
	"github.com/amaumene/streambox/internal/telemetry"
	"github.com/sirupsen/logrus"
)

const cachePrefix = "streambox:"

// Container holds the constructed components
type Container struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Store   store.Store
	Cache   cache.Cache
	Metrics *telemetry.Metrics
	Tracing *telemetry.Tracing

	Service *controllers.Service
	Cleanup *controllers.CleanupController
}

// New opens the configured store and cache, builds the controllers and seeds
// the catalog.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	st, err := newStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.WithField("backend", cfg.StoreBackend).Info("Store initialized")

	c, err := cache.New(ctx, cache.Options{
		Backend: cfg.CacheBackend,
		TTL:     cfg.CacheTTL,
		Prefix:  cachePrefix,
		Redis: cache.RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			PingRetries: 3,
		},
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	logger.WithField("backend", cfg.CacheBackend).Info("Cache initialized")

	metrics := telemetry.NewMetrics()
	tracing := telemetry.NewTracing(cfg.TracingEnabled, logger)
	tracer := tracing.Tracer()

	catalog := controllers.NewCatalogController(st, c, tracer, metrics, logger)
	demo := models.InsertUser{Username: cfg.DemoUsername, Password: cfg.DemoPassword}

	container := &Container{
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Cache:   c,
		Metrics: metrics,
		Tracing: tracing,
		Service: &controllers.Service{
			CatalogController:  catalog,
			IdentityController: controllers.NewIdentityController(st, demo, tracer, metrics, logger),
			UserListController: controllers.NewUserListController(st, catalog, tracer, metrics, logger),
		},
		Cleanup: controllers.NewCleanupController(st, tracer, metrics, logger),
	}
	logger.Info("Controllers initialized")

	items, err := seed.Load(cfg.CatalogFile, cfg.EmbedBaseURL)
	if err != nil {
		container.Close(ctx)
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := container.Service.Seed(ctx, items); err != nil {
		container.Close(ctx)
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	return container, nil
}

// NewServer builds the HTTP server over the container's service
func (c *Container) NewServer() *api.Server {
	return api.NewServer(c.Config, c.Service, c.Metrics, c.Logger)
}

// NewScheduler builds the housekeeping scheduler
func (c *Container) NewScheduler() *scheduler.Scheduler {
	return scheduler.NewScheduler(c.Cleanup, c.Service, scheduler.Schedules{
		Prune:     c.Config.PruneSchedule,
		CacheWarm: c.Config.CacheWarmSchedule,
	}, c.Logger)
}

// Close releases the store, the cache connection and the tracer provider
func (c *Container) Close(ctx context.Context) {
	if err := c.Tracing.Shutdown(ctx); err != nil {
		c.Logger.WithError(err).Warn("Failed to shut down tracing")
	}
	if closer, ok := c.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close cache")
		} else {
			c.Logger.Info("Cache connection closed")
		}
	}
	if err := c.Store.Close(); err != nil {
		c.Logger.WithError(err).Warn("Failed to close store")
	} else {
		c.Logger.Info("Store closed")
	}
}

func newStore(cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreBolt:
		return bolt.Open(cfg.DatabaseFile, bolt.Options{
			Timeout: cfg.StoreOpenTimeout,
			Retries: cfg.StoreOpenRetries,
		}, logger)
	case config.StoreSQLite:
		return sqlite.Open(cfg.SQLiteFile, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
