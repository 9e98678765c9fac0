// Package app wires configuration into a running assistant: corpus store,
// seed corpus, live data chain and engine. Both binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/cache"
	"github.com/scrypster/keystone/internal/config"
	"github.com/scrypster/keystone/internal/engine"
	"github.com/scrypster/keystone/internal/livedata"
	"github.com/scrypster/keystone/internal/seed"
	"github.com/scrypster/keystone/internal/storage"
	"github.com/scrypster/keystone/internal/storage/memory"
	"github.com/scrypster/keystone/internal/storage/postgres"
	"github.com/scrypster/keystone/internal/storage/sqlite"
)

// liveDataCacheItems bounds the in-process facts cache.
const liveDataCacheItems = 1000

// App holds the long-lived components built from a Config.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     storage.CorpusStore
	Assistant *engine.Assistant

	watcher *seed.Watcher
	closers []func() error
}

// New opens the store, loads seeds and builds the assistant. On error every
// resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	if cfg.Seeds.Path != "" {
		st, err := seed.Load(ctx, store, cfg.Seeds.Path)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app: load seeds: %w", err)
		}
		logger.Info().
			Str("path", cfg.Seeds.Path).
			Int("files", st.Files).
			Int("qa", st.QA).
			Int("variations", st.Variations).
			Msg("seed corpus loaded")
	}

	provider, closeProvider, err := NewLiveData(ctx, cfg.LiveData, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeProvider)

	assistant, err := engine.New(store,
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithLogger(logger),
		engine.WithLiveData(provider),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Assistant = assistant

	return a, nil
}

// WatchSeeds starts reloading the seed directory on change. It is a no-op
// unless seeds are configured with watching enabled.
func (a *App) WatchSeeds(ctx context.Context) error {
	if a.Config.Seeds.Path == "" || !a.Config.Seeds.Watch {
		return nil
	}

	w := seed.NewWatcher(a.Config.Seeds.Path, a.Store,
		seed.WithWatcherLogger(a.Logger),
	)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("app: watch seeds: %w", err)
	}
	a.watcher = w
	return nil
}

// Close stops the seed watcher and releases resources in reverse order.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Stop()
		a.watcher = nil
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the corpus store selected by cfg.Engine.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.CorpusStore, error) {
	switch cfg.Engine {
	case "memory":
		return memory.NewStore(), nil

	case "sqlite":
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("app: create data path: %w", err)
		}
		store, err := sqlite.NewStore(cfg.SQLitePath(), sqlite.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("app: open sqlite store: %w", err)
		}
		return store, nil

	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("app: open postgres store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("app: unknown storage engine %q", cfg.Engine)
	}
}

// NewLiveData builds the provider chain for cfg: the source, wrapped in a
// cache unless the cache backend is "none". The returned func releases the
// cache.
func NewLiveData(ctx context.Context, cfg config.LiveDataConfig, logger zerolog.Logger) (livedata.Provider, func() error, error) {
	noop := func() error { return nil }

	var source livedata.Provider
	switch cfg.Source {
	case "", "none":
		return livedata.Nop{}, noop, nil

	case "static":
		p, err := livedata.LoadStaticProvider(cfg.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		source = p

	case "http":
		p, err := livedata.NewHTTPProvider(livedata.HTTPConfig{
			BaseURL:       cfg.BaseURL,
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.RatePerSecond,
			Burst:         cfg.Burst,
		}, livedata.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		source = p

	default:
		return nil, nil, fmt.Errorf("app: unknown live data source %q", cfg.Source)
	}

	var c cache.Client
	switch cfg.CacheBackend {
	case "", "none":
		return source, noop, nil
	case "memory":
		rc, err := cache.NewRistrettoClient(liveDataCacheItems)
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		c = rc
	case "redis":
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("app: %w", err)
		}
		c = rc
	default:
		return nil, nil, fmt.Errorf("app: unknown live data cache %q", cfg.CacheBackend)
	}

	logger.Info().
		Str("source", cfg.Source).
		Str("cache", cfg.CacheBackend).
		Dur("ttl", cfg.CacheTTL).
		Msg("live data enabled")
	return livedata.NewCachedProvider(source, c, cfg.CacheTTL, logger), c.Close, nil
}
