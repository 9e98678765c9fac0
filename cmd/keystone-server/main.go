// Command keystone-server serves the real-estate assistant over HTTP and
// websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/scrypster/keystone/internal/app"
	"github.com/scrypster/keystone/internal/config"
	"github.com/scrypster/keystone/internal/observability"
	"github.com/scrypster/keystone/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "keystone-server",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

// run serves until ctx is done.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown: close failed")
		}
	}()

	if err := a.WatchSeeds(ctx); err != nil {
		return err
	}

	addr, err := startServer(ctx, a)
	if err != nil {
		return err
	}
	logger.Info().Str("addr", addr).Str("storage", cfg.Storage.Engine).Msg("keystone running")

	<-ctx.Done()
	logger.Info().Msg("shutting down gracefully")
	return nil
}

// startServer wraps server.Start for testability.
func startServer(ctx context.Context, a *app.App) (string, error) {
	return server.New(a.Config, a.Assistant, a.Store, a.Logger).Start(ctx)
}
