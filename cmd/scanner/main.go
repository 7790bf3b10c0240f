package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab-run/mintscan/internal/config"
	"github.com/dexlab-run/mintscan/internal/observability"
	"github.com/dexlab-run/mintscan/internal/pipeline"
)

func main() {
	cfg, warnings, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("configuration invalid")
	}

	logger := newLogger(cfg)
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics("mintscan", nil)

	app, err := pipeline.NewApp(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("scanner startup failed")
	}

	// Metrics endpoint.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	_, stopMetrics := observability.Serve(cfg.Metrics.Addr(), metricsMux, logger)
	defer stopMetrics()

	// Health and trading endpoints.
	healthHandler := observability.NewHealthHandler(app.Health, app.Trader(), logger)
	_, stopHealth := observability.Serve(cfg.Health.Addr(), healthHandler, logger)
	defer stopHealth()

	// Graceful shutdown on SIGINT/SIGTERM; a second signal or a 30 s
	// stall forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		select {
		case <-sigCh:
			logger.Error().Msg("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = app.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("scanner exited with error")
	}
	logger.Info().Msg("scanner stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger
}
