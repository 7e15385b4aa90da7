package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	httpapi "github.com/i474232898/weather-service/internal/api/http"
	"github.com/i474232898/weather-service/internal/config"
	"github.com/i474232898/weather-service/internal/logging"
	"github.com/i474232898/weather-service/internal/metrics"
	"github.com/i474232898/weather-service/internal/scheduler"
	"github.com/i474232898/weather-service/internal/store"
	"github.com/i474232898/weather-service/internal/weather"
	"github.com/i474232898/weather-service/internal/weather/providers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "weather-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	weatherRepo, locationRepo, ping, closeStore, err := openStore(ctx, cfg.DB, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		rec      metrics.Recorder = metrics.Noop()
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec = metrics.New(reg)
		gatherer = reg
	}

	// Shared HTTP client for outbound feed calls.
	httpClient := &http.Client{Timeout: cfg.Weather.HTTPTimeout}

	feed, err := providers.NewOpenWeatherFeed(httpClient, cfg.Weather.APIKey, logger, providers.WithBaseURL(cfg.Weather.BaseURL))
	if err != nil {
		return err
	}
	countries := providers.NewCountryFeed(httpClient, cfg.Weather.CountryURL, logger)

	service := weather.NewService(feed, weatherRepo, locationRepo,
		weather.WithRefreshTimeout(cfg.Weather.RefreshTimeout),
		weather.WithLogger(logger.With().Str("component", "cache").Logger()),
		weather.WithMetrics(rec),
	)

	sched := scheduler.New(cfg.Scheduler.Locations, cfg.Scheduler.FetchInterval, service, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Dependencies{
		Weather:   service,
		Locations: locationRepo,
		Countries: countries,
		Metrics:   rec,
		Gatherer:  gatherer,
		Ping:      ping,
		Logger:    logger.With().Str("component", "http").Logger(),
	})

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Dur("refresh_timeout", service.RefreshTimeout()).Msg("weather service listening")
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error().Err(err).Msg("fiber server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("error during shutdown")
	}
	return nil
}

// openStore picks the backend named by cfg.Kind.
func openStore(ctx context.Context, cfg config.DBConfig, logger zerolog.Logger) (
	weather.WeatherRepo, weather.LocationRepo, func(context.Context) error, func(), error,
) {
	kind, err := store.ParseKind(cfg.Kind)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if kind == store.KindMemory {
		mem := store.NewMemoryStore()
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return mem, mem, nil, func() {}, nil
	}

	db, err := store.Open(ctx, store.Options{
		Kind:     kind,
		URL:      cfg.URL,
		User:     cfg.User,
		Password: cfg.Password,
		MaxConns: cfg.MaxConns,
	}, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing store")
		}
	}
	return store.NewWeatherRepo(db), store.NewLocationRepo(db), db.Ping, closeDB, nil
}
