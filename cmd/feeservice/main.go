package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/delivery-fee-service/internal/adapter/feed"
	"github.com/couchcryptid/delivery-fee-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/delivery-fee-service/internal/adapter/kafka"
	"github.com/couchcryptid/delivery-fee-service/internal/config"
	"github.com/couchcryptid/delivery-fee-service/internal/ingest"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
	"github.com/couchcryptid/delivery-fee-service/internal/quote"
	"github.com/couchcryptid/delivery-fee-service/internal/rules"
	"github.com/couchcryptid/delivery-fee-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	catalog, ruleSet, err := rules.Load(cfg.FeeRulesFile)
	if err != nil {
		logger.Error("failed to load fee rules", "error", err)
		os.Exit(1)
	}
	for _, city := range catalog.Mismatches() {
		logger.Warn("city has a station or base fees but not both", "city", city)
	}

	schedule, err := ingest.ParseSchedule(cfg.IngestSchedule)
	if err != nil {
		logger.Error("invalid ingest schedule", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observations, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open observation store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("observation store opened", "backend", cfg.StoreBackend)

	fetcher := feed.NewClient(cfg.WeatherFeedURL, cfg.WeatherFeedTimeout, catalog.HasStation, cfg.WeatherFeedLocation, logger)

	// Publishing observations is feature-flagged via KAFKA_ENABLED.
	var opts []ingest.Option
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, ingest.WithPublisher(writer))
		logger.Info("observation publishing enabled", "topic", cfg.KafkaObservationsTopic)
	} else {
		logger.Info("observation publishing disabled")
	}

	scheduler := ingest.New(fetcher, observations, schedule, clockwork.NewRealClock(), logger, metrics, opts...)
	quotes := quote.NewService(catalog, ruleSet, observations, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, scheduler, quotes, quotes, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingestion.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("ingestion cycle still running at shutdown deadline")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := observations.Close(); err != nil {
		logger.Error("observation store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore opens the configured backend. Persistent backends are fronted by
// an LRU of latest observations.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	var inner store.Store
	var err error
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendSQLite:
		inner, err = store.OpenSQLite(ctx, cfg.SQLitePath, logger)
	case config.BackendPostgres:
		inner, err = store.OpenPostgres(ctx, cfg.PostgresDSN)
	case config.BackendRedis:
		inner, err = store.OpenRedis(ctx, cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	return store.NewCached(inner, cfg.StoreCacheSize), nil
}
