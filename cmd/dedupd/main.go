// Command dedupd serves venue search and deduplication over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/venue-dedup/internal/adapter/googleplaces"
	"github.com/couchcryptid/venue-dedup/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/venue-dedup/internal/adapter/kafka"
	"github.com/couchcryptid/venue-dedup/internal/adapter/mapbox"
	"github.com/couchcryptid/venue-dedup/internal/adapter/searchcache"
	"github.com/couchcryptid/venue-dedup/internal/catalog"
	"github.com/couchcryptid/venue-dedup/internal/config"
	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/couchcryptid/venue-dedup/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := catalog.Open(ctx, cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to open catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}

	snapshots := catalog.NewSnapshotter(store, catalog.SnapshotOptions{
		TTL:   cfg.CatalogSnapshotTTL,
		Limit: cfg.CatalogSnapshotLimit,
	}, logger, metrics)
	if _, err := snapshots.Refresh(ctx); err != nil {
		// Readiness stays false until a later request loads the snapshot.
		logger.Warn("initial catalog snapshot failed", "error", err)
	}

	// Providers are feature-flagged via *_ENABLED or the presence of credentials.
	var providers []domain.PlaceSearcher
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.ProviderRateLimit, metrics, logger)
		providers = append(providers, searchcache.NewCachedSearcher(client, cfg.SearchCacheSize, metrics))
		logger.Info("mapbox search enabled", "cache_size", cfg.SearchCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox search disabled")
	}
	if cfg.GooglePlacesEnabled {
		client := googleplaces.NewClient(cfg.GooglePlacesKey, cfg.GooglePlacesTimeout, cfg.ProviderRateLimit, metrics, logger)
		providers = append(providers, searchcache.NewCachedSearcher(client, cfg.SearchCacheSize, metrics))
		logger.Info("google places search enabled", "cache_size", cfg.SearchCacheSize, "timeout", cfg.GooglePlacesTimeout)
	} else {
		logger.Info("google places search disabled")
	}

	opts := search.Options{
		Policy:      domain.NewIDPolicy(cfg.VerbatimIDProviders...),
		MaxAttempts: cfg.ProviderMaxAttempts,
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("decision publishing enabled", "topic", cfg.KafkaDecisionTopic)
	}

	svc := search.New(providers, snapshots, store, opts, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("catalog close error", "error", err)
	}

	logger.Info("shutdown complete")
}
