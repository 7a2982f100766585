package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Catalog snapshot configuration.
	CatalogPath          string
	CatalogSnapshotLimit int
	CatalogSnapshotTTL   time.Duration

	// Provider search configuration shared by all providers.
	VerbatimIDProviders []string
	ProviderRateLimit   float64 // requests per second
	ProviderMaxAttempts int
	SearchCacheSize     int

	// Mapbox places configuration.
	MapboxToken   string
	MapboxEnabled bool
	MapboxTimeout time.Duration

	// Google Places configuration.
	GooglePlacesKey     string
	GooglePlacesEnabled bool
	GooglePlacesTimeout time.Duration

	// Decision publishing.
	KafkaBrokers       []string
	KafkaDecisionTopic string
	KafkaEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	snapshotTTL, err := parsePositiveDuration("CATALOG_SNAPSHOT_TTL", "5m")
	if err != nil {
		return nil, err
	}
	snapshotLimit, err := parsePositiveInt("CATALOG_SNAPSHOT_LIMIT", 1000)
	if err != nil {
		return nil, err
	}

	rateLimit, err := parsePositiveFloat("PROVIDER_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := parsePositiveInt("PROVIDER_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	googleTimeout, err := parsePositiveDuration("GOOGLE_PLACES_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	googleKey := os.Getenv("GOOGLE_PLACES_KEY")
	brokersEnv := os.Getenv("KAFKA_BROKERS")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CatalogPath:          sharedcfg.EnvOrDefault("CATALOG_PATH", "catalog.db"),
		CatalogSnapshotLimit: snapshotLimit,
		CatalogSnapshotTTL:   snapshotTTL,

		VerbatimIDProviders: parseList(sharedcfg.EnvOrDefault("VERBATIM_ID_PROVIDERS", "google")),
		ProviderRateLimit:   rateLimit,
		ProviderMaxAttempts: maxAttempts,
		SearchCacheSize:     parseCacheSize(),

		MapboxToken:   mapboxToken,
		MapboxEnabled: envFlag("MAPBOX_ENABLED", mapboxToken != ""),
		MapboxTimeout: mapboxTimeout,

		GooglePlacesKey:     googleKey,
		GooglePlacesEnabled: envFlag("GOOGLE_PLACES_ENABLED", googleKey != ""),
		GooglePlacesTimeout: googleTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaDecisionTopic: sharedcfg.EnvOrDefault("KAFKA_DECISION_TOPIC", "venue-dedup-decisions"),
		KafkaEnabled:       envFlag("KAFKA_ENABLED", brokersEnv != ""),
	}

	if cfg.CatalogPath == "" {
		return nil, errors.New("CATALOG_PATH is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.GooglePlacesEnabled && cfg.GooglePlacesKey == "" {
		return nil, errors.New("GOOGLE_PLACES_ENABLED is true but GOOGLE_PLACES_KEY is not set")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaDecisionTopic == "" {
			return nil, errors.New("KAFKA_DECISION_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

// envFlag returns fallback unless key is set, in which case only "true" enables.
func envFlag(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return fallback
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return f, nil
}

func parseCacheSize() int {
	if s := os.Getenv("SEARCH_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
