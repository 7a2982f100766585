package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
	testGoogleKey   = "AIza-test-key"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "catalog.db", cfg.CatalogPath)
	assert.Equal(t, 1000, cfg.CatalogSnapshotLimit)
	assert.Equal(t, 5*time.Minute, cfg.CatalogSnapshotTTL)
	assert.Equal(t, []string{"google"}, cfg.VerbatimIDProviders)
	assert.Equal(t, 5.0, cfg.ProviderRateLimit)
	assert.Equal(t, 3, cfg.ProviderMaxAttempts)
	assert.Equal(t, 1000, cfg.SearchCacheSize)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.False(t, cfg.GooglePlacesEnabled)
	assert.Equal(t, 5*time.Second, cfg.GooglePlacesTimeout)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "venue-dedup-decisions", cfg.KafkaDecisionTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CATALOG_PATH", "/var/lib/venues/catalog.db")
	t.Setenv("CATALOG_SNAPSHOT_LIMIT", "250")
	t.Setenv("CATALOG_SNAPSHOT_TTL", "90s")
	t.Setenv("VERBATIM_ID_PROVIDERS", "google, yelp")
	t.Setenv("PROVIDER_RATE_LIMIT", "2.5")
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "5")
	t.Setenv("SEARCH_CACHE_SIZE", "500")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("GOOGLE_PLACES_KEY", testGoogleKey)
	t.Setenv("GOOGLE_PLACES_TIMEOUT", "3s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_DECISION_TOPIC", "custom-decisions")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/venues/catalog.db", cfg.CatalogPath)
	assert.Equal(t, 250, cfg.CatalogSnapshotLimit)
	assert.Equal(t, 90*time.Second, cfg.CatalogSnapshotTTL)
	assert.Equal(t, []string{"google", "yelp"}, cfg.VerbatimIDProviders)
	assert.Equal(t, 2.5, cfg.ProviderRateLimit)
	assert.Equal(t, 5, cfg.ProviderMaxAttempts)
	assert.Equal(t, 500, cfg.SearchCacheSize)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.True(t, cfg.GooglePlacesEnabled)
	assert.Equal(t, testGoogleKey, cfg.GooglePlacesKey)
	assert.Equal(t, 3*time.Second, cfg.GooglePlacesTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-decisions", cfg.KafkaDecisionTopic)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CATALOG_SNAPSHOT_TTL", "bad"},
		{"CATALOG_SNAPSHOT_TTL", "-1m"},
		{"CATALOG_SNAPSHOT_LIMIT", "0"},
		{"CATALOG_SNAPSHOT_LIMIT", "lots"},
		{"PROVIDER_RATE_LIMIT", "-2"},
		{"PROVIDER_MAX_ATTEMPTS", "0"},
		{"MAPBOX_TIMEOUT", "bad"},
		{"GOOGLE_PLACES_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_InvalidCacheSizeFallsBack(t *testing.T) {
	t.Setenv("SEARCH_CACHE_SIZE", "-5")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.SearchCacheSize)
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoad_GooglePlacesEnabledWithoutKey(t *testing.T) {
	t.Setenv("GOOGLE_PLACES_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_PLACES_KEY")
}

func TestLoad_KafkaExplicitlyEnabledUsesDefaultBroker(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
