// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string
	UserAgent    string

	Workers          int
	RequestTimeout   time.Duration
	HostRequestDelay time.Duration

	GeocoderURL      string
	GeocodeRegion    string
	GeocodeTimeout   time.Duration
	GeocodeInterval  time.Duration
	GeocodeCacheSize int

	ClassifyFeedDrafts bool
	FeedFullContent    bool
	FeedMaxEntries     int

	AccessIndicatorsFile string
}

// Default values applied when a variable is unset.
const (
	DefaultDatabasePath = "./data/news.db"
	DefaultUserAgent    = "Mozilla/5.0 (compatible; XanaduBot/1.0)"
	DefaultGeocoderURL  = "https://nominatim.openstreetmap.org"
	DefaultRegion       = "Kansas, USA"
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:  envOr("DATABASE_PATH", DefaultDatabasePath),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		UserAgent:     envOr("USER_AGENT", DefaultUserAgent),
		GeocoderURL:   strings.TrimRight(envOr("GEOCODER_URL", DefaultGeocoderURL), "/"),
		GeocodeRegion: envOr("GEOCODE_REGION", DefaultRegion),

		AccessIndicatorsFile: envOr("ACCESS_INDICATORS", ""),
	}

	var err error
	if cfg.Workers, err = intEnv("INGEST_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("INGEST_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.HostRequestDelay, err = durationEnv("HOST_REQUEST_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.GeocodeTimeout, err = durationEnv("GEOCODE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeInterval, err = durationEnv("GEOCODE_RATE", time.Second); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheSize, err = intEnv("GEOCODE_CACHE_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.GeocodeCacheSize < 1 {
		return nil, fmt.Errorf("GEOCODE_CACHE_SIZE must be at least 1, got %d", cfg.GeocodeCacheSize)
	}
	if cfg.ClassifyFeedDrafts, err = boolEnv("CLASSIFY_FEED_DRAFTS", false); err != nil {
		return nil, err
	}
	if cfg.FeedFullContent, err = boolEnv("FEED_FULL_CONTENT", false); err != nil {
		return nil, err
	}
	if cfg.FeedMaxEntries, err = intEnv("FEED_MAX_ENTRIES", 0); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid %s %q: negative duration", key, raw)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
