// Package app wires configuration, storage and the ingestion components
// shared by the commands.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"localnews/internal/access"
	"localnews/internal/adapter"
	"localnews/internal/config"
	"localnews/internal/discover"
	"localnews/internal/fetcher"
	"localnews/internal/geocode"
	"localnews/internal/logging"
	"localnews/internal/market"
	"localnews/internal/pipeline"
	"localnews/internal/storage"
)

// App holds the long-lived components of a command.
type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Store    *storage.SQLite
	Fetcher  *fetcher.Fetcher
	Geocoder *geocode.Cache
	Resolver *market.Resolver
	Registry *adapter.Registry
	Feeds    *adapter.Feed
}

// LoadEnv reads .env files into the environment. Missing files are
// ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Setup loads configuration and builds every component. The caller must
// Close the returned App.
func Setup() (*App, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return New(cfg, logging.New(cfg.LogLevel), http.DefaultClient)
}

// New builds the components from cfg using client for all HTTP traffic.
func New(cfg *config.Config, log *slog.Logger, client fetcher.HTTPClient) (*App, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}

	f := fetcher.NewWithOptions(client, fetcher.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
		HostDelay: cfg.HostRequestDelay,
	})

	nominatim := geocode.NewNominatim(client, cfg.GeocoderURL, cfg.UserAgent, cfg.GeocodeTimeout, cfg.GeocodeInterval)
	cache, err := geocode.NewCache(nominatim, cfg.GeocodeRegion, cfg.GeocodeCacheSize, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}

	return &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Fetcher:  f,
		Geocoder: cache,
		Resolver: market.NewResolver(cache, market.WithLogger(log)),
		Registry: adapter.DefaultRegistry(f, log),
		Feeds: adapter.NewFeed(f, log, adapter.FeedOptions{
			FullContent: cfg.FeedFullContent,
			MaxEntries:  cfg.FeedMaxEntries,
		}),
	}, nil
}

// Pipeline returns an ingestion pipeline over the app's components.
func (a *App) Pipeline() *pipeline.Pipeline {
	return pipeline.New(a.Store, a.Registry, a.Feeds, a.Resolver, a.Log, pipeline.Options{
		Workers:            a.Config.Workers,
		ClassifyFeedDrafts: a.Config.ClassifyFeedDrafts,
	})
}

// AccessChecker returns the paywall checker configured by
// ACCESS_INDICATORS, or the default phrases when it is unset.
func (a *App) AccessChecker() (*access.Checker, error) {
	c, err := access.Load(a.Config.AccessIndicatorsFile)
	if err != nil {
		return nil, fmt.Errorf("load access indicators: %w", err)
	}
	return c, nil
}

// Finder returns a feed discovery helper.
func (a *App) Finder() *discover.Finder {
	return discover.New(a.Fetcher, a.Log)
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}
