// Package sourcelist reads source lists from YAML and imports them into
// storage.
package sourcelist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"localnews/internal/discover"
	"localnews/internal/model"
	"localnews/internal/storage"
)

// Entry is one source in a list file.
type Entry struct {
	Name    string `yaml:"name"`
	City    string `yaml:"city"`
	Website string `yaml:"website"`
	// Feed is a feed URL or a "scrape:" locator. Empty asks for discovery.
	Feed string `yaml:"feed"`
	// AssumeLocal defaults to true for scrape locators and false otherwise.
	AssumeLocal *bool `yaml:"assume_local"`
}

type file struct {
	Sources []Entry `yaml:"sources"`
}

// Parse reads a list of the form:
//
//	sources:
//	  - name: Hays Post
//	    city: Hays
//	    website: https://hayspost.com
//	    feed: scrape:https://hayspost.com
func Parse(r io.Reader) ([]Entry, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode source list: %w", err)
	}

	for i, e := range f.Sources {
		if strings.TrimSpace(e.Website) == "" && strings.TrimSpace(e.Feed) == "" {
			return nil, fmt.Errorf("source %d (%q): website or feed is required", i+1, e.Name)
		}
	}
	return f.Sources, nil
}

// Source converts an entry into a source record.
func (e Entry) Source() model.Source {
	website := discover.Normalize(e.Website)
	feed := strings.TrimSpace(e.Feed)

	name := strings.TrimSpace(e.Name)
	if name == "" {
		if u, err := url.Parse(website); err == nil {
			name = u.Host
		}
	}

	src := model.Source{
		Name:       name,
		City:       strings.TrimSpace(e.City),
		WebsiteURL: website,
		FeedURL:    feed,
	}
	src.AssumeLocal = src.IsScrape()
	if e.AssumeLocal != nil {
		src.AssumeLocal = *e.AssumeLocal
	}
	return src
}

// Store is the storage an import needs.
type Store interface {
	CreateSource(ctx context.Context, src *model.Source) error
	FindSourceByWebsite(ctx context.Context, websiteURL string) (*model.Source, error)
}

// Discoverer finds the feed of a website.
type Discoverer interface {
	Discover(ctx context.Context, website string) (string, error)
}

// Result counts what an import did.
type Result struct {
	Created    int
	Skipped    int
	Discovered int
}

// Import creates a source for every entry whose website is not stored yet.
// When d is non-nil, entries without a feed get one by discovery; a failed
// discovery still creates the source.
func Import(ctx context.Context, store Store, entries []Entry, d Discoverer, log *slog.Logger) (Result, error) {
	var res Result
	for _, e := range entries {
		src := e.Source()

		if src.WebsiteURL != "" {
			_, err := store.FindSourceByWebsite(ctx, src.WebsiteURL)
			if err == nil {
				log.Debug("source exists", "name", src.Name, "website", src.WebsiteURL)
				res.Skipped++
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return res, fmt.Errorf("look up %s: %w", src.WebsiteURL, err)
			}
		}

		if src.FeedURL == "" && src.WebsiteURL != "" && d != nil {
			feed, err := d.Discover(ctx, src.WebsiteURL)
			if err != nil {
				log.Warn("no feed discovered", "name", src.Name, "website", src.WebsiteURL, "error", err)
			} else {
				src.FeedURL = feed
				res.Discovered++
			}
		}

		if err := store.CreateSource(ctx, &src); err != nil {
			return res, fmt.Errorf("create source %q: %w", src.Name, err)
		}
		log.Info("source imported", "source_id", src.ID, "name", src.Name, "city", src.City, "feed", src.FeedURL)
		res.Created++
	}
	return res, nil
}
