// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// ScrapePrefix marks a feed locator that names a scrape adapter target
// instead of a parseable feed.
const ScrapePrefix = "scrape:"

// Source is a news outlet articles are ingested from.
type Source struct {
	ID         int64
	Name       string
	City       string
	WebsiteURL string
	// FeedURL is either a feed URL or ScrapePrefix followed by the page
	// the scrape adapter should start from. Empty means not yet discovered.
	FeedURL string
	// AssumeLocal marks scrape-sourced drafts as local and accessible
	// without waiting for analysis.
	AssumeLocal bool
	CreatedAt   time.Time
}

// IsScrape reports whether the source is handled by a scrape adapter.
func (s Source) IsScrape() bool {
	return strings.HasPrefix(s.FeedURL, ScrapePrefix)
}

// ScrapeURL returns the page a scrape adapter starts from. The website URL
// is used when the locator carries no address of its own.
func (s Source) ScrapeURL() string {
	u := strings.TrimSpace(strings.TrimPrefix(s.FeedURL, ScrapePrefix))
	if u == "" {
		u = s.WebsiteURL
	}
	return strings.TrimRight(u, "/")
}

// Origin identifies how a draft was produced.
type Origin string

// Supported draft origins.
const (
	OriginFeed   Origin = "feed"
	OriginScrape Origin = "scrape"
)

// Article is a news article. Before it is stored it is a draft: ID is zero
// and the enrichment fields are unset.
type Article struct {
	ID           int64
	SourceID     int64
	Title        string
	URL          string
	Content      *string
	PublishedAt  *time.Time
	FetchedAt    time.Time
	Location     *string
	Market       *string
	IsLocal      *bool
	IsAccessible *bool
	Bullet       *string
	Priority     *int
	Origin       Origin
}

// Analysis holds the fields the analysis stage writes back onto a stored
// article. Nil fields are left untouched.
type Analysis struct {
	Location *string
	Market   *string
	IsLocal  *bool
	Bullet   *string
	Priority *int
}

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
