// Package discover finds the feed of a news website.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// ErrNoFeed is returned when no candidate parses as a feed.
var ErrNoFeed = errors.New("no feed found")

// CommonPaths are probed relative to the site root when the homepage does
// not advertise a feed.
var CommonPaths = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss/",
	"/rss.xml",
	"/feed.xml",
	"/atom.xml",
	"/index.xml",
	"/feeds/posts/default",
	"/?feed=rss2",
}

var feedTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/feed+json",
	"text/xml",
}

// Fetcher downloads pages and feeds.
type Fetcher interface {
	Document(ctx context.Context, rawURL string) (*goquery.Document, []byte, error)
	Feed(ctx context.Context, rawURL string) (*gofeed.Feed, error)
}

// Finder discovers feeds.
type Finder struct {
	fetcher Fetcher
	log     *slog.Logger
}

// New creates a Finder.
func New(f Fetcher, log *slog.Logger) *Finder {
	return &Finder{fetcher: f, log: log}
}

// Normalize adds an https scheme to a bare host name.
func Normalize(website string) string {
	website = strings.TrimSpace(website)
	if website != "" && !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}
	return website
}

// Discover returns the first candidate feed URL that parses as a feed.
func (d *Finder) Discover(ctx context.Context, website string) (string, error) {
	candidates, err := d.Candidates(ctx, website)
	if err != nil {
		return "", err
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if _, err := d.fetcher.Feed(ctx, c); err != nil {
			d.log.Debug("not a feed", "url", c, "error", err)
			continue
		}
		return c, nil
	}
	return "", fmt.Errorf("%s: %w", website, ErrNoFeed)
}

// Candidates lists feed URLs to try: feeds advertised by the homepage, then
// CommonPaths under the site root.
func (d *Finder) Candidates(ctx context.Context, website string) ([]string, error) {
	website = Normalize(website)
	base, err := url.Parse(website)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid website url %q", website)
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(u string) {
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	doc, _, err := d.fetcher.Document(ctx, website)
	if err != nil {
		d.log.Warn("homepage fetch failed", "url", website, "error", err)
	} else {
		for _, u := range advertised(doc, base) {
			add(u)
		}
	}

	root := &url.URL{Scheme: base.Scheme, Host: base.Host}
	for _, p := range CommonPaths {
		ref, err := url.Parse(p)
		if err != nil {
			continue
		}
		add(root.ResolveReference(ref).String())
	}
	return out, nil
}

// advertised returns the hrefs of <link rel="alternate"> tags with a feed
// content type, resolved against base.
func advertised(doc *goquery.Document, base *url.URL) []string {
	var out []string
	doc.Find("link[rel~='alternate']").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || !isFeedType(typ) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		out = append(out, base.ResolveReference(ref).String())
	})
	return out
}

func isFeedType(typ string) bool {
	for _, ft := range feedTypes {
		if strings.Contains(typ, ft) {
			return true
		}
	}
	return false
}
