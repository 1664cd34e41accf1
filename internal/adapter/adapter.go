// Package adapter converts fetched feeds and site pages into article drafts.
// Each site family is an Adapter; the Registry picks one by locator.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"localnews/internal/extract"
	"localnews/internal/model"
)

// ErrNoAdapter is returned when no registered adapter matches a locator.
var ErrNoAdapter = errors.New("no adapter for locator")

// Adapter extracts drafts for one family of sources.
type Adapter interface {
	Name() string
	Matches(locator string) bool
	// Extract returns the drafts it could build. It fails only when the
	// source as a whole could not be read; a bad article page is skipped.
	Extract(ctx context.Context, src model.Source) ([]model.Article, error)
}

// Enricher is implemented by adapters that do extra per-draft work, which
// is only worth doing once drafts are known to be new.
type Enricher interface {
	Enrich(ctx context.Context, src model.Source, drafts []model.Article)
}

// Fetcher is the download capability adapters need.
type Fetcher interface {
	Document(ctx context.Context, rawURL string) (*goquery.Document, []byte, error)
	Feed(ctx context.Context, rawURL string) (*gofeed.Feed, error)
}

// Registry is an ordered list of adapters; the first match wins.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry holding adapters in order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// Register appends an adapter after the existing ones.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// Lookup returns the first adapter matching locator.
func (r *Registry) Lookup(locator string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.Matches(locator) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoAdapter, locator)
}

// Adapters returns the registered adapters in dispatch order.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// DefaultRegistry registers the known Kansas site families.
func DefaultRegistry(f Fetcher, log *slog.Logger) *Registry {
	return NewRegistry(
		NewPostSite(f, log,
			"littleapplepost.com", "hutchpost.com", "salinapost.com", "hayspost.com", "greatbendpost.com"),
		NewArcSite(f, log, "kwch.com", "wibw.com"),
		NewWordPressSite(f, log, "kscbnews.net"),
	)
}

// domains matches locators by host, including subdomains.
type domains []string

func (d domains) match(locator string) bool {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range d {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// base carries what every scrape adapter shares.
type base struct {
	fetcher Fetcher
	log     *slog.Logger
	now     func() time.Time
	limit   int
}

func newBase(f Fetcher, log *slog.Logger) base {
	return base{fetcher: f, log: log, now: time.Now, limit: extract.DefaultContentLimit}
}

// page is what a site family reads from one article page.
type page struct {
	title     string
	published *time.Time
	content   string
}

// scrape fetches every candidate and turns readable pages into drafts.
// Failures are logged per candidate and never abort the source.
func (b base) scrape(
	ctx context.Context,
	src model.Source,
	candidates []string,
	read func(doc *goquery.Document, raw []byte) page,
) []model.Article {
	var drafts []model.Article
	for _, u := range candidates {
		if ctx.Err() != nil {
			break
		}

		doc, raw, err := b.fetcher.Document(ctx, u)
		if err != nil {
			b.log.Warn("extraction miss", "source_id", src.ID, "url", u, "reason", "fetch", "error", err)
			continue
		}

		p := read(doc, raw)
		if p.title == "" {
			b.log.Warn("extraction miss", "source_id", src.ID, "url", u, "reason", "no title")
			continue
		}

		drafts = append(drafts, b.draft(src, u, p))
	}
	return drafts
}

// draft builds a scrape-origin draft. Location defaults to the source's home
// city; the market is resolved centrally later.
func (b base) draft(src model.Source, u string, p page) model.Article {
	city := src.City
	if city == "" {
		city = "Kansas"
	}
	a := model.Article{
		SourceID:    src.ID,
		Title:       p.title,
		URL:         u,
		Content:     model.StringPtr(p.content),
		PublishedAt: p.published,
		FetchedAt:   b.now().UTC(),
		Location:    model.StringPtr(city),
		Origin:      model.OriginScrape,
	}
	if src.AssumeLocal {
		a.IsLocal = model.BoolPtr(true)
		a.IsAccessible = model.BoolPtr(true)
	}
	return a
}

// links collects the distinct absolute URLs of anchors on doc accepted by
// keep, in document order.
func links(doc *goquery.Document, baseURL *url.URL, keep func(href string, abs *url.URL) bool) []string {
	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := baseURL.ResolveReference(ref)
		abs.Fragment = ""
		if !keep(href, abs) {
			return
		}
		key := abs.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	})
	return out
}

func timePtr(t time.Time, ok bool) *time.Time {
	if !ok {
		return nil
	}
	return &t
}
