package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"localnews/internal/extract"
	"localnews/internal/model"
)

// DefaultMaxCandidates caps how many article pages a WordPress listing
// yields per run.
const DefaultMaxCandidates = 30

// wordPressSkip are link fragments that never point at an article.
var wordPressSkip = []string{"/category/", "/tag/", "/author/", "/page/", "#", "wp-content"}

// WordPressSite handles WordPress sites whose articles sit at a single
// top-level slug.
type WordPressSite struct {
	base
	domains domains
	// MaxCandidates bounds the article pages fetched per run.
	MaxCandidates int
}

// NewWordPressSite creates a WordPress adapter for the given domains.
func NewWordPressSite(f Fetcher, log *slog.Logger, hosts ...string) *WordPressSite {
	return &WordPressSite{base: newBase(f, log), domains: hosts, MaxCandidates: DefaultMaxCandidates}
}

func (w *WordPressSite) Name() string { return "wordpress" }

func (w *WordPressSite) Matches(locator string) bool { return w.domains.match(locator) }

func (w *WordPressSite) Extract(ctx context.Context, src model.Source) ([]model.Article, error) {
	listing := src.ScrapeURL()
	baseURL, err := url.Parse(listing)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	doc, _, err := w.fetcher.Document(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	candidates := links(doc, baseURL, func(href string, abs *url.URL) bool {
		for _, s := range wordPressSkip {
			if strings.Contains(href, s) {
				return false
			}
		}
		if !w.domains.match(abs.String()) {
			return false
		}
		slug := strings.Trim(abs.Path, "/")
		return slug != "" && !strings.Contains(slug, "/") && len(slug) > 5
	})
	if w.MaxCandidates > 0 && len(candidates) > w.MaxCandidates {
		candidates = candidates[:w.MaxCandidates]
	}

	return w.scrape(ctx, src, candidates, w.read), nil
}

func (w *WordPressSite) read(doc *goquery.Document, _ []byte) page {
	pg := page{title: extract.Title(doc)}

	if t, ok := extract.TimeElement(doc); ok {
		pg.published = &t
	} else if t, ok := extract.MetaTime(doc, "article:published_time"); ok {
		pg.published = &t
	} else {
		pg.published = timePtr(extract.ScanDate(extract.VisibleText(doc.Selection), extract.DatePhrasePattern))
	}

	pg.content = extract.Content(doc, w.limit)
	return pg
}
