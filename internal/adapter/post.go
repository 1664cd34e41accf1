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

// PostSite handles the "*post.com" network, whose articles live under
// /posts/ and show a "Posted <date>" line when there is no time element.
type PostSite struct {
	base
	domains domains
}

// NewPostSite creates a post-network adapter for the given domains.
func NewPostSite(f Fetcher, log *slog.Logger, hosts ...string) *PostSite {
	return &PostSite{base: newBase(f, log), domains: hosts}
}

func (p *PostSite) Name() string { return "post" }

func (p *PostSite) Matches(locator string) bool { return p.domains.match(locator) }

func (p *PostSite) Extract(ctx context.Context, src model.Source) ([]model.Article, error) {
	listing := src.ScrapeURL()
	baseURL, err := url.Parse(listing)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	doc, _, err := p.fetcher.Document(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	candidates := links(doc, baseURL, func(_ string, abs *url.URL) bool {
		i := strings.Index(abs.Path, "/posts/")
		return i >= 0 && len(strings.Trim(abs.Path[i+len("/posts/"):], "/")) > 0
	})

	return p.scrape(ctx, src, candidates, p.read), nil
}

func (p *PostSite) read(doc *goquery.Document, _ []byte) page {
	pg := page{title: extract.Title(doc)}

	if t, ok := extract.TimeElement(doc); ok {
		pg.published = &t
	} else {
		pg.published = timePtr(extract.ScanDate(extract.VisibleText(doc.Selection), extract.PostedPattern))
	}

	pg.content = extract.Content(doc, p.limit)
	return pg
}
