package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"localnews/internal/extract"
	"localnews/internal/model"
)

var arcStoryPath = regexp.MustCompile(`^/?\d{4}/\d{2}/\d{2}/[\w-]+`)

// ArcSite handles Arc Publishing television sites. Story URLs carry a
// /YYYY/MM/DD/slug path and the page embeds its metadata as JSON.
type ArcSite struct {
	base
	domains domains
}

// NewArcSite creates an Arc adapter for the given domains.
func NewArcSite(f Fetcher, log *slog.Logger, hosts ...string) *ArcSite {
	return &ArcSite{base: newBase(f, log), domains: hosts}
}

func (a *ArcSite) Name() string { return "arc" }

func (a *ArcSite) Matches(locator string) bool { return a.domains.match(locator) }

func (a *ArcSite) Extract(ctx context.Context, src model.Source) ([]model.Article, error) {
	listing := src.ScrapeURL()
	baseURL, err := url.Parse(listing)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	doc, _, err := a.fetcher.Document(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	candidates := links(doc, baseURL, func(_ string, abs *url.URL) bool {
		return a.domains.match(abs.String()) && arcStoryPath.MatchString(abs.Path)
	})

	return a.scrape(ctx, src, candidates, a.read), nil
}

// read prefers the page's time element for the date, then the embedded
// story JSON, then a date phrase in the visible text.
func (a *ArcSite) read(doc *goquery.Document, raw []byte) page {
	pg := page{published: timePtr(extract.TimeElement(doc))}
	story, ok := extract.ArcContent(raw)
	if ok {
		pg.title = extract.CollapseSpace(story.Headlines.Basic)
		if t, found := extract.ParseDate(story.DisplayDate); found && pg.published == nil {
			pg.published = &t
		}
		pg.content = extract.Truncate(extract.CollapseSpace(story.Description.Basic), a.limit)
	}

	if pg.title == "" {
		pg.title = extract.Title(doc)
	}
	if pg.published == nil {
		pg.published = timePtr(extract.ScanDate(extract.VisibleText(doc.Selection), extract.DatePhrasePattern))
	}
	if pg.content == "" {
		pg.content = extract.Content(doc, a.limit)
	}
	return pg
}
