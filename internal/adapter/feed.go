package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"localnews/internal/extract"
	"localnews/internal/model"
)

// FollowUpContentLimit caps content read from an article page when a feed
// entry is enriched with its full text.
const FollowUpContentLimit = 5000

// FeedOptions tune the feed adapter.
type FeedOptions struct {
	// FullContent fetches each new entry's page and replaces the feed
	// content with the page's article text.
	FullContent bool
	// MaxEntries keeps only the first entries of a feed. Zero keeps all.
	MaxEntries int
}

// Feed turns RSS, Atom and JSON feed entries into drafts. Location, market
// and locality are left for analysis.
type Feed struct {
	base
	opts FeedOptions
}

// NewFeed creates the feed adapter.
func NewFeed(f Fetcher, log *slog.Logger, opts FeedOptions) *Feed {
	return &Feed{base: newBase(f, log), opts: opts}
}

func (a *Feed) Name() string { return "feed" }

// Matches accepts any http(s) locator that is not a scrape locator.
func (a *Feed) Matches(locator string) bool {
	if strings.HasPrefix(locator, model.ScrapePrefix) {
		return false
	}
	u, err := url.Parse(locator)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (a *Feed) Extract(ctx context.Context, src model.Source) ([]model.Article, error) {
	feed, err := a.fetcher.Feed(ctx, src.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	items := feed.Items
	if a.opts.MaxEntries > 0 && len(items) > a.opts.MaxEntries {
		items = items[:a.opts.MaxEntries]
	}

	now := a.now().UTC()
	drafts := make([]model.Article, 0, len(items))
	for _, item := range items {
		title := extract.CollapseSpace(item.Title)
		link := entryLink(item)
		if title == "" || link == "" {
			a.log.Debug("skipping feed entry", "source_id", src.ID, "title", title, "link", link)
			continue
		}

		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}

		drafts = append(drafts, model.Article{
			SourceID:    src.ID,
			Title:       title,
			URL:         link,
			Content:     model.StringPtr(extract.Truncate(extract.StripTags(body), a.limit)),
			PublishedAt: entryTime(item),
			FetchedAt:   now,
			Origin:      model.OriginFeed,
		})
	}
	return drafts, nil
}

// Enrich replaces draft content with the article page text when full
// content is enabled. A page that cannot be read keeps the feed content.
func (a *Feed) Enrich(ctx context.Context, src model.Source, drafts []model.Article) {
	if !a.opts.FullContent {
		return
	}
	for i := range drafts {
		if ctx.Err() != nil {
			return
		}
		doc, _, err := a.fetcher.Document(ctx, drafts[i].URL)
		if err != nil {
			a.log.Warn("full content fetch failed", "source_id", src.ID, "url", drafts[i].URL, "error", err)
			continue
		}
		if text := extract.Content(doc, FollowUpContentLimit); text != "" {
			drafts[i].Content = &text
		}
	}
}

// entryLink returns the entry link, falling back to a URL-shaped GUID.
func entryLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	if guid := strings.TrimSpace(item.GUID); strings.HasPrefix(guid, "http") {
		return guid
	}
	return ""
}

// entryTime tries the date shapes feeds use: parsed published, parsed
// updated, then the raw strings and Dublin Core dates.
func entryTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}
	if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		return &t
	}
	raw := []string{item.Published, item.Updated}
	if item.DublinCoreExt != nil {
		raw = append(raw, item.DublinCoreExt.Date...)
	}
	for _, s := range raw {
		if t, ok := extract.ParseDate(s); ok {
			return &t
		}
	}
	return nil
}
