// Package pipeline runs the per-source ingestion state machine:
// fetch, adapt, dedupe, classify and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"localnews/internal/adapter"
	"localnews/internal/model"
)

// Stage names the step a source failed in.
type Stage string

// Pipeline stages that can fail a source.
const (
	StageFetch   Stage = "fetch"
	StageAdapt   Stage = "adapt"
	StageDedupe  Stage = "dedupe"
	StagePersist Stage = "persist"
)

// ErrNoLocator is returned for sources with neither a feed URL nor a
// scrape locator.
var ErrNoLocator = errors.New("source has no feed locator")

// Store is the storage the pipeline reads and writes.
type Store interface {
	ListSources(ctx context.Context) ([]model.Source, error)
	ExistingURLs(ctx context.Context, sourceID int64) (map[string]struct{}, error)
	InsertArticles(ctx context.Context, drafts []model.Article) (int, error)
}

// Resolver maps a place name to a market.
type Resolver interface {
	Resolve(ctx context.Context, location string) string
}

// Options tune a Pipeline.
type Options struct {
	// Workers bounds how many sources are ingested at once.
	Workers int
	// ClassifyFeedDrafts gives feed drafts the source city as location and
	// resolves its market. When false their market is left for analysis.
	ClassifyFeedDrafts bool
}

// Report is the outcome of ingesting one source.
type Report struct {
	SourceID int64
	Name     string
	Adapter  string
	// Stage is set when the source failed.
	Stage    Stage
	Fetched  int
	New      int
	Inserted int
	Duration time.Duration
	Err      error
}

// Summary aggregates the reports of one run.
type Summary struct {
	Reports  []Report
	Fetched  int
	Inserted int
	Failed   int
}

func summarize(reports []Report) Summary {
	s := Summary{Reports: reports}
	for _, r := range reports {
		s.Fetched += r.Fetched
		s.Inserted += r.Inserted
		if r.Err != nil {
			s.Failed++
		}
	}
	return s
}

// Pipeline ingests sources into the store.
type Pipeline struct {
	store    Store
	registry *adapter.Registry
	feeds    adapter.Adapter
	resolver Resolver
	log      *slog.Logger
	opts     Options
}

// New creates a Pipeline. registry serves scrape locators and feeds serves
// feed URLs. resolver may be nil to skip classification.
func New(store Store, registry *adapter.Registry, feeds adapter.Adapter, resolver Resolver, log *slog.Logger, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		store:    store,
		registry: registry,
		feeds:    feeds,
		resolver: resolver,
		log:      log,
		opts:     opts,
	}
}

// Run ingests every stored source. It fails only when the sources cannot be
// listed; per-source failures are in the summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sources, err := p.store.ListSources(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list sources: %w", err)
	}
	return p.RunSources(ctx, sources), nil
}

// RunSources ingests sources concurrently, bounded by Options.Workers.
func (p *Pipeline) RunSources(ctx context.Context, sources []model.Source) Summary {
	reports := make([]Report, len(sources))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			reports[i] = p.Ingest(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	s := summarize(reports)
	p.log.Info("ingestion finished",
		"sources", len(sources), "fetched", s.Fetched, "inserted", s.Inserted, "failed", s.Failed)
	return s
}

// Ingest runs one source through every stage.
func (p *Pipeline) Ingest(ctx context.Context, src model.Source) Report {
	start := time.Now()
	r := p.ingest(ctx, src)
	r.Duration = time.Since(start)

	if r.Err == nil {
		p.log.Info("source ingested", "source_id", src.ID, "name", src.Name, "adapter", r.Adapter,
			"fetched", r.Fetched, "new", r.New, "inserted", r.Inserted)
	}
	return r
}

func (p *Pipeline) ingest(ctx context.Context, src model.Source) Report {
	r := Report{SourceID: src.ID, Name: src.Name}

	a, err := p.adapterFor(src)
	if err != nil {
		p.log.Warn("extraction miss", "source_id", src.ID, "name", src.Name, "reason", "no adapter", "error", err)
		return p.fail(r, StageAdapt, err)
	}
	r.Adapter = a.Name()

	drafts, err := a.Extract(ctx, src)
	if err != nil {
		p.log.Warn("fetch failed", "source_id", src.ID, "name", src.Name, "error", err)
		return p.fail(r, StageFetch, err)
	}
	drafts = usable(drafts)
	r.Fetched = len(drafts)

	existing, err := p.store.ExistingURLs(ctx, src.ID)
	if err != nil {
		p.log.Error("load existing urls", "source_id", src.ID, "error", err)
		return p.fail(r, StageDedupe, err)
	}
	drafts = dedupe(drafts, existing)
	r.New = len(drafts)
	if len(drafts) == 0 {
		return r
	}

	if e, ok := a.(adapter.Enricher); ok {
		e.Enrich(ctx, src, drafts)
	}

	p.classify(ctx, src, drafts)

	inserted, err := p.store.InsertArticles(ctx, drafts)
	if err != nil {
		p.log.Error("persist articles", "source_id", src.ID, "name", src.Name, "count", len(drafts), "error", err)
		return p.fail(r, StagePersist, err)
	}
	r.Inserted = inserted
	return r
}

func (p *Pipeline) fail(r Report, stage Stage, err error) Report {
	r.Stage = stage
	r.Err = err
	return r
}

func (p *Pipeline) adapterFor(src model.Source) (adapter.Adapter, error) {
	if src.IsScrape() {
		if p.registry == nil {
			return nil, fmt.Errorf("%w: %s", adapter.ErrNoAdapter, src.FeedURL)
		}
		return p.registry.Lookup(src.ScrapeURL())
	}
	if strings.TrimSpace(src.FeedURL) == "" {
		return nil, ErrNoLocator
	}
	if p.feeds == nil || !p.feeds.Matches(src.FeedURL) {
		return nil, fmt.Errorf("%w: %s", adapter.ErrNoAdapter, src.FeedURL)
	}
	return p.feeds, nil
}

// classify resolves markets for drafts that carry a location. Feed drafts
// only get one when ClassifyFeedDrafts is set.
func (p *Pipeline) classify(ctx context.Context, src model.Source, drafts []model.Article) {
	if p.resolver == nil {
		return
	}
	for i := range drafts {
		d := &drafts[i]
		if d.Market != nil {
			continue
		}
		if d.Location == nil && d.Origin == model.OriginFeed && p.opts.ClassifyFeedDrafts {
			d.Location = model.StringPtr(src.City)
		}
		if d.Location == nil {
			continue
		}
		m := p.resolver.Resolve(ctx, *d.Location)
		d.Market = &m
	}
}

// usable drops drafts with an empty title or URL.
func usable(drafts []model.Article) []model.Article {
	out := drafts[:0]
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		d.URL = strings.TrimSpace(d.URL)
		if d.Title == "" || d.URL == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// dedupe drops drafts whose URL is stored or repeated within the batch.
func dedupe(drafts []model.Article, existing map[string]struct{}) []model.Article {
	seen := make(map[string]struct{}, len(drafts))
	out := make([]model.Article, 0, len(drafts))
	for _, d := range drafts {
		if _, ok := existing[d.URL]; ok {
			continue
		}
		if _, ok := seen[d.URL]; ok {
			continue
		}
		seen[d.URL] = struct{}{}
		out = append(out, d)
	}
	return out
}
