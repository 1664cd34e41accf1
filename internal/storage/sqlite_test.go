package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"localnews/internal/model"
)

var ignoreSourceTS = cmpopts.IgnoreFields(model.Source{}, "CreatedAt")
var ignoreArticleIDs = cmpopts.IgnoreFields(model.Article{}, "ID")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createSource(t *testing.T, s *SQLite, src model.Source) model.Source {
	t.Helper()
	if err := s.CreateSource(context.Background(), &src); err != nil {
		t.Fatalf("create source: %v", err)
	}
	return src
}

func ptrTime(t time.Time) *time.Time { return &t }
func ptrInt(i int) *int { return &i }

func TestSourceCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name string
		src  model.Source
	}{
		{
			name: "feed source",
			src: model.Source{
				Name:       "Hays Daily News",
				City:       "Hays",
				WebsiteURL: "https://hdnews.net",
				FeedURL:    "https://hdnews.net/rss",
			},
		},
		{
			name: "scrape source",
			src: model.Source{
				Name:        "Hutch Post",
				City:        "Hutchinson",
				WebsiteURL:  "https://hutchpost.com",
				FeedURL:     "scrape:https://hutchpost.com",
				AssumeLocal: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src
			if err := s.CreateSource(ctx, &src); err != nil {
				t.Fatalf("create: %v", err)
			}
			if src.ID == 0 {
				t.Fatal("expected non-zero ID")
			}

			got, err := s.GetSource(ctx, src.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}

			want := tt.src
			want.ID = src.ID
			if diff := cmp.Diff(want, *got, ignoreSourceTS); diff != "" {
				t.Errorf("GetSource mismatch (-want +got):\n%s", diff)
			}
		})
	}

	all, err := s.ListSources(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListSources returned %d sources, want 2", len(all))
	}
}

func TestGetSourceNotFound(t *testing.T) {
	s := newTestDB(t)
	if _, err := s.GetSource(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSourceLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	hays := createSource(t, s, model.Source{Name: "Hays Post", City: "Hays", WebsiteURL: "https://hayspost.com/"})
	createSource(t, s, model.Source{Name: "KSCB", City: "Liberal", WebsiteURL: "https://kscbnews.net"})
	hdn := createSource(t, s, model.Source{Name: "Hays Daily News", City: "hays", WebsiteURL: "https://hdnews.net"})

	byCity, err := s.ListSourcesByCity(ctx, " HAYS ")
	if err != nil {
		t.Fatalf("list by city: %v", err)
	}
	var ids []int64
	for _, src := range byCity {
		ids = append(ids, src.ID)
	}
	if diff := cmp.Diff([]int64{hays.ID, hdn.ID}, ids); diff != "" {
		t.Errorf("ListSourcesByCity mismatch (-want +got):\n%s", diff)
	}

	found, err := s.FindSourceByWebsite(ctx, "https://HaysPost.com")
	if err != nil {
		t.Fatalf("find by website: %v", err)
	}
	if found.ID != hays.ID {
		t.Errorf("FindSourceByWebsite returned source %d, want %d", found.ID, hays.ID)
	}

	if _, err := s.FindSourceByWebsite(ctx, "https://unknown.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := s.UpdateFeedURL(ctx, hays.ID, "https://hayspost.com/feed"); err != nil {
		t.Fatalf("update feed url: %v", err)
	}
	got, err := s.GetSource(ctx, hays.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FeedURL != "https://hayspost.com/feed" {
		t.Errorf("FeedURL = %q, want the updated URL", got.FeedURL)
	}
	if err := s.UpdateFeedURL(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown source, got %v", err)
	}
}

func TestInsertArticlesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	src := createSource(t, s, model.Source{Name: "Salina Post", City: "Salina"})

	published := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	fetched := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	drafts := []model.Article{
		{
			SourceID:     src.ID,
			Title:        "Bridge Reopens",
			URL:          "https://salinapost.com/posts/bridge",
			Content:      model.StringPtr("The bridge reopened."),
			PublishedAt:  ptrTime(published),
			FetchedAt:    fetched,
			Location:     model.StringPtr("Salina"),
			Market:       model.StringPtr("Salina"),
			IsLocal:      model.BoolPtr(true),
			IsAccessible: model.BoolPtr(false),
			Origin:       model.OriginScrape,
		},
		{
			SourceID:  src.ID,
			Title:     "Feed Entry",
			URL:       "https://salinapost.com/posts/feed-entry",
			FetchedAt: fetched,
			Origin:    model.OriginFeed,
		},
	}

	n, err := s.InsertArticles(ctx, drafts)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted %d, want 2", n)
	}

	got, err := s.ListArticles(ctx, src.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(drafts, got, ignoreArticleIDs); diff != "" {
		t.Errorf("ListArticles mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertArticlesIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	a := createSource(t, s, model.Source{Name: "A"})
	b := createSource(t, s, model.Source{Name: "B"})

	shared := "https://example.com/shared"
	first, err := s.InsertArticles(ctx, []model.Article{
		{SourceID: a.ID, Title: "One", URL: shared},
		{SourceID: a.ID, Title: "One again", URL: shared},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first != 1 {
		t.Errorf("first insert = %d, want 1", first)
	}

	second, err := s.InsertArticles(ctx, []model.Article{
		{SourceID: a.ID, Title: "One", URL: shared},
		{SourceID: b.ID, Title: "Other source", URL: shared},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if second != 1 {
		t.Errorf("second insert = %d, want 1 (same URL under another source)", second)
	}

	urls, err := s.ExistingURLs(ctx, b.ID)
	if err != nil {
		t.Fatalf("existing urls: %v", err)
	}
	if diff := cmp.Diff(map[string]struct{}{shared: {}}, urls); diff != "" {
		t.Errorf("ExistingURLs mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertArticlesEmpty(t *testing.T) {
	s := newTestDB(t)
	n, err := s.InsertArticles(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("InsertArticles(nil) = %d, %v; want 0, nil", n, err)
	}
}

func TestMarketBackfillQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	src := createSource(t, s, model.Source{Name: "A"})

	if _, err := s.InsertArticles(ctx, []model.Article{
		{SourceID: src.ID, Title: "Has market", URL: "https://e.com/1", Market: model.StringPtr("Hays")},
		{SourceID: src.ID, Title: "No market", URL: "https://e.com/2", Location: model.StringPtr("Ellis")},
		{SourceID: src.ID, Title: "Nothing", URL: "https://e.com/3"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	missing, err := s.ListArticlesMissingMarket(ctx)
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}
	var titles []string
	for _, a := range missing {
		titles = append(titles, a.Title)
	}
	if diff := cmp.Diff([]string{"No market", "Nothing"}, titles); diff != "" {
		t.Errorf("ListArticlesMissingMarket mismatch (-want +got):\n%s", diff)
	}

	for _, a := range missing {
		if err := s.SetMarket(ctx, a.ID, "At Large"); err != nil {
			t.Fatalf("set market: %v", err)
		}
	}
	missing, err = s.ListArticlesMissingMarket(ctx)
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("%d articles still missing a market", len(missing))
	}
	if err := s.SetMarket(ctx, 999, "Hays"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAccessQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	src := createSource(t, s, model.Source{Name: "A"})

	if _, err := s.InsertArticles(ctx, []model.Article{
		{SourceID: src.ID, Title: "Known", URL: "https://e.com/1", IsLocal: model.BoolPtr(true), IsAccessible: model.BoolPtr(true)},
		{SourceID: src.ID, Title: "Pending", URL: "https://e.com/2", IsLocal: model.BoolPtr(true)},
		{SourceID: src.ID, Title: "Unanalyzed", URL: "https://e.com/3"},
		{SourceID: src.ID, Title: "Not local", URL: "https://e.com/4", IsLocal: model.BoolPtr(false)},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.ListArticlesPendingAccess(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "Pending" {
		t.Fatalf("pending = %+v, want the single local unset article", pending)
	}

	if err := s.SetAccessible(ctx, pending[0].ID, false); err != nil {
		t.Fatalf("set accessible: %v", err)
	}
	all, err := s.ListArticles(ctx, src.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(model.BoolPtr(false), all[1].IsAccessible); diff != "" {
		t.Errorf("IsAccessible mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateAnalysis(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	src := createSource(t, s, model.Source{Name: "A"})

	if _, err := s.InsertArticles(ctx, []model.Article{
		{SourceID: src.ID, Title: "Story", URL: "https://e.com/1", Location: model.StringPtr("Hays")},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	stored, err := s.ListArticles(ctx, src.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	id := stored[0].ID

	tests := []struct {
		name     string
		analysis model.Analysis
		wantErr  error
		check    func(t *testing.T, a model.Article)
	}{
		{
			name: "sets fields",
			analysis: model.Analysis{
				Market:   model.StringPtr("Hays"),
				IsLocal:  model.BoolPtr(true),
				Bullet:   model.StringPtr("Hays adopts budget."),
				Priority: ptrInt(4),
			},
			check: func(t *testing.T, a model.Article) {
				want := model.Article{
					ID:       id,
					SourceID: src.ID,
					Title:    "Story",
					URL:      "https://e.com/1",
					Location: model.StringPtr("Hays"),
					Market:   model.StringPtr("Hays"),
					IsLocal:  model.BoolPtr(true),
					Bullet:   model.StringPtr("Hays adopts budget."),
					Priority: ptrInt(4),
					Origin:   model.OriginFeed,
				}
				if diff := cmp.Diff(want, a, cmpopts.IgnoreFields(model.Article{}, "FetchedAt")); diff != "" {
					t.Errorf("article mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:     "nil fields keep values",
			analysis: model.Analysis{Location: model.StringPtr("Ellis")},
			check: func(t *testing.T, a model.Article) {
				if *a.Location != "Ellis" || *a.Market != "Hays" || *a.Priority != 4 {
					t.Errorf("unexpected article after partial update: %+v", a)
				}
			},
		},
		{
			name:     "rejects priority out of range",
			analysis: model.Analysis{Priority: ptrInt(9)},
			wantErr:  ErrInvalidPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpdateAnalysis(ctx, id, tt.analysis)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			got, err := s.ListArticles(ctx, src.ID)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			tt.check(t, got[0])
		})
	}

	if err := s.UpdateAnalysis(ctx, 999, model.Analysis{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
