// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"localnews/internal/model"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrInvalidPriority is returned for analysis priorities outside 1..5.
var ErrInvalidPriority = errors.New("priority must be between 1 and 5")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateSource(ctx context.Context, src *model.Source) error
	GetSource(ctx context.Context, id int64) (*model.Source, error)
	ListSources(ctx context.Context) ([]model.Source, error)
	ListSourcesByCity(ctx context.Context, city string) ([]model.Source, error)
	FindSourceByWebsite(ctx context.Context, websiteURL string) (*model.Source, error)
	UpdateFeedURL(ctx context.Context, id int64, feedURL string) error

	// ExistingURLs returns the URLs already stored for a source.
	ExistingURLs(ctx context.Context, sourceID int64) (map[string]struct{}, error)
	// InsertArticles stores drafts and returns how many rows were new.
	// A draft whose (source, url) pair exists is ignored.
	InsertArticles(ctx context.Context, drafts []model.Article) (int, error)
	ListArticles(ctx context.Context, sourceID int64) ([]model.Article, error)

	ListArticlesMissingMarket(ctx context.Context) ([]model.Article, error)
	SetMarket(ctx context.Context, id int64, market string) error
	ListArticlesPendingAccess(ctx context.Context) ([]model.Article, error)
	SetAccessible(ctx context.Context, id int64, accessible bool) error
	// UpdateAnalysis writes the non-nil analysis fields onto a stored article.
	UpdateAnalysis(ctx context.Context, id int64, a model.Analysis) error

	Close() error
}
