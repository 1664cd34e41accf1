// Package backfill fills market and accessibility fields on stored articles
// that were persisted without them.
package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"localnews/internal/access"
	"localnews/internal/market"
	"localnews/internal/model"
)

// MarketStore is the storage market backfill needs.
type MarketStore interface {
	ListArticlesMissingMarket(ctx context.Context) ([]model.Article, error)
	SetMarket(ctx context.Context, id int64, market string) error
}

// AccessStore is the storage access backfill needs.
type AccessStore interface {
	ListArticlesPendingAccess(ctx context.Context) ([]model.Article, error)
	SetAccessible(ctx context.Context, id int64, accessible bool) error
}

// Resolver maps an optional place name to a market.
type Resolver interface {
	ResolveOptional(ctx context.Context, location *string) string
}

// Checker finds the indicator that marks article text as unreadable.
type Checker interface {
	Blocked(t access.Text) (access.Indicator, bool)
}

// Result counts what a backfill pass did.
type Result struct {
	Checked int
	Updated int
	// ByValue counts updates per assigned market, or "accessible" and
	// "blocked" for access backfill.
	ByValue map[string]int
}

// Markets resolves a market for every article without one. Articles with
// no location get market.AtLarge.
func Markets(ctx context.Context, store MarketStore, resolver Resolver, log *slog.Logger) (Result, error) {
	articles, err := store.ListArticlesMissingMarket(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list articles missing market: %w", err)
	}

	res := Result{Checked: len(articles), ByValue: make(map[string]int)}
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		m := market.AtLarge
		if a.Location != nil {
			m = resolver.ResolveOptional(ctx, a.Location)
		}
		if err := store.SetMarket(ctx, a.ID, m); err != nil {
			return res, fmt.Errorf("set market for article %d: %w", a.ID, err)
		}
		res.Updated++
		res.ByValue[m]++
		log.Debug("market assigned", "article_id", a.ID, "market", m)
	}

	log.Info("market backfill finished", "checked", res.Checked, "updated", res.Updated)
	return res, nil
}

// Access sets is_accessible for every article where it is unset.
func Access(ctx context.Context, store AccessStore, checker Checker, log *slog.Logger) (Result, error) {
	articles, err := store.ListArticlesPendingAccess(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list articles pending access: %w", err)
	}

	res := Result{Checked: len(articles), ByValue: make(map[string]int)}
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ind, blocked := checker.Blocked(access.Text{Bullet: deref(a.Bullet), Content: deref(a.Content)})
		ok := !blocked
		if err := store.SetAccessible(ctx, a.ID, ok); err != nil {
			return res, fmt.Errorf("set accessible for article %d: %w", a.ID, err)
		}
		res.Updated++
		if ok {
			res.ByValue["accessible"]++
		} else {
			res.ByValue["blocked"]++
			log.Debug("article blocked", "article_id", a.ID, "url", a.URL, "indicator", ind.Value)
		}
	}

	log.Info("access backfill finished", "checked", res.Checked, "blocked", res.ByValue["blocked"])
	return res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
