package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"localnews/internal/model"
)

// Cache memoizes successful geocoder results for the life of the process.
// Entries are evicted least-recently-used once size is reached. Failures
// are never cached. Safe for concurrent use.
type Cache struct {
	geocoder Geocoder
	region   string
	entries  *lru.Cache[string, model.Point]
	flight   singleflight.Group
	log      *slog.Logger
}

// NewCache wraps g. Every query is qualified with region before lookup.
func NewCache(g Geocoder, region string, size int, log *slog.Logger) (*Cache, error) {
	entries, err := lru.New[string, model.Point](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{
		geocoder: g,
		region:   region,
		entries:  entries,
		log:      log,
	}, nil
}

// Qualify appends the region qualifier to place.
func Qualify(place, region string) string {
	place = strings.TrimSpace(place)
	if region == "" {
		return place
	}
	return place + ", " + region
}

// Lookup returns the coordinates for place. The second result is false on
// any failure: timeout, unavailable service, malformed reply or no match.
func (c *Cache) Lookup(ctx context.Context, place string) (model.Point, bool) {
	query := Qualify(place, c.region)
	if p, ok := c.entries.Get(query); ok {
		return p, true
	}

	v, err, _ := c.flight.Do(query, func() (any, error) {
		if p, ok := c.entries.Get(query); ok {
			return p, nil
		}
		p, err := c.geocoder.Geocode(ctx, query)
		if err != nil {
			return nil, err
		}
		c.entries.Add(query, p)
		return p, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.log.Debug("geocode miss", "query", query)
		} else {
			c.log.Warn("geocode failed", "query", query, "error", err)
		}
		return model.Point{}, false
	}
	return v.(model.Point), true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
