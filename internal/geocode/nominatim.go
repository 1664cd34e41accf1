// Package geocode resolves place names to coordinates through a rate-limited
// external geocoding service, memoizing successful lookups.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"localnews/internal/model"
)

// ErrNotFound is returned when the service has no match for a query.
var ErrNotFound = errors.New("geocode: no result")

// Geocoder resolves a free-text query to a single coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (model.Point, error)
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Nominatim queries an OpenStreetMap Nominatim search endpoint.
type Nominatim struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewNominatim creates a client for the service at baseURL. Requests are
// spaced at least interval apart; zero disables the spacing.
func NewNominatim(client HTTPClient, baseURL, userAgent string, timeout, interval time.Duration) *Nominatim {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Nominatim{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

type place struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the best match for query.
func (n *Nominatim) Geocode(ctx context.Context, query string) (model.Point, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return model.Point{}, fmt.Errorf("wait for rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return model.Point{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return model.Point{}, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.Point{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&places); err != nil {
		return model.Point{}, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return model.Point{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("parse lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("parse lon %q: %w", places[0].Lon, err)
	}
	return model.Point{Lat: lat, Lon: lon}, nil
}
