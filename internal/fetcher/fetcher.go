// Package fetcher handles polite HTTP downloading of feeds and pages.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrMalformed marks a body that could not be parsed as the expected format.
var ErrMalformed = errors.New("malformed document")

// StatusError is returned for any response other than 200 OK.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// IsTransient reports whether err is worth retrying on a later run:
// timeouts, network failures, 429 and 5xx responses. Other statuses and
// malformed bodies are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, ErrMalformed) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// Options tunes a Fetcher. Zero values select the defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	// HostDelay is the minimum spacing between requests to one host.
	HostDelay time.Duration
}

// Fetcher downloads feeds and pages.
type Fetcher struct {
	client    HTTPClient
	userAgent string
	timeout   time.Duration
	maxBytes  int64
	hosts     *HostLimiter
}

// New creates a Fetcher with the given HTTP client and default options.
func New(client HTTPClient) *Fetcher {
	return NewWithOptions(client, Options{})
}

// NewWithOptions creates a Fetcher with explicit options.
func NewWithOptions(client HTTPClient, opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; XanaduBot/1.0)"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 * 1024 * 1024
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		maxBytes:  opts.MaxBytes,
		hosts:     NewHostLimiter(opts.HostDelay),
	}
}

// Get downloads the body at rawURL, waiting for the host's rate limit first.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, ErrMalformed)
	}

	if err := f.hosts.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", u.Host, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Feed downloads and parses an RSS, Atom or JSON feed.
func (f *Fetcher) Feed(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w: %w", ErrMalformed, err)
	}
	return feed, nil
}

// Document downloads an HTML page and parses it for querying.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, []byte, error) {
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w: %w", ErrMalformed, err)
	}
	return doc, body, nil
}
