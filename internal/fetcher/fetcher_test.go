package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	lastReq    *http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func TestFeed(t *testing.T) {
	xml := loadFixture(t, "../../testdata/sample.xml")
	netErr := &url.Error{Op: "Get", URL: "https://example.com/rss", Err: io.ErrUnexpectedEOF}

	tests := []struct {
		name          string
		transport     *mockTransport
		wantTitle     string
		wantItems     int
		wantErr       bool
		wantTransient bool
		wantMalformed bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitle: "Hays Daily Wire",
			wantItems: 5,
		},
		{
			name:      "not found is permanent",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:          "server error is transient",
			transport:     &mockTransport{body: "oops", statusCode: 503},
			wantErr:       true,
			wantTransient: true,
		},
		{
			name:          "network error is transient",
			transport:     &mockTransport{err: netErr},
			wantErr:       true,
			wantTransient: true,
		},
		{
			name:          "invalid xml is malformed",
			transport:     &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:       true,
			wantMalformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport)
			feed, err := f.Feed(context.Background(), "https://example.com/rss")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := IsTransient(err); got != tt.wantTransient {
					t.Errorf("IsTransient(%v) = %v, want %v", err, got, tt.wantTransient)
				}
				if got := errors.Is(err, ErrMalformed); got != tt.wantMalformed {
					t.Errorf("errors.Is(ErrMalformed) = %v, want %v", got, tt.wantMalformed)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantTitle, feed.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantItems, len(feed.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetSetsUserAgentAndCapsBody(t *testing.T) {
	m := &mockTransport{body: strings.Repeat("x", 100), statusCode: 200}
	f := NewWithOptions(m, Options{UserAgent: "test-agent", MaxBytes: 10})

	body, err := f.Get(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(body) != 10 {
		t.Errorf("body length %d, want 10", len(body))
	}
	if got := m.lastReq.Header.Get("User-Agent"); got != "test-agent" {
		t.Errorf("User-Agent = %q", got)
	}
	if _, ok := m.lastReq.Context().Deadline(); !ok {
		t.Error("request carries no deadline")
	}
}

func TestGetRejectsInvalidURL(t *testing.T) {
	f := New(&mockTransport{statusCode: 200})
	_, err := f.Get(context.Background(), "not a url")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}

func TestDocument(t *testing.T) {
	html := `<html><head><title>T</title></head><body><h1>Headline</h1></body></html>`
	f := New(&mockTransport{body: html, statusCode: 200})

	doc, raw, err := f.Document(context.Background(), "https://example.com/story")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Headline" {
		t.Errorf("h1 = %q", got)
	}
	if string(raw) != html {
		t.Error("raw body not returned")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &StatusError{Code: 429}, true},
		{"500", fmt.Errorf("wrap: %w", &StatusError{Code: 500}), true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"malformed", fmt.Errorf("parse: %w", ErrMalformed), false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"url error", &url.Error{Op: "Get", URL: "u", Err: errors.New("connection refused")}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, IsTransient(tt.err)); diff != "" {
				t.Errorf("IsTransient mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHostLimiter(t *testing.T) {
	ctx := context.Background()
	h := NewHostLimiter(200 * time.Millisecond)

	if err := h.Wait(ctx, "a.example.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := h.Wait(ctx, "b.example.com"); err != nil {
		t.Fatalf("other host wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("other host waited %v", elapsed)
	}

	start = time.Now()
	if err := h.Wait(ctx, "A.example.com"); err != nil {
		t.Fatalf("same host wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("same host waited only %v", elapsed)
	}
}

func TestHostLimiterHonoursCancellation(t *testing.T) {
	h := NewHostLimiter(time.Hour)
	if err := h.Wait(context.Background(), "slow.example.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Wait(ctx, "slow.example.com"); err == nil {
		t.Error("expected error for a wait beyond the deadline")
	}
}

func TestHostLimiterDisabled(t *testing.T) {
	h := NewHostLimiter(0)
	for range 100 {
		if err := h.Wait(context.Background(), "x"); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
}
