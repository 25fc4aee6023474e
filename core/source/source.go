// Package source loads report data from a local file or an HTTP(S) URL.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gaurav-prasanna/payreport/core/report"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "payreport/1.0"
)

// MaxBodyBytes caps payloads read from the network.
const MaxBodyBytes = 10 << 20

// Loader reads report data.
type Loader struct {
	client *http.Client
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// New creates a Loader with a sensible timeout.
func New(opts ...Option) *Loader {
	l := &Loader{client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsURL reports whether location is fetched over HTTP.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load decodes and validates report data from a file path or URL.
func (l *Loader) Load(ctx context.Context, location string) (*report.Data, error) {
	zerolog.Ctx(ctx).Debug().Str("source", location).Msg("loading report data")
	if IsURL(location) {
		return l.fetch(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", location, err)
	}
	defer f.Close()

	d, err := report.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return d, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (*report.Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	d, err := report.Decode(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return d, nil
}
