// Package batch discovers report data sources for --all mode.
// A source is either a local directory of report JSON files or an index URL
// served by the report-computation service: a JSON manifest listing report
// URLs, or an HTML index page linking to them.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gaurav-prasanna/payreport/core/source"
	"github.com/rs/zerolog"
)

// maxReports bounds a single batch.
const maxReports = 1000

// manifest is the JSON index format.
type manifest struct {
	Reports []string `json:"reports"`
}

// Discoverer finds report locations.
type Discoverer struct {
	client *http.Client
}

// NewDiscoverer creates a Discoverer. A nil client gets a default timeout.
func NewDiscoverer(client *http.Client) *Discoverer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Discoverer{client: client}
}

// Discover queues the report locations under location, deduplicated, in
// discovery order.
func (d *Discoverer) Discover(ctx context.Context, location string) (*Queue, error) {
	var (
		locs []string
		err  error
	)
	if source.IsURL(location) {
		locs, err = d.fromIndex(ctx, location)
	} else {
		locs, err = fromDirectory(location)
	}
	if err != nil {
		return nil, err
	}

	queue := NewQueue()
	for _, l := range locs {
		if queue.Len() >= maxReports {
			zerolog.Ctx(ctx).Warn().Int("limit", maxReports).Msg("batch truncated")
			break
		}
		queue.Add(l)
	}
	return queue, nil
}

// fromDirectory walks dir for report files in lexical order.
func fromDirectory(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("reading batch source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("batch source %s is not a directory", dir)
	}

	var out []string
	err = filepath.WalkDir(dir, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() && path != dir && strings.HasPrefix(e.Name(), ".") {
			return filepath.SkipDir
		}
		if !e.IsDir() && IsReportSource(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return out, nil
}

// fromIndex fetches an index and returns the same-host report URLs it lists.
func (d *Discoverer) fromIndex(ctx context.Context, indexURL string) ([]string, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching index %s: %w", indexURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, source.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", indexURL, err)
	}
	if len(body) > source.MaxBodyBytes {
		return nil, fmt.Errorf("index %s exceeds %d bytes", indexURL, source.MaxBodyBytes)
	}

	var hrefs []string
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var m manifest
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		hrefs = m.Reports
	} else {
		if hrefs, err = extractLinks(string(body)); err != nil {
			return nil, fmt.Errorf("parsing index page: %w", err)
		}
	}

	var out []string
	for _, href := range hrefs {
		u := resolveURL(href, base)
		if u != "" && IsSameHost(u, base.Host) && IsReportSource(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

// extractLinks extracts all href values from <a> tags.
func extractLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	return links, nil
}

// resolveURL resolves a potentially relative URL against a base.
func resolveURL(href string, base *url.URL) string {
	if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
