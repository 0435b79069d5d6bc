// Package ingest crawls the textbook site and loads its pages into the
// vector index.
package ingest

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type urlSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher using client.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 16<<20))
}

// SitemapURLs returns the page locations listed in the sitemap at url.
func (f *Fetcher) SitemapURLs(ctx context.Context, url string) ([]string, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseSitemap(body)
}

// ParseSitemap extracts <loc> entries from a sitemaps.org urlset.
func ParseSitemap(data []byte) ([]string, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap: %w", err)
	}

	urls := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

// PageText downloads url and returns its visible text.
func (f *Fetcher) PageText(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractText(bytes.NewReader(body))
}
