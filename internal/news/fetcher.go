package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPFetcher pulls the current news batch from a feed endpoint that
// returns raw items as a JSON array.
type HTTPFetcher struct {
	url  string
	http *http.Client
}

// NewHTTPFetcher creates a fetcher. An empty URL yields empty batches,
// which disables news blocking without special-casing callers.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the feed's current items.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]RawItem, error) {
	if f.url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch news: status %d", resp.StatusCode)
	}

	var items []RawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}
	return items, nil
}
