// Package fetcher downloads and parses data from the upstream HTTP feeds:
// JSON APIs, full-market JSON snapshot feeds, and open-data CSV files.
package fetcher

import (
	"context"
	"io"
)

// Fetcher defines the interface for talking to upstream data sources.
type Fetcher interface {
	// Get fetches the URL and returns the raw response body.
	Get(ctx context.Context, url string) ([]byte, error)

	// PostJSON sends a JSON payload and returns the raw response body.
	// The body is returned even for upstreams that answer with markup
	// instead of JSON, so callers can classify hostile responses.
	PostJSON(ctx context.Context, url string, payload any) ([]byte, error)

	// Download fetches the URL and returns the response body as a stream,
	// for feeds too large to buffer.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}
