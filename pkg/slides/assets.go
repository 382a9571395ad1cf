package slides

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"
)

// AssetFetcher loads images referenced by sections.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// HTTPAssetFetcher downloads images over HTTP(S).
type HTTPAssetFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPAssetFetcher creates a fetcher with the given per-request timeout.
func NewHTTPAssetFetcher(timeout time.Duration) *HTTPAssetFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPAssetFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: 20 << 20,
	}
}

// Fetch downloads and decodes the image at url.
func (f *HTTPAssetFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid asset url %q: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch asset %q: status %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode asset %q: %w", url, err)
	}
	return img, nil
}
