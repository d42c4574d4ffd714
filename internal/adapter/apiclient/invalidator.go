// Package apiclient is the ETL-side client for the read API's cache
// invalidation endpoint.
package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Invalidator posts to the API's invalidate endpoint after a load so readers
// see fresh data before the cache window expires on its own.
// It implements pipeline.CacheInvalidator.
type Invalidator struct {
	httpClient *http.Client
	url        string
	key        string
}

// NewInvalidator creates an Invalidator for the given endpoint and shared key.
func NewInvalidator(url, key string, timeout time.Duration) *Invalidator {
	return &Invalidator{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		key:        key,
	}
}

// Invalidate posts the invalidation request.
func (i *Invalidator) Invalidate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, nil)
	if err != nil {
		return fmt.Errorf("build invalidate request: %w", err)
	}
	req.Header.Set("invalidate-cache-key", i.key)

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post invalidate: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invalidate returned status %d", resp.StatusCode)
	}
	return nil
}
