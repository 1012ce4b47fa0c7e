// Package fetch downloads image bytes for fingerprinting.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"repost-bot/errs"
	"repost-bot/observability"
)

// Fetcher performs bounded HTTP GETs.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func New(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Get returns the body at url. An empty body or a non-2xx status yields a nil
// reader and no error. Bodies larger than the limit are refused the same way.
// source labels the fetch duration metric ("attachment" or "embed").
func (f *Fetcher) Get(ctx context.Context, url, source string) (io.Reader, error) {
	start := time.Now()
	defer func() {
		observability.ImageFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	// A URL that cannot be requested has no image behind it.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errs.E(errs.Transient, "fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, nil
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errs.E(errs.Transient, "fetch image", fmt.Errorf("reading %s: %w", url, err))
	}
	if len(data) == 0 || (f.maxBytes > 0 && int64(len(data)) > f.maxBytes) {
		return nil, nil
	}
	return bytes.NewReader(data), nil
}
