package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mini-rodalies-3d/transit/internal/apperr"
)

// Fetcher abstracts the HTTP GET the worker performs per feed URL, so tests
// can inject canned responses without a live server.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// HTTPFetcher is the production Fetcher: a plain GET bounded by its own
// per-call timeout, independent of the worker's overall deadline.
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.New(apperr.KindFeedUnavailable, "ingest.HTTPFetcher.Fetch", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, apperr.New(apperr.KindFeedUnavailable, "ingest.HTTPFetcher.Fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.KindFeedUnavailable, "ingest.HTTPFetcher.Fetch", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.New(apperr.KindFeedUnavailable, "ingest.HTTPFetcher.Fetch", err)
	}
	return body, nil
}
