package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstreamFetchFailed marks a non-200 or transport-level failure
// resolving a requested filename. The HTTP fetch itself is an out-of-scope
// external collaborator — this wraps it behind the Fetcher interface so the
// handler and its tests don't depend on a live network.
var ErrUpstreamFetchFailed = errors.New("server: upstream fetch failed")

// Fetcher resolves a GET's filename into the octet stream to chunk and
// serve.
type Fetcher interface {
	Fetch(ctx context.Context, filename string) ([]byte, error)
}

// HTTPFetcher is the production Fetcher: a plain HTTP GET against the
// filename treated as a host[/path] target, matching the black-box
// "http://" + query behavior of the reference implementation.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, filename string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+filename, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetchFailed, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned status %d", ErrUpstreamFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetchFailed, err)
	}
	return body, nil
}
