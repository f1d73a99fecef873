// Package fetch retrieves pages from the regulator site with rate limiting.
package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotFound reports that the requested detail page does not exist.
// Callers treat it as a normal condition and fall back to listing data.
var ErrNotFound = eris.New("fetch: page not found")

// Options configures the fetcher.
type Options struct {
	UserAgent      string
	Timeout        time.Duration
	RequestsPerSec float64
}

// Fetcher retrieves pages over HTTP, throttled by a shared rate limiter
// so the source site is never hammered.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a Fetcher with the given options.
func New(opts Options) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "recall-cli/1.0"
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		userAgent: opts.UserAgent,
	}
}

// Page fetches rawURL and returns the response body. Returns ErrNotFound
// on a 404 so callers can distinguish a missing detail page from a real
// failure.
func (f *Fetcher) Page(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		zap.L().Debug("fetch: page not found", zap.String("url", rawURL))
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("fetch: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: read body %s", rawURL)
	}
	return string(body), nil
}
