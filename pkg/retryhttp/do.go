package retryhttp

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/packradar/packradar/pkg/core"
)

// MaxAttempts bounds retry attempts regardless of config; a fetcher that
// still fails after this many tries should surface the error rather than
// hold up the caller indefinitely.
const MaxAttempts = 3

// Client performs HTTP requests with retry-on-failure, shared by every
// per-registry fetcher in pkg/registry so they all honor the same backoff
// and Retry-After handling instead of each rolling their own loop.
type Client struct {
	HTTP   *http.Client
	Config Config
	Logger core.Logger
}

// New builds a Client with sane fetcher-path defaults.
func New(httpClient *http.Client, logger core.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Client{HTTP: httpClient, Config: DefaultConfig(), Logger: logger}
}

// Retryable reports whether an HTTP status code should be retried: 429 and
// any 5xx, mirroring the set of responses registries return for
// rate-limiting and transient upstream failure.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do issues req, retrying on network errors and 429 responses up to
// MaxAttempts in total, and retrying a 5xx response once. The last
// attempt's response is returned with its body unread. req.Body, if
// non-nil, must support GetBody for retries to re-send it; registry
// fetchers only ever issue GET requests so this is not exercised in
// practice. A Retry-After response header, when present, overrides the
// computed backoff interval.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		resp, err := c.HTTP.Do(req.WithContext(ctx))
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}
		if attempt == MaxAttempts || (err == nil && resp.StatusCode >= 500 && attempt == 2) {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}

		wait := c.Config.Interval(attempt)
		if err != nil {
			lastErr = err
			c.Logger.Debug("retryhttp: attempt %d for %s failed: %v, retrying in %s", attempt, req.URL, err, wait)
		} else {
			lastErr = nil
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				wait = ra
			}
			c.Logger.Debug("retryhttp: attempt %d for %s returned %d, retrying in %s", attempt, req.URL, resp.StatusCode, wait)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// retryAfter parses a Retry-After header as either a delta-seconds integer
// or an HTTP-date; it returns 0 (meaning "use computed backoff") when the
// header is absent or unparseable.
func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
