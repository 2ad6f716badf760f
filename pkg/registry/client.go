package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/packradar/packradar/pkg/core"
	"github.com/packradar/packradar/pkg/perrors"
	"github.com/packradar/packradar/pkg/retryhttp"
)

// newSharedHTTPClient builds the one HTTP client a Client hands to every
// Fetcher built from it: connection pooling and identical timeouts across
// registries, per spec §4.4.
func newSharedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Client is the shared dependency every per-registry Fetcher is built
// from: one retrying HTTP client plus the host-keyed rate limiter set.
type Client struct {
	HTTP     *retryhttp.Client
	limiters *limiterSet
	logger   core.Logger
	userAgent string
}

// NewClient constructs the shared client used to build every Fetcher.
func NewClient(logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Client{
		HTTP:      retryhttp.New(newSharedHTTPClient(), logger),
		limiters:  newLimiterSet(),
		logger:    logger,
		userAgent: "packradar/1.0 (+https://github.com/packradar/packradar)",
	}
}

// GetJSON issues a GET against url, rate-limited by host's budget and
// retried, returning the raw response body. A 404 becomes
// perrors.ErrNotFound; a 429 still present after the retries becomes
// perrors.ErrRateLimited; any other non-2xx becomes a KindRegistryProtocol
// error.
func (c *Client) GetJSON(ctx context.Context, host, url string) ([]byte, error) {
	if err := c.limiters.wait(ctx, host); err != nil {
		return nil, perrors.E(perrors.KindTimeout, "registry.GetJSON", err)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, perrors.E(perrors.KindNetwork, "registry.GetJSON", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return nil, perrors.E(perrors.KindNetwork, "registry.GetJSON", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, perrors.E(perrors.KindNetwork, "registry.GetJSON", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, perrors.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, perrors.ErrRateLimited
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	default:
		return nil, perrors.E(perrors.KindRegistryProtocol, "registry.GetJSON",
			fmt.Errorf("%s returned %d", url, resp.StatusCode))
	}
}
