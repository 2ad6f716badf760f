package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// GoProxyFetcher talks to a Go module proxy (proxy.golang.org by default).
type GoProxyFetcher struct {
	client  *Client
	baseURL string
	host    string
}

// NewGoProxyFetcher builds a fetcher against baseURL.
func NewGoProxyFetcher(client *Client, host, baseURL string) *GoProxyFetcher {
	return &GoProxyFetcher{client: client, baseURL: baseURL, host: host}
}

func (f *GoProxyFetcher) Name() string { return f.host }

type goProxyInfo struct {
	Version string    `json:"Version"`
	Time    time.Time `json:"Time"`
}

// encodeModulePath applies the proxy protocol's escaping: every uppercase
// letter is replaced by "!" followed by its lowercase form, since module
// proxies are served from case-insensitive filesystems/object stores.
func encodeModulePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('!')
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Fetch queries @v/list for the full version set and @latest for the
// proxy's notion of the newest version (which may be a pseudo-version for
// modules with no tagged release; the engine's version algebra still
// governs latest_stable/latest_prerelease classification).
func (f *GoProxyFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	encoded := encodeModulePath(name)

	listBody, err := f.client.GetJSON(ctx, f.host, fmt.Sprintf("%s/%s/@v/list", f.baseURL, encoded))
	if err != nil {
		return nil, err
	}
	raw := strings.Fields(string(listBody))

	alg := version.For(ecosystem.Go)
	all := version.DedupDescending(alg, raw)

	releaseDates := make(map[string]time.Time, len(all))
	latestBody, err := f.client.GetJSON(ctx, f.host, fmt.Sprintf("%s/%s/@latest", f.baseURL, encoded))
	var latest string
	if err == nil {
		var info goProxyInfo
		if jsonErr := json.Unmarshal(latestBody, &info); jsonErr == nil {
			latest = info.Version
			if !info.Time.IsZero() {
				releaseDates[info.Version] = info.Time.UTC()
			}
		}
	}

	return &version.Info{
		LatestStable:     pickOr(firstNonPseudo(alg, all), latest),
		LatestPrerelease: version.LatestPrereleaseOf(alg, all),
		AllVersions:      all,
		YankedVersions:   map[string]bool{}, // Go modules have no registry-level yank; retraction is declared in go.mod, out of scope here
		ReleaseDates:     releaseDates,
		FetchedAt:        time.Now().UTC(),
		SourceRegistry:   f.Name(),
	}, nil
}

// firstNonPseudo returns the highest tagged (non-pseudo-version) release,
// since @latest can surface a pseudo-version for untagged modules that
// latest_stable should not report as the stable release.
func firstNonPseudo(alg version.Algebra, all []string) string {
	for _, v := range all {
		c := alg.Classify(v, v)
		if c.Approximate {
			continue
		}
		if !alg.IsPrerelease(v) {
			return v
		}
	}
	return ""
}
