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

// NPMFetcher talks to the npm registry (public or a configured scoped
// alternate — the router passes a different baseURL/name for those).
type NPMFetcher struct {
	client  *Client
	baseURL string
	host    string
}

// NewNPMFetcher builds an npm fetcher against baseURL (the public registry
// or a private one the router resolved for a scope).
func NewNPMFetcher(client *Client, host, baseURL string) *NPMFetcher {
	return &NPMFetcher{client: client, baseURL: baseURL, host: host}
}

func (f *NPMFetcher) Name() string { return f.host }

type npmResponse struct {
	Name     string `json:"name"`
	DistTags struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Time        map[string]string `json:"time"`
	Description string            `json:"description"`
	Homepage    string            `json:"homepage"`
	License     interface{}       `json:"license"`
	Repository  struct {
		URL string `json:"url"`
	} `json:"repository"`
	Versions map[string]struct {
		Deprecated interface{} `json:"deprecated"`
	} `json:"versions"`
}

// Fetch requests /<scoped-and-escaped-name>. Scoped names URL-encode the
// separating "/" as "%2F" per spec; unscoped names pass through unchanged.
func (f *NPMFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	escaped := name
	if strings.HasPrefix(name, "@") {
		escaped = strings.Replace(name, "/", "%2F", 1)
	}
	url := fmt.Sprintf("%s/%s", f.baseURL, escaped)
	body, err := f.client.GetJSON(ctx, f.host, url)
	if err != nil {
		return nil, err
	}

	var resp npmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.NPM)
	raw := make([]string, 0, len(resp.Versions))
	for v := range resp.Versions {
		raw = append(raw, v)
	}
	all := version.DedupDescending(alg, raw)

	releaseDates := make(map[string]time.Time, len(resp.Time))
	for v, ts := range resp.Time {
		if v == "created" || v == "modified" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			releaseDates[v] = t.UTC()
		}
	}

	deprecated, message := npmDeprecation(resp, resp.DistTags.Latest)

	info := &version.Info{
		LatestStable:       pickOr(resp.DistTags.Latest, version.LatestStableOf(alg, all, nil)),
		LatestPrerelease:   version.LatestPrereleaseOf(alg, all),
		AllVersions:        all,
		YankedVersions:     map[string]bool{}, // npm has no yank concept; unpublish removes the version entirely
		Deprecated:         deprecated,
		DeprecationMessage: message,
		Description:        resp.Description,
		Homepage:            resp.Homepage,
		Repository:          normalizeRepoURL(resp.Repository.URL),
		License:              npmLicenseString(resp.License),
		ReleaseDates:         releaseDates,
		FetchedAt:            time.Now().UTC(),
		SourceRegistry:       f.Name(),
	}
	return info, nil
}

// npmDeprecation reports the deprecation string attached to the latest
// version's manifest, if any; npm's "deprecated" field is a free-text
// string rather than a boolean, per spec's noted quirk.
func npmDeprecation(resp npmResponse, latest string) (bool, string) {
	v, ok := resp.Versions[latest]
	if !ok {
		return false, ""
	}
	msg, ok := v.Deprecated.(string)
	if !ok || msg == "" {
		return false, ""
	}
	return true, msg
}

func npmLicenseString(v interface{}) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]interface{}:
		if t, ok := l["type"].(string); ok {
			return t
		}
	}
	return ""
}

func normalizeRepoURL(url string) string {
	url = strings.TrimPrefix(url, "git+")
	url = strings.TrimSuffix(url, ".git")
	return url
}

func pickOr(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
