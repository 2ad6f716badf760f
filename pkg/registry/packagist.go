package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// PackagistFetcher talks to packagist.org's package metadata API.
type PackagistFetcher struct {
	client  *Client
	baseURL string
}

// NewPackagistFetcher builds the public Packagist fetcher.
func NewPackagistFetcher(client *Client) *PackagistFetcher {
	return &PackagistFetcher{client: client, baseURL: "https://repo.packagist.org/p2"}
}

func (f *PackagistFetcher) Name() string { return "packagist.org" }

type packagistResponse struct {
	Packages map[string][]struct {
		Version     string `json:"version"`
		Description string `json:"description"`
		Homepage    string `json:"homepage"`
		Time        string `json:"time"`
		License     []string `json:"license"`
		Abandoned   interface{} `json:"abandoned"`
		Source      struct {
			URL string `json:"url"`
		} `json:"source"`
	} `json:"packages"`
}

// Fetch requests the p2 metadata endpoint for vendor/package. Packagist's
// "abandoned" field is either a bool or, when the maintainer named a
// replacement, a string naming it — surfaced as the deprecation message.
func (f *PackagistFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	url := fmt.Sprintf("%s/%s.json", f.baseURL, name)
	body, err := f.client.GetJSON(ctx, "packagist.org", url)
	if err != nil {
		return nil, err
	}

	var resp packagistResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	releases, ok := resp.Packages[name]
	if !ok || len(releases) == 0 {
		return nil, fmt.Errorf("packagist: no releases for %s", name)
	}

	alg := version.For(ecosystem.Packagist)
	raw := make([]string, 0, len(releases))
	releaseDates := make(map[string]time.Time, len(releases))
	var description, homepage, repo, license string
	var deprecated bool
	var deprecationMsg string
	for _, r := range releases {
		raw = append(raw, r.Version)
		if t, err := time.Parse(time.RFC3339, r.Time); err == nil {
			releaseDates[r.Version] = t.UTC()
		}
		if description == "" {
			description = r.Description
		}
		if homepage == "" {
			homepage = r.Homepage
		}
		if repo == "" {
			repo = r.Source.URL
		}
		if license == "" && len(r.License) > 0 {
			license = r.License[0]
		}
		switch a := r.Abandoned.(type) {
		case bool:
			if a {
				deprecated = true
			}
		case string:
			if a != "" {
				deprecated = true
				deprecationMsg = fmt.Sprintf("replaced by %s", a)
			}
		}
	}
	all := version.DedupDescending(alg, raw)

	return &version.Info{
		LatestStable:       version.LatestStableOf(alg, all, nil),
		LatestPrerelease:   version.LatestPrereleaseOf(alg, all),
		AllVersions:        all,
		YankedVersions:     map[string]bool{},
		Deprecated:         deprecated,
		DeprecationMessage: deprecationMsg,
		Description:        description,
		Homepage:            homepage,
		Repository:          repo,
		License:             license,
		ReleaseDates:         releaseDates,
		FetchedAt:            time.Now().UTC(),
		SourceRegistry:       f.Name(),
	}, nil
}
