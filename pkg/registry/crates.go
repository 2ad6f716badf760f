package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// CratesFetcher talks to crates.io's JSON API (registry: "crates.io").
type CratesFetcher struct {
	client  *Client
	baseURL string
}

// NewCratesFetcher builds the public crates.io fetcher.
func NewCratesFetcher(client *Client) *CratesFetcher {
	return &CratesFetcher{client: client, baseURL: "https://crates.io/api/v1/crates"}
}

func (f *CratesFetcher) Name() string { return "crates.io" }

type cratesResponse struct {
	Crate struct {
		Description string `json:"description"`
		Homepage    string `json:"homepage"`
		Repository  string `json:"repository"`
	} `json:"crate"`
	Versions []struct {
		Num       string `json:"num"`
		Yanked    bool   `json:"yanked"`
		License   string `json:"license"`
		CreatedAt string `json:"created_at"`
	} `json:"versions"`
}

// Fetch queries crates.io by name as given; neither this fetcher nor the
// router rewrites hyphens and underscores before the request is made.
func (f *CratesFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	url := fmt.Sprintf("%s/%s", f.baseURL, name)
	body, err := f.client.GetJSON(ctx, "crates.io", url)
	if err != nil {
		return nil, err
	}

	var resp cratesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.Cargo)
	yanked := make(map[string]bool, len(resp.Versions))
	releaseDates := make(map[string]time.Time, len(resp.Versions))
	raw := make([]string, 0, len(resp.Versions))
	var license string
	for _, v := range resp.Versions {
		raw = append(raw, v.Num)
		if v.Yanked {
			yanked[v.Num] = true
		}
		if t, err := dateparse.ParseAny(v.CreatedAt); err == nil {
			releaseDates[v.Num] = t.UTC()
		}
		if license == "" {
			license = v.License
		}
	}
	all := version.DedupDescending(alg, raw)

	return &version.Info{
		LatestStable:     version.LatestStableOf(alg, all, yanked),
		LatestPrerelease: version.LatestPrereleaseOf(alg, all),
		AllVersions:      all,
		YankedVersions:   yanked,
		Description:      resp.Crate.Description,
		Homepage:         resp.Crate.Homepage,
		Repository:       resp.Crate.Repository,
		License:          license,
		ReleaseDates:     releaseDates,
		FetchedAt:        time.Now().UTC(),
		SourceRegistry:   f.Name(),
	}, nil
}
