package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// PyPIFetcher talks to PyPI's JSON API.
type PyPIFetcher struct {
	client  *Client
	baseURL string
}

// NewPyPIFetcher builds the public PyPI fetcher.
func NewPyPIFetcher(client *Client) *PyPIFetcher {
	return &PyPIFetcher{client: client, baseURL: "https://pypi.org/pypi"}
}

func (f *PyPIFetcher) Name() string { return "pypi.org" }

type pypiResponse struct {
	Info struct {
		Name       string `json:"name"`
		Version    string `json:"version"`
		Summary    string `json:"summary"`
		HomePage   string `json:"home_page"`
		License    string `json:"license"`
		ProjectURLs map[string]string `json:"project_urls"`
		Yanked     bool   `json:"yanked"`
	} `json:"info"`
	Releases map[string][]struct {
		UploadTimeISO8601 string `json:"upload_time_iso_8601"`
		Yanked            bool   `json:"yanked"`
	} `json:"releases"`
}

// Fetch requests /<name>/json; release dates are carried per distribution
// file, so a release with multiple files picks the earliest upload time.
func (f *PyPIFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	url := fmt.Sprintf("%s/%s/json", f.baseURL, name)
	body, err := f.client.GetJSON(ctx, "pypi.org", url)
	if err != nil {
		return nil, err
	}

	var resp pypiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.PyPI)
	raw := make([]string, 0, len(resp.Releases))
	yanked := make(map[string]bool, len(resp.Releases))
	releaseDates := make(map[string]time.Time, len(resp.Releases))
	for v, files := range resp.Releases {
		if len(files) == 0 {
			continue
		}
		raw = append(raw, v)
		allYanked := true
		for _, file := range files {
			if !file.Yanked {
				allYanked = false
			}
			if t, err := time.Parse(time.RFC3339, file.UploadTimeISO8601); err == nil {
				if existing, ok := releaseDates[v]; !ok || t.Before(existing) {
					releaseDates[v] = t.UTC()
				}
			}
		}
		if allYanked {
			yanked[v] = true
		}
	}
	all := version.DedupDescending(alg, raw)

	repo := ""
	for label, u := range resp.Info.ProjectURLs {
		if label == "Source" || label == "Repository" || label == "Source Code" {
			repo = u
			break
		}
	}

	return &version.Info{
		LatestStable:     version.LatestStableOf(alg, all, yanked),
		LatestPrerelease: version.LatestPrereleaseOf(alg, all),
		AllVersions:      all,
		YankedVersions:   yanked,
		Description:      resp.Info.Summary,
		Homepage:         resp.Info.HomePage,
		Repository:       repo,
		License:          resp.Info.License,
		ReleaseDates:     releaseDates,
		FetchedAt:        time.Now().UTC(),
		SourceRegistry:   f.Name(),
	}, nil
}
