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

// NuGetFetcher talks to the NuGet V3 registration API.
type NuGetFetcher struct {
	client  *Client
	baseURL string
}

// NewNuGetFetcher builds the public NuGet.org fetcher.
func NewNuGetFetcher(client *Client) *NuGetFetcher {
	return &NuGetFetcher{client: client, baseURL: "https://api.nuget.org/v3/registration5-semver1"}
}

func (f *NuGetFetcher) Name() string { return "api.nuget.org" }

type nugetRegistrationIndex struct {
	Items []nugetRegistrationPage `json:"items"`
}

type nugetRegistrationPage struct {
	ID    string                `json:"@id"`
	Items []nugetRegistrationLeaf `json:"items"`
}

type nugetRegistrationLeaf struct {
	CatalogEntry struct {
		Version     string `json:"version"`
		Listed      bool   `json:"listed"`
		Published   string `json:"published"`
		Description string `json:"description"`
		ProjectURL  string `json:"projectUrl"`
		LicenseExpression string `json:"licenseExpression"`
		Deprecation *struct {
			Message string `json:"message"`
		} `json:"deprecation"`
	} `json:"catalogEntry"`
}

// Fetch requests the registration index; ids are case-insensitive on
// NuGet so the name is lowercased before querying. Registration pages
// beyond the first are fetched inline if present, or dereferenced by @id
// when NuGet splits a long version history across pages.
func (f *NuGetFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	lower := strings.ToLower(name)
	indexURL := fmt.Sprintf("%s/%s/index.json", f.baseURL, lower)
	body, err := f.client.GetJSON(ctx, "api.nuget.org", indexURL)
	if err != nil {
		return nil, err
	}

	var index nugetRegistrationIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.NuGet)
	raw := make([]string, 0, 64)
	unlisted := make(map[string]bool)
	releaseDates := make(map[string]time.Time)
	var description, homepage, license, deprecationMsg string
	var deprecated bool

	for _, page := range index.Items {
		leaves := page.Items
		if len(leaves) == 0 && page.ID != "" {
			pageBody, err := f.client.GetJSON(ctx, "api.nuget.org", page.ID)
			if err != nil {
				continue // a missing page degrades to a partial version list rather than failing the whole fetch
			}
			var fullPage nugetRegistrationPage
			if json.Unmarshal(pageBody, &fullPage) == nil {
				leaves = fullPage.Items
			}
		}
		for _, leaf := range leaves {
			e := leaf.CatalogEntry
			raw = append(raw, e.Version)
			if !e.Listed {
				unlisted[e.Version] = true
			}
			if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
				releaseDates[e.Version] = t.UTC()
			}
			if description == "" {
				description = e.Description
			}
			if homepage == "" {
				homepage = e.ProjectURL
			}
			if license == "" {
				license = e.LicenseExpression
			}
			if e.Deprecation != nil {
				deprecated = true
				deprecationMsg = e.Deprecation.Message
			}
		}
	}
	all := version.DedupDescending(alg, raw)

	return &version.Info{
		LatestStable:       version.LatestStableOf(alg, all, unlisted),
		LatestPrerelease:   version.LatestPrereleaseOf(alg, all),
		AllVersions:        all,
		YankedVersions:     unlisted, // NuGet "unlisted" is the closest analog to yanked
		Deprecated:         deprecated,
		DeprecationMessage: deprecationMsg,
		Description:        description,
		Homepage:            homepage,
		License:             license,
		ReleaseDates:         releaseDates,
		FetchedAt:            time.Now().UTC(),
		SourceRegistry:       f.Name(),
	}, nil
}
