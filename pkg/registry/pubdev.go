package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// PubDevFetcher talks to pub.dev's package API.
type PubDevFetcher struct {
	client  *Client
	baseURL string
}

// NewPubDevFetcher builds the public pub.dev fetcher.
func NewPubDevFetcher(client *Client) *PubDevFetcher {
	return &PubDevFetcher{client: client, baseURL: "https://pub.dev/api/packages"}
}

func (f *PubDevFetcher) Name() string { return "pub.dev" }

type pubDevResponse struct {
	Name    string `json:"name"`
	Latest  struct {
		Version string `json:"version"`
	} `json:"latest"`
	Versions []struct {
		Version   string `json:"version"`
		Retracted bool   `json:"retracted"`
		Published string `json:"published"`
		Pubspec   struct {
			Description string `json:"description"`
			Homepage    string `json:"homepage"`
			Repository  string `json:"repository"`
		} `json:"pubspec"`
	} `json:"versions"`
}

type pubDevScoreResponse struct {
	Tags []string `json:"tags"`
}

// Fetch requests /<name>; retracted mirrors yanked and discontinued
// mirrors deprecated per spec's quirk table. Discontinued status lives on
// the separate package-score endpoint, queried as a best-effort second
// call that never fails the overall fetch.
func (f *PubDevFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	url := fmt.Sprintf("%s/%s", f.baseURL, name)
	body, err := f.client.GetJSON(ctx, "pub.dev", url)
	if err != nil {
		return nil, err
	}

	var resp pubDevResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.Pub)
	raw := make([]string, 0, len(resp.Versions))
	retracted := make(map[string]bool, len(resp.Versions))
	releaseDates := make(map[string]time.Time, len(resp.Versions))
	var description, homepage, repo string
	for _, v := range resp.Versions {
		raw = append(raw, v.Version)
		if v.Retracted {
			retracted[v.Version] = true
		}
		if t, err := time.Parse(time.RFC3339, v.Published); err == nil {
			releaseDates[v.Version] = t.UTC()
		}
		if description == "" {
			description = v.Pubspec.Description
		}
		if homepage == "" {
			homepage = v.Pubspec.Homepage
		}
		if repo == "" {
			repo = v.Pubspec.Repository
		}
	}
	all := version.DedupDescending(alg, raw)

	discontinued := f.isDiscontinued(ctx, name)

	return &version.Info{
		LatestStable:     pickOr(resp.Latest.Version, version.LatestStableOf(alg, all, retracted)),
		LatestPrerelease: version.LatestPrereleaseOf(alg, all),
		AllVersions:      all,
		YankedVersions:   retracted,
		Deprecated:       discontinued,
		Description:      description,
		Homepage:         homepage,
		Repository:       repo,
		ReleaseDates:     releaseDates,
		FetchedAt:        time.Now().UTC(),
		SourceRegistry:   f.Name(),
	}, nil
}

func (f *PubDevFetcher) isDiscontinued(ctx context.Context, name string) bool {
	body, err := f.client.GetJSON(ctx, "pub.dev", fmt.Sprintf("https://pub.dev/api/packages/%s/score", name))
	if err != nil {
		return false
	}
	var score pubDevScoreResponse
	if json.Unmarshal(body, &score) != nil {
		return false
	}
	for _, tag := range score.Tags {
		if tag == "is:discontinued" {
			return true
		}
	}
	return false
}
