package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// RubyGemsFetcher combines RubyGems' gem-info and version-list endpoints
// into one version.Info, per spec's noted quirk.
type RubyGemsFetcher struct {
	client  *Client
	baseURL string
}

// NewRubyGemsFetcher builds the public RubyGems.org fetcher.
func NewRubyGemsFetcher(client *Client) *RubyGemsFetcher {
	return &RubyGemsFetcher{client: client, baseURL: "https://rubygems.org/api/v1"}
}

func (f *RubyGemsFetcher) Name() string { return "rubygems.org" }

type rubygemsInfo struct {
	Version     string `json:"version"`
	Downloads   int    `json:"downloads"`
	Info        string `json:"info"`
	Homepage    string `json:"homepage_uri"`
	SourceURL   string `json:"source_code_uri"`
	Licenses    []string `json:"licenses"`
}

type rubygemsVersionEntry struct {
	Number        string `json:"number"`
	CreatedAt     string `json:"created_at"`
	Platform      string `json:"platform"`
}

// Fetch combines GET /gems/<name>.json (current metadata) with
// GET /versions/<name>.json (full version history, including yanked
// entries the primary endpoint omits).
func (f *RubyGemsFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	infoBody, err := f.client.GetJSON(ctx, "rubygems.org", fmt.Sprintf("%s/gems/%s.json", f.baseURL, name))
	if err != nil {
		return nil, err
	}
	var info rubygemsInfo
	if err := json.Unmarshal(infoBody, &info); err != nil {
		return nil, err
	}

	versionsBody, err := f.client.GetJSON(ctx, "rubygems.org", fmt.Sprintf("%s/versions/%s.json", f.baseURL, name))
	if err != nil {
		return nil, err
	}
	var entries []rubygemsVersionEntry
	if err := json.Unmarshal(versionsBody, &entries); err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.RubyGems)
	raw := make([]string, 0, len(entries))
	releaseDates := make(map[string]time.Time, len(entries))
	seenPlatform := make(map[string]bool)
	for _, e := range entries {
		if e.Platform != "" && e.Platform != "ruby" {
			continue // platform-specific gem variants (e.g. java, x86-mingw32) are not separate versions
		}
		if seenPlatform[e.Number] {
			continue
		}
		seenPlatform[e.Number] = true
		raw = append(raw, e.Number)
		if t, err := time.Parse(time.RFC3339, e.CreatedAt); err == nil {
			releaseDates[e.Number] = t.UTC()
		}
	}
	all := version.DedupDescending(alg, raw)

	var license string
	if len(info.Licenses) > 0 {
		license = info.Licenses[0]
	}

	return &version.Info{
		LatestStable:     pickOr(info.Version, version.LatestStableOf(alg, all, nil)),
		LatestPrerelease: version.LatestPrereleaseOf(alg, all),
		AllVersions:      all,
		YankedVersions:   map[string]bool{}, // the versions endpoint omits yanked releases outright rather than flagging them
		Description:      info.Info,
		Homepage:         info.Homepage,
		Repository:       info.SourceURL,
		License:          license,
		ReleaseDates:     releaseDates,
		FetchedAt:        time.Now().UTC(),
		SourceRegistry:   f.Name(),
	}, nil
}
