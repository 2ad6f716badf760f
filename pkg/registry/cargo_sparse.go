package registry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/version"
)

// CargoSparseFetcher implements the sparse-index protocol used by Cargo
// alternate registries (crates.io itself also serves one, but
// CratesFetcher uses the friendlier JSON API instead).
type CargoSparseFetcher struct {
	client  *Client
	name    string // registry name from routing_hint.registry_name
	host    string
	baseURL string
}

// NewCargoSparseFetcher builds a fetcher for one configured alternate
// registry, identified by name (matching Cargo.toml's registry field) and
// its sparse-index base URL.
func NewCargoSparseFetcher(client *Client, name, host, baseURL string) *CargoSparseFetcher {
	return &CargoSparseFetcher{client: client, name: name, host: host, baseURL: baseURL}
}

func (f *CargoSparseFetcher) Name() string { return f.name }

// sparseIndexPath applies Cargo's two/three/four-character prefix rule for
// locating a crate's index file.
func sparseIndexPath(name string) string {
	switch len(name) {
	case 1:
		return fmt.Sprintf("1/%s", name)
	case 2:
		return fmt.Sprintf("2/%s", name)
	case 3:
		return fmt.Sprintf("3/%c/%s", name[0], name)
	default:
		return fmt.Sprintf("%s/%s/%s", name[0:2], name[2:4], name)
	}
}

type sparseIndexEntry struct {
	Vers    string `json:"vers"`
	Yanked  bool   `json:"yanked"`
	Deps    []interface{} `json:"deps"`
}

// Fetch parses the newline-delimited JSON sparse index and selects the
// highest non-yanked version as latest_stable.
func (f *CargoSparseFetcher) Fetch(ctx context.Context, name string) (*version.Info, error) {
	url := fmt.Sprintf("%s/%s", f.baseURL, sparseIndexPath(name))
	body, err := f.client.GetJSON(ctx, f.host, url)
	if err != nil {
		return nil, err
	}

	alg := version.For(ecosystem.Cargo)
	raw := make([]string, 0, 16)
	yanked := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry sparseIndexEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // one malformed line degrades to a partial index rather than failing the fetch
		}
		raw = append(raw, entry.Vers)
		if entry.Yanked {
			yanked[entry.Vers] = true
		}
	}
	all := version.DedupDescending(alg, raw)

	return &version.Info{
		LatestStable:     version.LatestStableOf(alg, all, yanked),
		LatestPrerelease: version.LatestPrereleaseOf(alg, all),
		AllVersions:      all,
		YankedVersions:   yanked,
		FetchedAt:        time.Now().UTC(),
		SourceRegistry:   f.Name(),
	}, nil
}
