package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/packradar/packradar/pkg/perrors"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(nil)
}

func TestSparseIndexPathPrefixRule(t *testing.T) {
	cases := map[string]string{
		"a":     "1/a",
		"ab":    "2/ab",
		"abc":   "3/a/abc",
		"serde": "se/rd/serde",
	}
	for name, want := range cases {
		if got := sparseIndexPath(name); got != want {
			t.Errorf("sparseIndexPath(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestEncodeModulePathEscapesUppercase(t *testing.T) {
	got := encodeModulePath("github.com/BurntSushi/toml")
	want := "github.com/!burnt!sushi/toml"
	if got != want {
		t.Fatalf("encodeModulePath = %q, want %q", got, want)
	}
}

func TestCratesFetcherParsesVersionsAndYanked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"crate": {"description": "d", "homepage": "h", "repository": "r"},
			"versions": [
				{"num": "1.0.0", "yanked": false, "license": "MIT", "created_at": "2023-01-01T00:00:00Z"},
				{"num": "1.1.0", "yanked": true, "license": "MIT", "created_at": "2023-02-01T00:00:00Z"},
				{"num": "2.0.0-beta.1", "yanked": false, "license": "MIT", "created_at": "2023-03-01T00:00:00Z"}
			]
		}`))
	}))
	defer srv.Close()

	f := NewCratesFetcher(testClient(t))
	f.baseURL = srv.URL
	patchLimiter(t, f.client, "crates.io")

	info, err := f.Fetch(context.Background(), "serde")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.LatestStable != "1.0.0" {
		t.Fatalf("expected 1.0.0 (yanked and prerelease excluded), got %s", info.LatestStable)
	}
	if info.LatestPrerelease != "2.0.0-beta.1" {
		t.Fatalf("expected prerelease 2.0.0-beta.1, got %s", info.LatestPrerelease)
	}
	if !info.YankedVersions["1.1.0"] {
		t.Fatal("expected 1.1.0 marked yanked")
	}
}

func TestCratesFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewCratesFetcher(testClient(t))
	f.baseURL = srv.URL
	patchLimiter(t, f.client, "crates.io")

	_, err := f.Fetch(context.Background(), "does-not-exist")
	if !errors.Is(err, perrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNPMFetcherEscapesScopedNameAndReadsStringDeprecation(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{
			"name": "@scope/pkg",
			"dist-tags": {"latest": "1.0.0"},
			"time": {"1.0.0": "2023-01-01T00:00:00Z", "created": "x", "modified": "y"},
			"description": "d",
			"versions": {
				"1.0.0": {"deprecated": "use @scope/pkg2 instead"}
			}
		}`))
	}))
	defer srv.Close()

	f := NewNPMFetcher(testClient(t), "registry.npmjs.org", srv.URL)
	patchLimiter(t, f.client, "registry.npmjs.org")

	info, err := f.Fetch(context.Background(), "@scope/pkg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(gotPath, "%2F") {
		t.Fatalf("expected scoped name to URL-encode '/' as %%2F, got path %q", gotPath)
	}
	if !info.Deprecated || info.DeprecationMessage == "" {
		t.Fatalf("expected string deprecation to be surfaced, got %+v", info)
	}
	if info.LatestStable != "1.0.0" {
		t.Fatalf("expected dist-tags.latest to be authoritative, got %s", info.LatestStable)
	}
}

func TestCargoSparseFetcherSkipsYanked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"vers\":\"1.0.0\",\"yanked\":false}\n{\"vers\":\"1.1.0\",\"yanked\":true}\n"))
	}))
	defer srv.Close()

	f := NewCargoSparseFetcher(testClient(t), "my-registry", "internal.example.com", srv.URL)
	patchLimiter(t, f.client, "internal.example.com")

	info, err := f.Fetch(context.Background(), "serde")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.LatestStable != "1.0.0" {
		t.Fatalf("expected yanked 1.1.0 excluded from latest_stable, got %s", info.LatestStable)
	}
	if info.SourceRegistry != "my-registry" {
		t.Fatalf("expected SourceRegistry to be the configured registry name, got %s", info.SourceRegistry)
	}
}

// patchLimiter installs a burst-only limiter for host so tests do not wait
// on the real per-registry rate budget.
func patchLimiter(t *testing.T, c *Client, host string) {
	t.Helper()
	c.limiters.limiters[host] = c.limiters.forHost(host)
	c.limiters.limiters[host].SetLimit(1e9)
	c.limiters.limiters[host].SetBurst(1e9)
}
