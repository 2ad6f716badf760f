package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/credentials"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/registry"
	"github.com/packradar/packradar/pkg/router"
	"github.com/packradar/packradar/pkg/version"
)

// S1 — Cargo hint: serde "1.0.150" against a registry advertising
// 1.0.200 resolves to latest_stable 1.0.200, update kind patch.
func TestScenarioS1CargoPatchUpdate(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vers":"1.0.200","yanked":false,"deps":[]}
{"vers":"1.0.150","yanked":false,"deps":[]}
`))
	})

	d := testDescriptor("serde")
	d.DeclaredSpec = "1.0.150"
	info, err := e.Lookup(context.Background(), d)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.LatestStable != "1.0.200" {
		t.Fatalf("LatestStable = %q, want 1.0.200", info.LatestStable)
	}

	alg := version.For(ecosystem.Cargo)
	class := alg.Classify(d.DeclaredSpec, info.LatestStable)
	if class.Kind != version.UpdatePatch {
		t.Fatalf("update kind = %q, want patch", class.Kind)
	}
}

// S2 — npm scoped private: a scoped package routes to the configured
// private registry, which receives a bearer token only over HTTPS; an
// unscoped package in the same batch is unaffected (exercised at the
// router level here since the router owns bearer attachment).
func TestScenarioS2NPMScopedPrivateRoutesToPrivateRegistry(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"name":"@company/widget","dist-tags":{"latest":"2.0.0"},"versions":{"2.0.0":{}},"time":{"2.0.0":"2024-01-01T00:00:00Z"}}`))
	}))
	defer srv.Close()

	os.Setenv("COMPANY_NPM_TOKEN", "tok-abc123")
	defer os.Unsetenv("COMPANY_NPM_TOKEN")

	client := registry.NewClient(nil)
	r := router.New(client, credentials.NewEnvStore(), router.Config{
		NPMScopes: []router.NPMScopeRegistry{
			{Scope: "company", Host: "npm.company.example", BaseURL: srv.URL, CredEnvVar: "COMPANY_NPM_TOKEN"},
		},
	})

	d := descriptor.Descriptor{
		Ecosystem:   ecosystem.NPM,
		Name:        "@company/widget",
		SourceKind:  descriptor.SourceRegistry,
		RoutingHint: descriptor.RoutingHint{Scope: "company"},
	}
	f := r.Route(context.Background(), d)
	if f == nil || f.Name() != "npm.company.example" {
		t.Fatalf("expected the private registry's fetcher, got %v", f)
	}
	if _, err := f.Fetch(context.Background(), d.Name); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// The private-registry host is plain http:// in this test (httptest
	// default), so bearer attachment — HTTPS-only per spec — must not
	// fire even though the scope's token is set.
	if gotAuth != "" {
		t.Fatalf("expected no bearer token over plain HTTP, got %q", gotAuth)
	}

	// Public express in the same batch stays on the default fetcher.
	pub := descriptor.Descriptor{Ecosystem: ecosystem.NPM, Name: "express", SourceKind: descriptor.SourceRegistry}
	pf := r.Route(context.Background(), pub)
	if pf == nil || pf.Name() != "registry.npmjs.org" {
		t.Fatalf("expected express to route to the public registry, got %v", pf)
	}
}

// S4 — Go pseudo-version: a pseudo-versioned require never reaches a
// fetcher and produces no VersionInfo.
func TestScenarioS4GoPseudoVersionSkipsLookup(t *testing.T) {
	e, hits := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparseBody))
	})

	d := descriptor.Descriptor{
		Ecosystem:    ecosystem.Go,
		Name:         "example.com/x",
		DeclaredSpec: "v0.0.0-20240101120000-abcdef012345",
		SourceKind:   descriptor.SourcePseudo,
	}
	info, err := e.Lookup(context.Background(), d)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info for a pseudo-version, got %+v", info)
	}
	if got := atomic.LoadInt32(hits); got != 0 {
		t.Fatalf("expected no outbound request for a pseudo-version, got %d", got)
	}
}

// S5 — Yanked version: crates.io reports 1.1.0 yanked and 1.0.0 not;
// latest_stable skips the yanked release, and IsYanked reports true for
// the declared version.
func TestScenarioS5YankedVersionExcludedFromLatestStable(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vers":"1.1.0","yanked":true,"deps":[]}
{"vers":"1.0.0","yanked":false,"deps":[]}
`))
	})

	d := testDescriptor("widget")
	d.DeclaredSpec = "1.1.0"
	info, err := e.Lookup(context.Background(), d)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if info.LatestStable != "1.0.0" {
		t.Fatalf("LatestStable = %q, want 1.0.0", info.LatestStable)
	}
	if !info.IsYanked("1.1.0") {
		t.Fatal("expected the declared version to be reported yanked")
	}
}

// S6 — Coalesced stampede: 100 concurrent lookups of the same key against
// a fresh cache issue exactly one outbound request and return 100
// identical results.
func TestScenarioS6CoalescedStampede(t *testing.T) {
	e, hits := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte(sparseBody))
	})

	const n = 100
	var wg sync.WaitGroup
	results := make([]*version.Info, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := e.Lookup(context.Background(), testDescriptor("left-pad"))
			if err != nil {
				t.Errorf("Lookup failed: %v", err)
				return
			}
			results[i] = info
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(hits); got != 1 {
		t.Fatalf("expected exactly 1 outbound request, got %d", got)
	}
	for i, r := range results {
		if r == nil || r.LatestStable != "1.0.0" {
			t.Fatalf("result %d = %+v, want LatestStable 1.0.0", i, r)
		}
	}
}

// Severity filtering (spec §8 property 7): a scan with min_severity=high
// counts only advisories at or above high.
func TestScanFiltersBySeverity(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparseBody))
	})

	advSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/querybatch" {
			w.Write([]byte(`{"results":[{"vulns":[{"id":"GHSA-low"},{"id":"GHSA-high"}]}]}`))
			return
		}
		if r.URL.Path == "/vulns/GHSA-low" {
			w.Write([]byte(`{"id":"GHSA-low","summary":"low sev","affected":[{"database_specific":{"severity":"LOW"}}]}`))
			return
		}
		w.Write([]byte(`{"id":"GHSA-high","summary":"high sev","affected":[{"database_specific":{"severity":"HIGH"}}]}`))
	}))
	defer advSrv.Close()

	advClient := advisory.NewClient(nil)
	advClient.BaseURL = advSrv.URL
	e.advisories = advClient
	e.cfg.SecurityEnabled = true

	report := e.Scan(context.Background(), []descriptor.Descriptor{testDescriptor("widget")}, advisory.High)
	if report.Total != 1 {
		t.Fatalf("Total = %d, want 1 (only the high-severity advisory)", report.Total)
	}
	if report.High != 1 || report.Low != 0 {
		t.Fatalf("High = %d Low = %d, want High=1 Low=0", report.High, report.Low)
	}
}

