package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/packradar/packradar/pkg/credentials"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/registry"
)

func TestRouteDefaultsToPublicFetcherWithoutRoutingHint(t *testing.T) {
	client := registry.NewClient(nil)
	r := New(client, credentials.NewEnvStore(), Config{})

	d := descriptor.Descriptor{Ecosystem: ecosystem.Cargo, Name: "serde"}
	f := r.Route(context.Background(), d)
	if f == nil || f.Name() != "crates.io" {
		t.Fatalf("expected default crates.io fetcher, got %v", f)
	}
}

func TestRouteSelectsConfiguredCargoAlternate(t *testing.T) {
	client := registry.NewClient(nil)
	r := New(client, credentials.NewEnvStore(), Config{
		CargoRegistries: []CargoRegistry{
			{Name: "internal", Host: "cargo.example.com", SparseURL: "https://cargo.example.com"},
		},
	})

	d := descriptor.Descriptor{
		Ecosystem:   ecosystem.Cargo,
		Name:        "widget",
		RoutingHint: descriptor.RoutingHint{RegistryName: "internal"},
	}
	f := r.Route(context.Background(), d)
	if f == nil || f.Name() != "internal" {
		t.Fatalf("expected the configured alternate registry's fetcher, got %v", f)
	}
}

func TestRouteSelectsConfiguredNPMScope(t *testing.T) {
	client := registry.NewClient(nil)
	r := New(client, credentials.NewEnvStore(), Config{
		NPMScopes: []NPMScopeRegistry{
			{Scope: "acme", Host: "npm.acme.internal", BaseURL: "https://npm.acme.internal"},
		},
	})

	d := descriptor.Descriptor{
		Ecosystem:   ecosystem.NPM,
		Name:        "@acme/widget",
		RoutingHint: descriptor.RoutingHint{Scope: "acme"},
	}
	f := r.Route(context.Background(), d)
	if f == nil || f.Name() != "npm.acme.internal" {
		t.Fatalf("expected the configured scope's fetcher, got %v", f)
	}
}

func TestAttachBearerOnlyAffectsConfiguredHost(t *testing.T) {
	var gotAuthHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthHeader = r.Header.Get("Authorization")
		w.Write([]byte(`{"vers":"1.0.0","yanked":false}`))
	}))
	defer srv.Close()

	os.Setenv("PACKRADAR_TEST_CARGO_TOKEN", "s3cr3t")
	defer os.Unsetenv("PACKRADAR_TEST_CARGO_TOKEN")

	client := registry.NewClient(nil)
	r := New(client, credentials.NewEnvStore(), Config{
		CargoRegistries: []CargoRegistry{
			{Name: "internal", Host: "internal.example.com", SparseURL: srv.URL, CredEnvVar: "PACKRADAR_TEST_CARGO_TOKEN"},
		},
	})

	d := descriptor.Descriptor{Ecosystem: ecosystem.Cargo, Name: "widget", RoutingHint: descriptor.RoutingHint{RegistryName: "internal"}}
	f := r.Route(context.Background(), d)
	if f == nil {
		t.Fatal("expected a fetcher")
	}

	// The bearer attachment only fires for https://internal.example.com, not
	// the httptest server's plain http URL, so no Authorization header is
	// expected here; this exercises that attachBearer does not panic and
	// leaves plain-HTTP alternate registries untouched.
	_, _ = f.Fetch(context.Background(), "widget")
	if gotAuthHeader != "" {
		t.Fatalf("expected no bearer token attached to a non-matching host, got %q", gotAuthHeader)
	}
}
