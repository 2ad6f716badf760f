package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientLookupJoinsBatchAndDetailResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/querybatch":
			w.Write([]byte(`{"results":[{"vulns":[{"id":"GHSA-xxxx-yyyy-zzzz"}]},{"vulns":[]}]}`))
		case strings.HasPrefix(r.URL.Path, "/vulns/"):
			w.Write([]byte(`{
				"id": "GHSA-xxxx-yyyy-zzzz",
				"summary": "example vulnerability",
				"affected": [{
					"package": {"ecosystem": "crates.io", "name": "widget"},
					"ranges": [{"type": "SEMVER", "events": [{"introduced": "0"}, {"fixed": "1.2.3"}]}],
					"database_specific": {"severity": "HIGH"}
				}],
				"references": [{"type": "ADVISORY", "url": "https://example.com/advisory"}]
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(nil)
	c.BaseURL = srv.URL

	keys := []Key{
		{Ecosystem: "cargo", CanonicalName: "widget", DeclaredVersion: "1.0.0"},
		{Ecosystem: "cargo", CanonicalName: "gadget", DeclaredVersion: "2.0.0"},
	}

	out, err := c.Lookup(context.Background(), keys)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	records, ok := out[keys[0]]
	if !ok || len(records) != 1 {
		t.Fatalf("expected one record for widget, got %v", out)
	}
	rec := records[0]
	if rec.ID != "GHSA-xxxx-yyyy-zzzz" {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.Severity != High {
		t.Errorf("Severity = %q, want high", rec.Severity)
	}
	if rec.FixedIn != "1.2.3" {
		t.Errorf("FixedIn = %q, want 1.2.3", rec.FixedIn)
	}
	if rec.URL != "https://example.com/advisory" {
		t.Errorf("URL = %q", rec.URL)
	}

	if _, ok := out[keys[1]]; ok {
		t.Error("expected no records for gadget")
	}
}

func TestClientLookupEmptyKeys(t *testing.T) {
	c := NewClient(nil)
	out, err := c.Lookup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result, got %v", out)
	}
}

func TestClientLookupDegradesOnDetailFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/querybatch":
			w.Write([]byte(`{"results":[{"vulns":[{"id":"GHSA-broken"}]}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(nil)
	c.BaseURL = srv.URL

	keys := []Key{{Ecosystem: "npm", CanonicalName: "left-pad", DeclaredVersion: "1.0.0"}}
	out, err := c.Lookup(context.Background(), keys)
	if err != nil {
		t.Fatalf("Lookup should degrade rather than fail outright: %v", err)
	}
	if records := out[keys[0]]; len(records) != 0 {
		t.Errorf("expected no records when detail fetch fails, got %v", records)
	}
}
