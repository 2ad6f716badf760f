// Package router selects, per dependency descriptor, which pkg/registry
// Fetcher should resolve it, and attaches credentials to that fetcher's
// outbound requests when a private/alternate registry is configured.
package router

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/packradar/packradar/pkg/credentials"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/registry"
)

// CargoRegistry configures one Cargo alternate registry entry, keyed by
// the name that appears in Cargo.toml's `registry = "..."` field.
type CargoRegistry struct {
	Name       string
	Host       string
	SparseURL  string
	CredEnvVar string
}

// NPMScopeRegistry configures a private registry for one npm scope.
type NPMScopeRegistry struct {
	Scope      string
	Host       string
	BaseURL    string
	CredEnvVar string
}

// Config lists the alternate registries a Router should know about,
// beyond each ecosystem's public default.
type Config struct {
	CargoRegistries []CargoRegistry
	NPMScopes       []NPMScopeRegistry
}

// Router selects a Fetcher per descriptor and wires credentials into the
// shared HTTP client for any configured alternate registry.
type Router struct {
	client *registry.Client
	creds  credentials.Store

	defaults map[ecosystem.Ecosystem]registry.Fetcher

	cargoByName     map[string]*cargoRoute
	npmByScope      map[string]*npmRoute
	authorizedHosts []string
}

type cargoRoute struct {
	fetcher    registry.Fetcher
	credEnvVar string
	host       string
}

type npmRoute struct {
	fetcher    registry.Fetcher
	credEnvVar string
	host       string
}

// New builds a Router with the public fetcher for every ecosystem plus any
// alternate registries named in cfg. creds is asked for each alternate
// registry's CredEnvVar and for nothing else: no lookup is made under a
// Cargo registry's name, so a Cargo credentials-file store chained into
// creds is not reached by the router.
func New(client *registry.Client, creds credentials.Store, cfg Config) *Router {
	r := &Router{
		client:      client,
		creds:       creds,
		cargoByName: make(map[string]*cargoRoute),
		npmByScope:  make(map[string]*npmRoute),
	}
	r.defaults = map[ecosystem.Ecosystem]registry.Fetcher{
		ecosystem.Cargo:     registry.NewCratesFetcher(client),
		ecosystem.NPM:       registry.NewNPMFetcher(client, ecosystem.NPM.DefaultRegistry(), "https://registry.npmjs.org"),
		ecosystem.PyPI:      registry.NewPyPIFetcher(client),
		ecosystem.Go:        registry.NewGoProxyFetcher(client, ecosystem.Go.DefaultRegistry(), "https://proxy.golang.org"),
		ecosystem.Packagist: registry.NewPackagistFetcher(client),
		ecosystem.Pub:       registry.NewPubDevFetcher(client),
		ecosystem.NuGet:     registry.NewNuGetFetcher(client),
		ecosystem.RubyGems:  registry.NewRubyGemsFetcher(client),
	}

	for _, cr := range cfg.CargoRegistries {
		r.cargoByName[cr.Name] = &cargoRoute{
			fetcher:    registry.NewCargoSparseFetcher(client, cr.Name, cr.Host, cr.SparseURL),
			credEnvVar: cr.CredEnvVar,
			host:       cr.Host,
		}
	}
	for _, ns := range cfg.NPMScopes {
		r.npmByScope[ns.Scope] = &npmRoute{
			fetcher:    registry.NewNPMFetcher(client, ns.Host, ns.BaseURL),
			credEnvVar: ns.CredEnvVar,
			host:       ns.Host,
		}
	}
	return r
}

// Route selects the Fetcher for d, resolving and attaching credentials for
// alternate registries on the way, per spec §4.7.
func (r *Router) Route(ctx context.Context, d descriptor.Descriptor) registry.Fetcher {
	switch d.Ecosystem {
	case ecosystem.Cargo:
		if d.RoutingHint.RegistryName != "" {
			if route, ok := r.cargoByName[d.RoutingHint.RegistryName]; ok {
				r.attachBearer(ctx, route.host, route.credEnvVar, "crates-io")
				return route.fetcher
			}
		}
	case ecosystem.NPM:
		if d.RoutingHint.Scope != "" {
			if route, ok := r.npmByScope[d.RoutingHint.Scope]; ok {
				r.attachBearer(ctx, route.host, route.credEnvVar, route.credEnvVar)
				return route.fetcher
			}
		}
	}
	return r.defaults[d.Ecosystem]
}

// attachBearer resolves a bearer token for host and, if the transport
// hasn't already been wrapped for that host, installs an
// oauth2.Transport carrying it. Attachment only happens over HTTPS, per
// spec §4.7 — a plaintext alternate registry never receives a token.
func (r *Router) attachBearer(ctx context.Context, host, envVar, cargoFileKey string) {
	if host == "" || envVar == "" || r.hostAuthorized(host) {
		return
	}

	cred, err := r.creds.Get(ctx, envVar)
	if err != nil {
		return
	}

	base := r.client.HTTP.HTTP.Transport
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Value})
	r.client.HTTP.HTTP.Transport = &hostScopedTransport{
		host: host,
		wrapped: &oauth2.Transport{
			Base:   base,
			Source: src,
		},
		fallback: base,
	}
	r.authorizedHosts = append(r.authorizedHosts, host)
}

func (r *Router) hostAuthorized(host string) bool {
	for _, h := range r.authorizedHosts {
		if h == host {
			return true
		}
	}
	return false
}

// hostScopedTransport attaches the wrapped bearer-token transport only for
// requests to host, so one alternate registry's token is never sent to
// another registry's requests sharing the client.
type hostScopedTransport struct {
	host     string
	wrapped  http.RoundTripper
	fallback http.RoundTripper
}

func (t *hostScopedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" && sameHost(req.URL, t.host) {
		return t.wrapped.RoundTrip(req)
	}
	if t.fallback != nil {
		return t.fallback.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func sameHost(u *url.URL, host string) bool {
	return strings.EqualFold(u.Hostname(), host)
}
