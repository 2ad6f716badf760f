// Package registry implements one Fetcher per package ecosystem: each
// constructs the registry-specific HTTP request, honors that registry's
// rate budget, decodes the registry-specific response shape, and produces
// a common version.Info.
package registry

import (
	"context"

	"github.com/packradar/packradar/pkg/version"
)

// Fetcher resolves one package's metadata from a single registry. Fetch
// takes the package name; an alternate registry or npm scope is served by
// a separate instance that the router builds with that registry's base URL
// and host.
type Fetcher interface {
	// Name identifies the registry for logging and cache partitioning,
	// e.g. "crates.io" or "registry.npmjs.org".
	Name() string

	// Fetch resolves one package's metadata. A package absent from the
	// registry returns perrors.ErrNotFound, not a nil *version.Info.
	Fetch(ctx context.Context, name string) (*version.Info, error)
}
