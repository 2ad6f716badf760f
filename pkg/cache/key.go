// Package cache implements the two-tier hot/cold store: a process-local
// map (hot tier) backed by a durable SQLite store (cold tier), grounded on
// rediverio-sdk's pkg/chunk storage but repurposed for VersionInfo payloads
// keyed by dependency identity instead of upload chunks.
package cache

import (
	"fmt"

	"github.com/packradar/packradar/pkg/ecosystem"
)

// Key identifies one cached VersionInfo record. SourceRegistry is part of
// the key (not just Name) so a private registry hosting a name that also
// exists on the public registry never collides with it.
type Key struct {
	Ecosystem      ecosystem.Ecosystem
	SourceRegistry string
	Name           string
}

// String renders the key as the cold tier's primary key text.
func (k Key) String() string {
	return fmt.Sprintf("%s\x00%s\x00%s", k.Ecosystem, k.SourceRegistry, k.Name)
}
