// Package version holds the engine's canonical VersionInfo record and the
// per-ecosystem version algebra: ordering, prerelease classification, and
// update-kind labeling.
package version

import (
	"time"

	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/enrich"
)

// Info is the engine's canonical metadata record for one package.
type Info struct {
	LatestStable       string
	LatestPrerelease   string
	AllVersions        []string // deduplicated, descending
	YankedVersions     map[string]bool
	Deprecated         bool
	DeprecationMessage string
	Description        string
	Homepage           string
	Repository         string
	License            string
	ReleaseDates       map[string]time.Time // sparse
	FetchedAt          time.Time
	SourceRegistry     string
	Vulnerabilities    []advisory.Record

	// RepoHealth is set when Repository resolves to a github.com or
	// gitlab.com project; nil when unset, unresolved, or disabled.
	RepoHealth *enrich.Health
}

// IsYanked reports whether v is in the yanked set.
func (i *Info) IsYanked(v string) bool {
	if i == nil || i.YankedVersions == nil {
		return false
	}
	return i.YankedVersions[v]
}

// Clone returns a deep-enough copy for safe sharing across coalesced
// callers: slices and maps are copied, nested values are not mutated by
// any engine code after construction so a shallow copy of their contents
// is sufficient.
func (i *Info) Clone() *Info {
	if i == nil {
		return nil
	}
	c := *i
	if i.AllVersions != nil {
		c.AllVersions = append([]string(nil), i.AllVersions...)
	}
	if i.YankedVersions != nil {
		c.YankedVersions = make(map[string]bool, len(i.YankedVersions))
		for k, v := range i.YankedVersions {
			c.YankedVersions[k] = v
		}
	}
	if i.ReleaseDates != nil {
		c.ReleaseDates = make(map[string]time.Time, len(i.ReleaseDates))
		for k, v := range i.ReleaseDates {
			c.ReleaseDates[k] = v
		}
	}
	if i.Vulnerabilities != nil {
		c.Vulnerabilities = append([]advisory.Record(nil), i.Vulnerabilities...)
	}
	if i.RepoHealth != nil {
		h := *i.RepoHealth
		c.RepoHealth = &h
	}
	return &c
}
