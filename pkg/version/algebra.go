package version

import (
	"sort"

	"github.com/samber/lo"

	"github.com/packradar/packradar/pkg/ecosystem"
)

// UpdateKind labels how a candidate version relates to the current one.
type UpdateKind string

const (
	UpdateMajor      UpdateKind = "major"
	UpdateMinor      UpdateKind = "minor"
	UpdatePatch      UpdateKind = "patch"
	UpdatePrerelease UpdateKind = "prerelease"
	UpdateNone       UpdateKind = "none"
)

// Classification is the result of update_kind: a label plus a flag set
// when the label was not derived from ecosystem-aware ordering: a version
// could not be parsed and a lexical fallback was used (spec §4.2), or, for
// Go, the candidate is a pseudo-version.
type Classification struct {
	Kind        UpdateKind
	Approximate bool
}

// Algebra implements the required operations of spec §4.2 for one
// ecosystem's version scheme.
type Algebra interface {
	// Less reports whether a orders before b.
	Less(a, b string) bool
	// IsPrerelease reports whether v is a prerelease/unstable version.
	IsPrerelease(v string) bool
	// Classify labels the relationship between current and candidate.
	Classify(current, candidate string) Classification
	// Satisfies reports whether v satisfies the declared range spec. Used
	// only by the scan path (spec §4.2).
	Satisfies(v, spec string) bool
}

// For returns the Algebra for an ecosystem.
func For(eco ecosystem.Ecosystem) Algebra {
	switch eco {
	case ecosystem.Cargo:
		return cargoAlgebra{}
	case ecosystem.NPM:
		return npmAlgebra{}
	case ecosystem.PyPI:
		return pypiAlgebra{}
	case ecosystem.Go:
		return goAlgebra{}
	case ecosystem.Packagist:
		return composerAlgebra{}
	case ecosystem.Pub:
		return dartAlgebra{}
	case ecosystem.NuGet:
		return nugetAlgebra{}
	case ecosystem.RubyGems:
		return rubygemsAlgebra{}
	default:
		return lexicalAlgebra{}
	}
}

// LatestStableOf returns the highest version in versions that is neither
// a prerelease nor in the yanked set, per spec §4.2's latest_stable_of.
func LatestStableOf(alg Algebra, versions []string, yanked map[string]bool) string {
	sorted := append([]string(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return alg.Less(sorted[j], sorted[i]) })
	for _, v := range sorted {
		if alg.IsPrerelease(v) {
			continue
		}
		if yanked != nil && yanked[v] {
			continue
		}
		return v
	}
	return ""
}

// LatestPrereleaseOf returns the highest prerelease version, if any.
func LatestPrereleaseOf(alg Algebra, versions []string) string {
	sorted := append([]string(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return alg.Less(sorted[j], sorted[i]) })
	for _, v := range sorted {
		if alg.IsPrerelease(v) {
			return v
		}
	}
	return ""
}

// DedupDescending deduplicates versions and sorts them descending using
// the ecosystem's ordering rule, per spec §3's all_versions invariant.
func DedupDescending(alg Algebra, versions []string) []string {
	out := lo.Uniq(versions)
	sort.Slice(out, func(i, j int) bool { return alg.Less(out[j], out[i]) })
	return out
}

// lexicalAlgebra is the fallback used when an ecosystem's version cannot
// be parsed at all; ordering degrades to byte-wise string comparison and
// every Classify call reports Approximate.
type lexicalAlgebra struct{}

func (lexicalAlgebra) Less(a, b string) bool      { return a < b }
func (lexicalAlgebra) IsPrerelease(string) bool   { return false }
func (lexicalAlgebra) Satisfies(v, spec string) bool { return v == spec }
func (lexicalAlgebra) Classify(current, candidate string) Classification {
	kind := UpdateNone
	if current != candidate {
		if current < candidate {
			kind = UpdateMinor
		} else {
			kind = UpdateNone
		}
	}
	return Classification{Kind: kind, Approximate: true}
}
