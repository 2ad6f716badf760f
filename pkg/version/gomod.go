package version

import (
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// goAlgebra covers Go module versions: semver via Masterminds/semver/v3
// after normalizing the "+incompatible" suffix go mod tooling appends to
// pre-module major versions, plus pseudo-version recognition so the engine
// can mark a pseudo-version dependency's "latest" suggestion as approximate
// rather than a clean major/minor/patch bump.
type goAlgebra struct{}

// pseudoVersionRe matches vX.Y.Z-yyyymmddhhmmss-abcdef012345[+incompatible],
// the format `go mod` generates for commits without a tagged release.
var pseudoVersionRe = regexp.MustCompile(`-(\d{14})-([0-9a-f]{12})(\+incompatible)?$`)

func normalizeGomod(v string) string {
	const suffix = "+incompatible"
	if len(v) > len(suffix) && v[len(v)-len(suffix):] == suffix {
		return v[:len(v)-len(suffix)]
	}
	return v
}

func (goAlgebra) Less(a, b string) bool {
	va, errA := semver.NewVersion(normalizeGomod(a))
	vb, errB := semver.NewVersion(normalizeGomod(b))
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

func (goAlgebra) IsPrerelease(v string) bool {
	sv, err := semver.NewVersion(normalizeGomod(v))
	if err != nil {
		return false
	}
	return sv.Prerelease() != ""
}

func (goAlgebra) Satisfies(v, spec string) bool {
	c, err := semver.NewConstraint(spec)
	if err != nil {
		return false
	}
	sv, err := semver.NewVersion(normalizeGomod(v))
	if err != nil {
		return false
	}
	return c.Check(sv)
}

func (a goAlgebra) Classify(current, candidate string) Classification {
	cv, errC := semver.NewVersion(normalizeGomod(current))
	nv, errN := semver.NewVersion(normalizeGomod(candidate))
	if errC != nil || errN != nil {
		return lexicalAlgebra{}.Classify(current, candidate)
	}
	c := classifySemver(cv, nv)
	if pseudoVersionRe.MatchString(candidate) {
		c.Approximate = true
	}
	return c
}
