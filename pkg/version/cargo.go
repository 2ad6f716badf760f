package version

import (
	"github.com/Masterminds/semver/v3"
)

// cargoAlgebra implements Cargo's semver rules via Masterminds/semver/v3,
// the same library ortelius-pdvd-backend uses for its own OSV range
// matching (util/helpers.go).
type cargoAlgebra struct{}

func (cargoAlgebra) Less(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

func (cargoAlgebra) IsPrerelease(v string) bool {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return sv.Prerelease() != ""
}

func (cargoAlgebra) Satisfies(v, spec string) bool {
	c, err := semver.NewConstraint(spec)
	if err != nil {
		return false
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return c.Check(sv)
}

func (a cargoAlgebra) Classify(current, candidate string) Classification {
	cv, errC := semver.NewVersion(current)
	nv, errN := semver.NewVersion(candidate)
	if errC != nil || errN != nil {
		return lexicalAlgebra{}.Classify(current, candidate)
	}
	return classifySemver(cv, nv)
}

// classifySemver is the shared major/minor/patch/prerelease/none
// classification for every ecosystem whose versions parse as semver.Version.
func classifySemver(cv, nv *semver.Version) Classification {
	if cv.Equal(nv) {
		return Classification{Kind: UpdateNone}
	}
	if !cv.LessThan(nv) {
		// candidate is not newer than current: nothing to suggest.
		return Classification{Kind: UpdateNone}
	}
	if nv.Prerelease() != "" && cv.Major() == nv.Major() && cv.Minor() == nv.Minor() && cv.Patch() == nv.Patch() {
		return Classification{Kind: UpdatePrerelease}
	}
	switch {
	case nv.Major() != cv.Major():
		return Classification{Kind: UpdateMajor}
	case nv.Minor() != cv.Minor():
		return Classification{Kind: UpdateMinor}
	default:
		return Classification{Kind: UpdatePatch}
	}
}
