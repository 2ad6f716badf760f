package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	npm "github.com/aquasecurity/go-npm-version/pkg"
)

// npmAlgebra uses aquasecurity/go-npm-version for ordering (the same
// library ortelius-pdvd-backend uses to resolve OSV ranges against npm
// versions, util/helpers.go's isVersionInRangeNPM) and a small numeric
// parse of our own for major/minor/patch classification, since the
// library does not expose its parsed components.
type npmAlgebra struct{}

var npmNumericRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?`)

func (npmAlgebra) Less(a, b string) bool {
	va, errA := npm.NewVersion(a)
	vb, errB := npm.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

func (npmAlgebra) IsPrerelease(v string) bool {
	m := npmNumericRe.FindStringSubmatch(v)
	if m == nil {
		return strings.Contains(v, "-")
	}
	return m[4] != ""
}

func (npmAlgebra) Satisfies(v, spec string) bool {
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

func (a npmAlgebra) Classify(current, candidate string) Classification {
	cv, errC := npm.NewVersion(current)
	nv, errN := npm.NewVersion(candidate)
	if errC != nil || errN != nil {
		return lexicalAlgebra{}.Classify(current, candidate)
	}
	if !cv.LessThan(nv) {
		return Classification{Kind: UpdateNone}
	}

	cm := npmNumericRe.FindStringSubmatch(current)
	nm := npmNumericRe.FindStringSubmatch(candidate)
	if cm == nil || nm == nil {
		return Classification{Kind: UpdateMinor, Approximate: true}
	}

	cMajor, _ := strconv.Atoi(cm[1])
	cMinor, _ := strconv.Atoi(cm[2])
	cPatch, _ := strconv.Atoi(cm[3])
	nMajor, _ := strconv.Atoi(nm[1])
	nMinor, _ := strconv.Atoi(nm[2])
	nPatch, _ := strconv.Atoi(nm[3])

	if nm[4] != "" && cMajor == nMajor && cMinor == nMinor && cPatch == nPatch {
		return Classification{Kind: UpdatePrerelease}
	}
	switch {
	case nMajor != cMajor:
		return Classification{Kind: UpdateMajor}
	case nMinor != cMinor:
		return Classification{Kind: UpdateMinor}
	default:
		return Classification{Kind: UpdatePatch}
	}
}
