package version

import (
	"strconv"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// pypiAlgebra implements PEP 440 ordering via aquasecurity/go-pep440-version,
// the same library ortelius-pdvd-backend uses for its own PyPI OSV range
// matching (util/helpers.go's isVersionInRangePython).
type pypiAlgebra struct{}

func (pypiAlgebra) Less(a, b string) bool {
	va, errA := pep440.Parse(a)
	vb, errB := pep440.Parse(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

func (pypiAlgebra) IsPrerelease(v string) bool {
	pv, err := pep440.Parse(v)
	if err != nil {
		return false
	}
	return pv.IsPreRelease()
}

// Satisfies implements PEP 440's operators, including the compatible
// release operator ~= per spec §4.1: "~=X.Y" means ">=X.Y, <X+1" and
// "~=X.Y.Z" means ">=X.Y.Z, <X.Y+1".
func (a pypiAlgebra) Satisfies(v, spec string) bool {
	pv, err := pep440.Parse(v)
	if err != nil {
		return v == spec
	}

	specs := strings.Split(spec, ",")
	for _, raw := range specs {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if !satisfiesOne(pv, s) {
			return false
		}
	}
	return true
}

func satisfiesOne(pv pep440.Version, spec string) bool {
	switch {
	case strings.HasPrefix(spec, "~="):
		return satisfiesCompatible(pv, strings.TrimSpace(spec[2:]))
	case strings.HasPrefix(spec, ">="):
		other, err := pep440.Parse(strings.TrimSpace(spec[2:]))
		return err == nil && !pv.LessThan(other)
	case strings.HasPrefix(spec, "<="):
		other, err := pep440.Parse(strings.TrimSpace(spec[2:]))
		return err == nil && !other.LessThan(pv)
	case strings.HasPrefix(spec, "!="):
		other, err := pep440.Parse(strings.TrimSpace(spec[2:]))
		return err == nil && !pv.Equal(other)
	case strings.HasPrefix(spec, "=="):
		other, err := pep440.Parse(strings.TrimSpace(strings.TrimSuffix(spec[2:], ".*")))
		return err == nil && pv.Equal(other)
	case strings.HasPrefix(spec, ">"):
		other, err := pep440.Parse(strings.TrimSpace(spec[1:]))
		return err == nil && other.LessThan(pv)
	case strings.HasPrefix(spec, "<"):
		other, err := pep440.Parse(strings.TrimSpace(spec[1:]))
		return err == nil && pv.LessThan(other)
	default:
		other, err := pep440.Parse(spec)
		return err == nil && pv.Equal(other)
	}
}

// satisfiesCompatible expands ~=X.Y(.Z...) into [>=X.Y(.Z...), <next] and
// checks membership, per PEP 440 §Compatible release clause.
func satisfiesCompatible(pv pep440.Version, base string) bool {
	lower, err := pep440.Parse(base)
	if err != nil {
		return false
	}
	if pv.LessThan(lower) {
		return false
	}

	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return false
	}
	// Drop the last release segment to compute the exclusive upper bound:
	// ~=X.Y   -> <(X+1).0
	// ~=X.Y.Z -> <X.(Y+1).0
	truncated := parts[:len(parts)-1]
	lastIdx := len(truncated) - 1
	n, err := strconv.Atoi(truncated[lastIdx])
	if err != nil {
		return false
	}
	truncated[lastIdx] = strconv.Itoa(n + 1)
	upperStr := strings.Join(truncated, ".")
	upper, err := pep440.Parse(upperStr)
	if err != nil {
		return false
	}
	return pv.LessThan(upper)
}

// releaseSegments returns the numeric release segment of v (e.g. "1.2.3" ->
// []int{1, 2, 3}), mirroring what a Release() []int accessor would return.
func releaseSegments(v pep440.Version) []int {
	base := v.BaseVersion()
	if idx := strings.Index(base, "!"); idx != -1 {
		base = base[idx+1:]
	}
	if base == "" {
		return nil
	}
	parts := strings.Split(base, ".")
	segs := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		segs = append(segs, n)
	}
	return segs
}

func (a pypiAlgebra) Classify(current, candidate string) Classification {
	cv, errC := pep440.Parse(current)
	nv, errN := pep440.Parse(candidate)
	if errC != nil || errN != nil {
		return lexicalAlgebra{}.Classify(current, candidate)
	}
	if cv.Equal(nv) || !cv.LessThan(nv) {
		return Classification{Kind: UpdateNone}
	}
	if nv.IsPreRelease() {
		return Classification{Kind: UpdatePrerelease}
	}

	cRel := releaseSegments(cv)
	nRel := releaseSegments(nv)
	get := func(r []int, i int) int {
		if i < len(r) {
			return r[i]
		}
		return 0
	}
	switch {
	case get(nRel, 0) != get(cRel, 0):
		return Classification{Kind: UpdateMajor}
	case get(nRel, 1) != get(cRel, 1):
		return Classification{Kind: UpdateMinor}
	default:
		return Classification{Kind: UpdatePatch}
	}
}
