package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// GoModParser recognizes go.mod's require blocks (both the single-line and
// parenthesized forms), the "// indirect" marker, and replace directives,
// per line like the other parsers so a malformed directive elsewhere in
// the file never drops its well-formed siblings.
type GoModParser struct{}

var (
	goRequireBlockStart = regexp.MustCompile(`^\s*require\s*\(\s*$`)
	goRequireLine        = regexp.MustCompile(`^\s*require\s+(\S+)\s+(\S+)\s*(//\s*indirect)?\s*$`)
	goModuleLine         = regexp.MustCompile(`^\s*(\S+)\s+(\S+)\s*(//\s*indirect)?\s*$`)
	goReplaceLine        = regexp.MustCompile(`^\s*replace\s+(\S+)(?:\s+\S+)?\s*=>\s*(\S+)(?:\s+(\S+))?\s*$`)
	goPseudoVersionRe    = regexp.MustCompile(`-\d{14}-[0-9a-f]{12}(\+incompatible)?$`)
	goExcludeLine        = regexp.MustCompile(`^\s*exclude\s+(\S+)\s+(\S+)\s*$`)
)

func (GoModParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)

	replaced := map[string]bool{}
	for _, ln := range lines {
		if m := goReplaceLine.FindStringSubmatch(ln.text); m != nil {
			replaced[m[1]] = true
		}
	}

	var out []descriptor.Descriptor
	inBlock := false
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if trimmed == ")" {
			inBlock = false
			continue
		}
		if goRequireBlockStart.MatchString(ln.text) {
			inBlock = true
			continue
		}
		if strings.HasPrefix(trimmed, "replace") || strings.HasPrefix(trimmed, "exclude") ||
			strings.HasPrefix(trimmed, "module") || strings.HasPrefix(trimmed, "go ") ||
			strings.HasPrefix(trimmed, "toolchain") {
			continue
		}

		var m []string
		var idx []int
		if inBlock {
			m = goModuleLine.FindStringSubmatch(ln.text)
			idx = goModuleLine.FindStringSubmatchIndex(ln.text)
		} else if strings.HasPrefix(trimmed, "require ") {
			m = goRequireLine.FindStringSubmatch(ln.text)
			idx = goRequireLine.FindStringSubmatchIndex(ln.text)
		}
		if m == nil {
			continue
		}

		path := m[1]
		ver := m[2]
		d := descriptor.Descriptor{
			Ecosystem:    ecosystem.Go,
			Name:         path,
			DeclaredSpec: ver,
			NameSpan:     sourceSpanIndex(ln, idx, 2, 3),
			VersionSpan:  sourceSpanIndex(ln, idx, 4, 5),
			Kind:         descriptor.KindRuntime,
			SourceKind:   descriptor.SourceRegistry,
		}
		if m[3] != "" {
			d.Kind = descriptor.KindIndirect
		}
		if replaced[path] {
			d.SourceKind = descriptor.SourceReplaced
		} else if goPseudoVersionRe.MatchString(ver) {
			d.SourceKind = descriptor.SourcePseudo
		}
		out = append(out, d)
	}
	return out
}

// sourceSpanIndex guards against a regex submatch group that did not
// participate (index pair is -1,-1), returning a zero Span in that case.
func sourceSpanIndex(ln sourceLine, idx []int, groupStart, groupEnd int) descriptor.Span {
	if idx[groupStart] < 0 {
		return descriptor.Span{}
	}
	return ln.spanAt(idx[groupStart], idx[groupEnd])
}
