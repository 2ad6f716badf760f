package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// GemfileParser recognizes "gem \"name\", ...constraints..." lines with a
// regular-expression recognizer, per the Gemfile's domain-specific-language
// shape: it is Ruby source, not a declarative format, so a full parse would
// mean embedding a Ruby interpreter. group blocks are tracked only well
// enough to label the dependency kind; git:/path: options mark non-registry
// sources.
type GemfileParser struct{}

var (
	gemGroupOpenRe  = regexp.MustCompile(`^\s*group\s+(.+?)\s+do\s*$`)
	gemGroupCloseRe = regexp.MustCompile(`^\s*end\s*$`)
	gemLineRe       = regexp.MustCompile(`^\s*gem\s+"([^"]+)"(.*)$`)
	gemConstraintRe = regexp.MustCompile(`"((?:[~<>=!]+\s*)?[0-9][^"]*)"`)
	gemGitOptRe     = regexp.MustCompile(`:git\s*=>|git:`)
	gemPathOptRe    = regexp.MustCompile(`:path\s*=>|path:`)
)

func gemKindForGroups(groups []string) descriptor.Kind {
	for _, g := range groups {
		switch {
		case strings.Contains(g, "development"), strings.Contains(g, "test"):
			return descriptor.KindDev
		}
	}
	return descriptor.KindRuntime
}

func (GemfileParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	var groupStack []string
	for _, ln := range lines {
		if m := gemGroupOpenRe.FindStringSubmatch(ln.text); m != nil {
			groupStack = append(groupStack, m[1])
			continue
		}
		if gemGroupCloseRe.MatchString(ln.text) && len(groupStack) > 0 {
			groupStack = groupStack[:len(groupStack)-1]
			continue
		}

		idx := gemLineRe.FindStringSubmatchIndex(ln.text)
		if idx == nil {
			continue
		}
		name := ln.text[idx[2]:idx[3]]
		rest := ln.text[idx[4]:idx[5]]
		restOffset := idx[4]

		d := descriptor.Descriptor{
			Ecosystem:  ecosystem.RubyGems,
			Name:       name,
			NameSpan:   ln.spanAt(idx[2], idx[3]),
			Kind:       gemKindForGroups(groupStack),
			SourceKind: descriptor.SourceRegistry,
		}

		switch {
		case gemGitOptRe.MatchString(rest):
			d.SourceKind = descriptor.SourceGit
		case gemPathOptRe.MatchString(rest):
			d.SourceKind = descriptor.SourceLocalPath
		}

		// Constraints are comma-separated quoted strings following the name,
		// e.g. gem "rails", "~> 7.0", ">= 7.0.2".
		var specs []string
		var firstStart, lastEnd = -1, -1
		for _, cidx := range gemConstraintRe.FindAllStringSubmatchIndex(rest, -1) {
			specs = append(specs, rest[cidx[2]:cidx[3]])
			if firstStart == -1 {
				firstStart = cidx[2]
			}
			lastEnd = cidx[3]
		}
		if len(specs) > 0 {
			d.DeclaredSpec = strings.Join(specs, ", ")
			d.VersionSpan = ln.spanAt(restOffset+firstStart, restOffset+lastEnd)
		}

		out = append(out, d)
	}
	return out
}
