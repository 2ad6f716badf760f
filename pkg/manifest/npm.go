package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// NPMParser recognizes package.json's dependency blocks by scanning for
// each section header and the quoted "name": "spec" pairs beneath it,
// rather than decoding the whole document through encoding/json: a
// structural decode loses the byte offsets spans need, and a single
// invalid entry elsewhere in the file would otherwise fail the whole parse.
type NPMParser struct{}

var (
	npmSectionRe = regexp.MustCompile(`^\s*"(dependencies|devDependencies|peerDependencies|optionalDependencies)"\s*:\s*\{?\s*$`)
	npmEntryRe   = regexp.MustCompile(`^\s*"([^"]+)"\s*:\s*"([^"]*)"\s*,?\s*$`)
	npmCloseRe   = regexp.MustCompile(`^\s*\}`)
)

func npmKindForSection(section string) descriptor.Kind {
	switch section {
	case "devDependencies":
		return descriptor.KindDev
	case "peerDependencies":
		return descriptor.KindPeer
	case "optionalDependencies":
		return descriptor.KindOptional
	default:
		return descriptor.KindRuntime
	}
}

func (NPMParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	section := ""
	depth := 0
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if section == "" {
			if m := npmSectionRe.FindStringSubmatch(ln.text); m != nil {
				section = m[1]
				depth = 1
				if strings.HasSuffix(trimmed, "{") {
					continue
				}
			}
			continue
		}
		if npmCloseRe.MatchString(ln.text) {
			depth--
			if depth <= 0 {
				section = ""
			}
			continue
		}

		m := npmEntryRe.FindStringSubmatch(ln.text)
		idx := npmEntryRe.FindStringSubmatchIndex(ln.text)
		if m == nil {
			continue
		}
		name := m[1]
		spec := m[2]

		d := descriptor.Descriptor{
			Ecosystem:    ecosystem.NPM,
			Name:         name,
			DeclaredSpec: spec,
			NameSpan:     ln.spanAt(idx[2], idx[3]),
			VersionSpan:  ln.spanAt(idx[4], idx[5]),
			Kind:         npmKindForSection(section),
			SourceKind:   descriptor.SourceRegistry,
		}

		if strings.HasPrefix(name, "@") {
			if i := strings.Index(name, "/"); i > 0 {
				d.RoutingHint.Scope = strings.TrimPrefix(name[:i], "@")
			}
		}

		switch {
		case strings.HasPrefix(spec, "file:"), strings.HasPrefix(spec, "link:"):
			d.SourceKind = descriptor.SourceLocalPath
		case strings.HasPrefix(spec, "git"), strings.Contains(spec, "git+"):
			d.SourceKind = descriptor.SourceGit
		case strings.HasPrefix(spec, "http"):
			d.SourceKind = descriptor.SourceGit
		case strings.HasPrefix(spec, "npm:"):
			d.SourceKind = descriptor.SourceRegistry
		}

		out = append(out, d)
	}
	return out
}
