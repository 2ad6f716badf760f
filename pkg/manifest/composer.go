package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// ComposerParser recognizes composer.json's require/require-dev sections,
// the same line-scanning shape as NPMParser since both are flat JSON
// string-to-string maps.
type ComposerParser struct{}

var composerSectionRe = regexp.MustCompile(`^\s*"(require|require-dev)"\s*:\s*\{?\s*$`)

func (ComposerParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	section := ""
	for _, ln := range lines {
		if section == "" {
			if m := composerSectionRe.FindStringSubmatch(ln.text); m != nil {
				section = m[1]
			}
			continue
		}
		if npmCloseRe.MatchString(ln.text) {
			section = ""
			continue
		}

		m := npmEntryRe.FindStringSubmatch(ln.text)
		idx := npmEntryRe.FindStringSubmatchIndex(ln.text)
		if m == nil {
			continue
		}
		name := m[1]
		spec := m[2]

		if name == "php" || strings.HasPrefix(name, "ext-") || strings.HasPrefix(name, "lib-") || name == "composer-plugin-api" {
			continue // platform requirements are not registry packages.
		}

		kind := descriptor.KindRuntime
		if section == "require-dev" {
			kind = descriptor.KindDev
		}

		d := descriptor.Descriptor{
			Ecosystem:    ecosystem.Packagist,
			Name:         strings.ToLower(name),
			DeclaredSpec: spec,
			NameSpan:     ln.spanAt(idx[2], idx[3]),
			VersionSpan:  ln.spanAt(idx[4], idx[5]),
			Kind:         kind,
			SourceKind:   descriptor.SourceRegistry,
		}
		if strings.HasPrefix(spec, "dev-") || strings.HasSuffix(spec, "-dev") {
			d.SourceKind = descriptor.SourceGit
		}
		out = append(out, d)
	}
	return out
}
