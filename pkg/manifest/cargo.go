package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// CargoParser recognizes Cargo.toml's dependency tables. It works line by
// line rather than through a generic TOML decoder so every descriptor
// carries a byte-accurate span back into the source, and so a malformed
// table elsewhere in the file never prevents its well-formed siblings from
// being recovered.
type CargoParser struct{}

var (
	cargoSectionRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)
	cargoScalarRe  = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+)\s*=\s*"([^"]*)"`)
	cargoTableRe   = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+)\s*=\s*\{(.*)\}\s*$`)
	cargoFieldRe   = regexp.MustCompile(`(\w+)\s*=\s*"([^"]*)"`)
	cargoWorkTrue  = regexp.MustCompile(`\bworkspace\s*=\s*true\b`)
	cargoPathField = regexp.MustCompile(`\bpath\s*=`)
	cargoGitField  = regexp.MustCompile(`\bgit\s*=`)
)

func cargoKindForSection(section string) (descriptor.Kind, bool) {
	switch {
	case section == "dependencies":
		return descriptor.KindRuntime, true
	case section == "dev-dependencies":
		return descriptor.KindDev, true
	case section == "build-dependencies":
		return descriptor.KindBuild, true
	case section == "workspace.dependencies":
		return descriptor.KindWorkspace, true
	case strings.HasPrefix(section, "target.") && strings.HasSuffix(section, ".dependencies"):
		return descriptor.KindRuntime, true
	}
	return "", false
}

func (CargoParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)

	// First pass: collect [workspace.dependencies] versions so a member's
	// `name = { workspace = true }` reference can resolve against them.
	workspaceVersions := map[string]string{}
	section := ""
	for _, ln := range lines {
		if m := cargoSectionRe.FindStringSubmatch(ln.text); m != nil {
			section = strings.TrimSpace(m[1])
			continue
		}
		if section != "workspace.dependencies" {
			continue
		}
		if m := cargoScalarRe.FindStringSubmatch(ln.text); m != nil {
			workspaceVersions[m[1]] = m[2]
			continue
		}
		if m := cargoTableRe.FindStringSubmatch(ln.text); m != nil {
			if fm := cargoFieldRe.FindStringSubmatch(m[2]); fm != nil && fm[1] == "version" {
				workspaceVersions[m[1]] = fm[2]
			}
		}
	}

	var out []descriptor.Descriptor
	section = ""
	for _, ln := range lines {
		if m := cargoSectionRe.FindStringSubmatch(ln.text); m != nil {
			section = strings.TrimSpace(m[1])
			continue
		}
		kind, ok := cargoKindForSection(section)
		if !ok {
			continue
		}

		if m, idx := cargoScalarRe.FindStringSubmatch(ln.text), cargoScalarRe.FindStringSubmatchIndex(ln.text); m != nil {
			name := m[1]
			d := descriptor.Descriptor{
				Ecosystem:    ecosystem.Cargo,
				Name:         name,
				DeclaredSpec: m[2],
				NameSpan:     ln.spanAt(idx[2], idx[3]),
				VersionSpan:  ln.spanAt(idx[4], idx[5]),
				Kind:         kind,
				SourceKind:   descriptor.SourceRegistry,
			}
			out = append(out, d)
			continue
		}

		if m, idx := cargoTableRe.FindStringSubmatch(ln.text), cargoTableRe.FindStringSubmatchIndex(ln.text); m != nil {
			name := m[1]
			body := m[2]
			d := descriptor.Descriptor{
				Ecosystem:  ecosystem.Cargo,
				Name:       name,
				NameSpan:   ln.spanAt(idx[2], idx[3]),
				Kind:       kind,
				SourceKind: descriptor.SourceRegistry,
			}

			switch {
			case cargoWorkTrue.MatchString(body):
				if v, ok := workspaceVersions[name]; ok {
					d.DeclaredSpec = v
				}
				d.SourceKind = descriptor.SourceRegistry
				if d.DeclaredSpec == "" {
					d.SourceKind = descriptor.SourceLocalPath
				}
			case cargoPathField.MatchString(body):
				d.SourceKind = descriptor.SourceLocalPath
			case cargoGitField.MatchString(body):
				d.SourceKind = descriptor.SourceGit
			}

			tableStart := idx[4] // start of the {...} body capture group within the line
			for _, m2 := range cargoFieldRe.FindAllStringSubmatchIndex(body, -1) {
				field := body[m2[2]:m2[3]]
				val := body[m2[4]:m2[5]]
				switch field {
				case "version":
					d.DeclaredSpec = val
					d.VersionSpan = ln.spanAt(tableStart+m2[4], tableStart+m2[5])
				case "registry":
					d.RoutingHint.RegistryName = val
				}
			}

			out = append(out, d)
		}
	}
	return out
}
