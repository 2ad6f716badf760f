package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// RequirementsParser recognizes requirements.txt's line-oriented grammar:
// a package name, optional extras, and a comma-joined set of PEP 440
// operators, with inline comments and "-e ..." editable entries handled
// per line so one malformed line never drops the rest of the file.
type RequirementsParser struct{}

var requirementRe = regexp.MustCompile(
	`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[[^\]]*\])?\s*((?:[=<>!~]=?[^,#\s]+\s*,?\s*)*)`)

// normalizePyName applies PEP 503's normalization: lowercase, runs of
// "-_." collapse to a single "-".
func normalizePyName(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		if r == '-' || r == '_' || r == '.' {
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
			continue
		}
		b.WriteRune(r)
		lastDash = false
	}
	return b.String()
}

func (RequirementsParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	for _, ln := range lines {
		text := ln.text
		if h := strings.Index(text, "#"); h >= 0 {
			text = text[:h]
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-e ") || strings.HasPrefix(trimmed, "--editable") {
			continue // editable/VCS installs are non-registry sources, dropped.
		}
		if strings.HasPrefix(trimmed, "-") {
			continue // pip option flags, e.g. -r, -c, --index-url.
		}

		idx := requirementRe.FindStringSubmatchIndex(text)
		if idx == nil {
			continue
		}
		name := text[idx[2]:idx[3]]
		specStart, specEnd := idx[4], idx[5]
		spec := strings.TrimSpace(text[specStart:specEnd])

		d := descriptor.Descriptor{
			Ecosystem:  ecosystem.PyPI,
			Name:       normalizePyName(name),
			NameSpan:   ln.spanAt(idx[2], idx[3]),
			Kind:       descriptor.KindRuntime,
			SourceKind: descriptor.SourceRegistry,
		}
		if spec != "" {
			d.DeclaredSpec = spec
			// Trim trailing whitespace from the captured span to match spec.
			end := specEnd
			for end > specStart && (text[end-1] == ' ' || text[end-1] == '\t') {
				end--
			}
			d.VersionSpan = ln.spanAt(specStart, end)
		}
		out = append(out, d)
	}
	return out
}

// PyprojectParser recognizes pyproject.toml's [project].dependencies,
// [project.optional-dependencies.*], [tool.poetry.dependencies], and
// [tool.poetry.dev-dependencies] tables, line by line like CargoParser.
type PyprojectParser struct{}

var (
	pyprojectSectionRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)
	pyprojectListItemRe = regexp.MustCompile(`^\s*"([^"]+)"\s*,?\s*$`)
	pyprojectPoetryRe   = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*=\s*"([^"]*)"`)
)

func (PyprojectParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	section := ""
	for _, ln := range lines {
		if m := pyprojectSectionRe.FindStringSubmatch(ln.text); m != nil {
			section = strings.TrimSpace(m[1])
			continue
		}

		switch {
		case section == "project" || strings.HasPrefix(section, "project.optional-dependencies"):
			// PEP 621 lists bare requirement strings: "requests>=2.0".
			m := pyprojectListItemRe.FindStringSubmatch(ln.text)
			idx := pyprojectListItemRe.FindStringSubmatchIndex(ln.text)
			if m == nil {
				continue
			}
			kind := descriptor.KindRuntime
			if strings.HasPrefix(section, "project.optional-dependencies") {
				kind = descriptor.KindOptional
			}
			out = append(out, parsePep621Entry(ln, idx[2], idx[3], kind)...)

		case section == "tool.poetry.dependencies" || section == "tool.poetry.dev-dependencies":
			m := pyprojectPoetryRe.FindStringSubmatch(ln.text)
			idx := pyprojectPoetryRe.FindStringSubmatchIndex(ln.text)
			if m == nil {
				continue
			}
			name := m[1]
			if strings.EqualFold(name, "python") {
				continue
			}
			kind := descriptor.KindRuntime
			if section == "tool.poetry.dev-dependencies" {
				kind = descriptor.KindDev
			}
			out = append(out, descriptor.Descriptor{
				Ecosystem:    ecosystem.PyPI,
				Name:         normalizePyName(name),
				DeclaredSpec: m[2],
				NameSpan:     ln.spanAt(idx[2], idx[3]),
				VersionSpan:  ln.spanAt(idx[4], idx[5]),
				Kind:         kind,
				SourceKind:   descriptor.SourceRegistry,
			})
		}
	}
	return out
}

// parsePep621Entry splits a bare "name>=1.0" requirement string captured
// between [start,end) in ln into a single descriptor.
func parsePep621Entry(ln sourceLine, start, end int, kind descriptor.Kind) []descriptor.Descriptor {
	text := ln.text[start:end]
	idx := requirementRe.FindStringSubmatchIndex(text)
	if idx == nil {
		return nil
	}
	name := text[idx[2]:idx[3]]
	spec := strings.TrimSpace(text[idx[4]:idx[5]])
	d := descriptor.Descriptor{
		Ecosystem:  ecosystem.PyPI,
		Name:       normalizePyName(name),
		NameSpan:   ln.spanAt(start+idx[2], start+idx[3]),
		Kind:       kind,
		SourceKind: descriptor.SourceRegistry,
	}
	if spec != "" {
		d.DeclaredSpec = spec
		d.VersionSpan = ln.spanAt(start+idx[4], start+idx[5])
	}
	return []descriptor.Descriptor{d}
}
