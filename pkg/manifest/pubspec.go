package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// PubspecParser recognizes pubspec.yaml's dependency maps by indentation,
// since YAML's structure (unlike JSON's braces) is whitespace-significant:
// a top-level "dependencies:" key introduces a block of two-space-indented
// package names, each either a scalar version constraint or the head of a
// nested { sdk | git | path | hosted } map.
type PubspecParser struct{}

var (
	pubspecSectionRe = regexp.MustCompile(`^(dependencies|dev_dependencies|dependency_overrides):\s*$`)
	pubspecEntryRe   = regexp.MustCompile(`^(\s+)([A-Za-z0-9_]+)\s*:\s*(.*)$`)
)

func pubspecKindForSection(section string) descriptor.Kind {
	switch section {
	case "dev_dependencies":
		return descriptor.KindDev
	case "dependency_overrides":
		return descriptor.KindOptional
	default:
		return descriptor.KindRuntime
	}
}

func (PubspecParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	section := ""
	entryIndent := -1
	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		if m := pubspecSectionRe.FindStringSubmatch(ln.text); m != nil {
			section = m[1]
			entryIndent = -1
			continue
		}
		if section == "" {
			continue
		}
		if strings.TrimSpace(ln.text) == "" {
			continue
		}

		indent := len(ln.text) - len(strings.TrimLeft(ln.text, " "))
		if indent == 0 {
			section = "" // dedented back to a sibling top-level key.
			continue
		}

		m := pubspecEntryRe.FindStringSubmatch(ln.text)
		idx := pubspecEntryRe.FindStringSubmatchIndex(ln.text)
		if m == nil {
			continue
		}
		if entryIndent == -1 {
			entryIndent = len(m[1])
		}
		if indent != entryIndent {
			continue // a nested field under a map-form entry, already handled below.
		}

		name := m[2]
		val := strings.TrimSpace(m[3])

		d := descriptor.Descriptor{
			Ecosystem:  ecosystem.Pub,
			Name:       name,
			NameSpan:   ln.spanAt(idx[4], idx[5]),
			Kind:       pubspecKindForSection(section),
			SourceKind: descriptor.SourceRegistry,
		}

		if val != "" && !strings.HasPrefix(val, "#") {
			d.DeclaredSpec = val
			specStart := idx[6]
			specEnd := idx[7]
			for specEnd > specStart && (ln.text[specEnd-1] == ' ' || ln.text[specEnd-1] == '\t') {
				specEnd--
			}
			d.VersionSpan = ln.spanAt(specStart, specEnd)
			out = append(out, d)
			continue
		}

		// Map-form entry: peek at the nested lines for sdk/git/path/hosted.
		d.SourceKind = classifyPubspecMapEntry(lines, i+1, entryIndent)
		out = append(out, d)
	}
	return out
}

func classifyPubspecMapEntry(lines []sourceLine, from, parentIndent int) descriptor.SourceKind {
	for j := from; j < len(lines); j++ {
		text := lines[j].text
		if strings.TrimSpace(text) == "" {
			continue
		}
		indent := len(text) - len(strings.TrimLeft(text, " "))
		if indent <= parentIndent {
			break
		}
		trimmed := strings.TrimSpace(text)
		switch {
		case strings.HasPrefix(trimmed, "sdk:"):
			return descriptor.SourceSDK
		case strings.HasPrefix(trimmed, "git:"):
			return descriptor.SourceGit
		case strings.HasPrefix(trimmed, "path:"):
			return descriptor.SourceLocalPath
		case strings.HasPrefix(trimmed, "hosted:"):
			return descriptor.SourceRegistry
		}
	}
	return descriptor.SourceRegistry
}
