// Package manifest parses dependency manifests into descriptors the engine
// can look up, mirroring the closed-set dispatch rediverio-sdk's
// pkg/scanners.Registry uses to pick a scanner implementation by name.
package manifest

import (
	"path/filepath"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
)

// Parser extracts dependency descriptors from one manifest dialect. Parsers
// must be total: malformed input degrades to a partial result, never an
// error and never a panic, because editors send incomplete documents on
// every keystroke.
type Parser interface {
	// Parse returns every descriptor it can recover from src.
	Parse(src []byte) []descriptor.Descriptor
}

// Registry dispatches a document to its parser by filename, the same
// map-based closed-set pattern the teacher's scanner registry uses instead
// of an open interface hierarchy.
type Registry struct {
	byBasename map[string]Parser
	bySuffix   map[string]Parser
}

// NewRegistry builds the registry with every built-in parser wired in.
func NewRegistry() *Registry {
	return &Registry{
		byBasename: map[string]Parser{
			"cargo.toml":   CargoParser{},
			"package.json": NPMParser{},
			"go.mod":       GoModParser{},
			"composer.json": ComposerParser{},
			"pubspec.yaml": PubspecParser{},
			"gemfile":      GemfileParser{},
			"requirements.txt": RequirementsParser{},
			"pyproject.toml":   PyprojectParser{},
		},
		bySuffix: map[string]Parser{
			".csproj": NuGetParser{},
		},
	}
}

// ForPath returns the parser registered for a document's path, or nil if
// the path names no recognized manifest dialect.
func (r *Registry) ForPath(path string) Parser {
	base := strings.ToLower(filepath.Base(path))
	if p, ok := r.byBasename[base]; ok {
		return p
	}
	if strings.HasPrefix(base, "requirements") && strings.HasSuffix(base, ".txt") {
		return RequirementsParser{}
	}
	ext := strings.ToLower(filepath.Ext(base))
	if p, ok := r.bySuffix[ext]; ok {
		return p
	}
	return nil
}

// Parse is a convenience that looks up and invokes the parser for path,
// returning nil if the path is not a recognized manifest.
func (r *Registry) Parse(path string, src []byte) []descriptor.Descriptor {
	p := r.ForPath(path)
	if p == nil {
		return nil
	}
	return p.Parse(src)
}
