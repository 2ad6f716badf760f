// Package descriptor holds the dependency descriptor emitted by manifest
// parsers and consumed by the engine.
package descriptor

import "github.com/packradar/packradar/pkg/ecosystem"

// Kind classifies why a dependency was declared.
type Kind string

const (
	KindRuntime  Kind = "runtime"
	KindDev      Kind = "dev"
	KindBuild    Kind = "build"
	KindPeer     Kind = "peer"
	KindOptional Kind = "optional"
	KindIndirect Kind = "indirect"
	KindWorkspace Kind = "workspace"
)

// SourceKind classifies how a dependency should be resolved.
type SourceKind string

const (
	SourceRegistry  SourceKind = "registry"
	SourceLocalPath SourceKind = "local-path"
	SourceGit       SourceKind = "git"
	SourceSDK       SourceKind = "sdk"
	SourceReplaced  SourceKind = "replaced"
	SourcePseudo    SourceKind = "pseudo"
)

// Span is a byte range [Start, End) inside the source document.
type Span struct {
	Start int
	End   int
}

// RoutingHint carries per-descriptor metadata that selects a non-default
// fetcher: a Cargo alternative registry name, or an npm scope.
type RoutingHint struct {
	RegistryName string
	Scope        string
}

// Empty reports whether the hint carries no routing information.
func (h RoutingHint) Empty() bool {
	return h.RegistryName == "" && h.Scope == ""
}

// Descriptor is the parser's output: a package identity plus the span in
// the source document that should be decorated.
type Descriptor struct {
	Ecosystem    ecosystem.Ecosystem
	Name         string
	DeclaredSpec string
	NameSpan     Span
	VersionSpan  Span
	Kind         Kind
	RoutingHint  RoutingHint
	SourceKind   SourceKind
}

// DecorationSpan returns the span that should be decorated: the version literal's
// span if present, otherwise the name's span, per spec span-fidelity rules.
func (d Descriptor) DecorationSpan() Span {
	if d.VersionSpan != (Span{}) {
		return d.VersionSpan
	}
	return d.NameSpan
}
