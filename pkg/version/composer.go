package version

// composerAlgebra reuses Cargo's semver-based ordering: Composer (and
// npm's own semver, prior to npm-specific quirks) share the same core
// grammar. Composer's "dev-*" branch aliases are filtered out upstream by
// the composer.json parser (SourceKind != registry), so by the time a
// version reaches here it is expected to be plain semver.
type composerAlgebra struct {
	cargoAlgebra
}
