package version

// dartAlgebra covers pub.dev versioning, which follows semver with the
// addition of build metadata conventions pub itself treats as plain
// semver build tags; Masterminds/semver/v3 models this directly.
type dartAlgebra struct {
	cargoAlgebra
}
