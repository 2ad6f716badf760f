// Package ecosystem enumerates the package ecosystems packradar understands.
package ecosystem

// Ecosystem identifies a package registry family.
type Ecosystem string

const (
	Cargo     Ecosystem = "cargo"
	NPM       Ecosystem = "npm"
	PyPI      Ecosystem = "pypi"
	Go        Ecosystem = "go"
	Packagist Ecosystem = "packagist"
	Pub       Ecosystem = "pub"
	NuGet     Ecosystem = "nuget"
	RubyGems  Ecosystem = "rubygems"
)

// All returns every supported ecosystem, in a stable order.
func All() []Ecosystem {
	return []Ecosystem{Cargo, NPM, PyPI, Go, Packagist, Pub, NuGet, RubyGems}
}

// DefaultRegistry returns the identifier of the public registry for an
// ecosystem. Alternate/private registries are resolved by pkg/router.
func (e Ecosystem) DefaultRegistry() string {
	switch e {
	case Cargo:
		return "crates.io"
	case NPM:
		return "registry.npmjs.org"
	case PyPI:
		return "pypi.org"
	case Go:
		return "proxy.golang.org"
	case Packagist:
		return "packagist.org"
	case Pub:
		return "pub.dev"
	case NuGet:
		return "api.nuget.org"
	case RubyGems:
		return "rubygems.org"
	default:
		return ""
	}
}

// PurlType returns the package-url type string for the ecosystem, per
// https://github.com/package-url/purl-spec.
func (e Ecosystem) PurlType() string {
	switch e {
	case Cargo:
		return "cargo"
	case NPM:
		return "npm"
	case PyPI:
		return "pypi"
	case Go:
		return "golang"
	case Packagist:
		return "composer"
	case Pub:
		return "pub"
	case NuGet:
		return "nuget"
	case RubyGems:
		return "gem"
	default:
		return string(e)
	}
}
