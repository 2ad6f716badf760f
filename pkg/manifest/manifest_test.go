package manifest

import (
	"testing"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

func findByName(descs []descriptor.Descriptor, name string) (descriptor.Descriptor, bool) {
	for _, d := range descs {
		if d.Name == name {
			return d, true
		}
	}
	return descriptor.Descriptor{}, false
}

func TestCargoParserScalarAndTable(t *testing.T) {
	src := []byte(`[package]
name = "demo"

[dependencies]
serde = "1.0"
tokio = { version = "1.28", features = ["full"] }
local-crate = { path = "../local-crate" }

[dev-dependencies]
proptest = "1.2"
`)
	descs := CargoParser{}.Parse(src)

	serde, ok := findByName(descs, "serde")
	if !ok || serde.DeclaredSpec != "1.0" || serde.Kind != descriptor.KindRuntime {
		t.Fatalf("serde descriptor wrong: %+v", serde)
	}
	if string(src[serde.VersionSpan.Start:serde.VersionSpan.End]) != "1.0" {
		t.Fatalf("serde version span %v does not point at literal", serde.VersionSpan)
	}

	tokio, ok := findByName(descs, "tokio")
	if !ok || tokio.DeclaredSpec != "1.28" {
		t.Fatalf("tokio descriptor wrong: %+v", tokio)
	}

	local, ok := findByName(descs, "local-crate")
	if !ok || local.SourceKind != descriptor.SourceLocalPath {
		t.Fatalf("local-crate should be local-path: %+v", local)
	}

	proptest, ok := findByName(descs, "proptest")
	if !ok || proptest.Kind != descriptor.KindDev {
		t.Fatalf("proptest should be dev kind: %+v", proptest)
	}
}

func TestCargoParserWorkspaceMember(t *testing.T) {
	src := []byte(`[workspace.dependencies]
serde = "1.0"

[dependencies]
serde = { workspace = true }
`)
	descs := CargoParser{}.Parse(src)
	var members []descriptor.Descriptor
	for _, d := range descs {
		if d.Kind == descriptor.KindRuntime {
			members = append(members, d)
		}
	}
	if len(members) != 1 || members[0].DeclaredSpec != "1.0" {
		t.Fatalf("workspace=true member did not resolve: %+v", members)
	}
}

func TestCargoParserMalformedDegradesGracefully(t *testing.T) {
	src := []byte(`[dependencies
serde = "1.0"
tokio = "1.28"
`)
	// src (a broken section header) is not parsed here; the check is that a
	// malformed line inside a well-formed section does not prevent recovery
	// of the entries around it.
	src2 := []byte(`[dependencies]
serde = "1.0"
this is not toml at all !!!
tokio = "1.28"
`)
	descs := CargoParser{}.Parse(src2)
	if _, ok := findByName(descs, "serde"); !ok {
		t.Fatalf("expected serde recovered despite malformed sibling line")
	}
	if _, ok := findByName(descs, "tokio"); !ok {
		t.Fatalf("expected tokio recovered despite malformed sibling line")
	}
	_ = src
}

func TestNPMParserScopedAndNonRegistry(t *testing.T) {
	src := []byte(`{
  "dependencies": {
    "lodash": "^4.17.21",
    "@babel/core": "^7.20.0",
    "local-lib": "file:../local-lib"
  },
  "devDependencies": {
    "jest": "^29.0.0"
  }
}
`)
	descs := NPMParser{}.Parse(src)

	lodash, ok := findByName(descs, "lodash")
	if !ok || lodash.DeclaredSpec != "^4.17.21" || lodash.Kind != descriptor.KindRuntime {
		t.Fatalf("lodash descriptor wrong: %+v", lodash)
	}

	scoped, ok := findByName(descs, "@babel/core")
	if !ok || scoped.RoutingHint.Scope != "babel" {
		t.Fatalf("scoped descriptor missing scope hint: %+v", scoped)
	}

	local, ok := findByName(descs, "local-lib")
	if !ok || local.SourceKind != descriptor.SourceLocalPath {
		t.Fatalf("file: dependency should be local-path: %+v", local)
	}

	jest, ok := findByName(descs, "jest")
	if !ok || jest.Kind != descriptor.KindDev {
		t.Fatalf("jest should be dev kind: %+v", jest)
	}
}

func TestRequirementsParser(t *testing.T) {
	src := []byte(`# a comment line
Django==4.2.1  # pinned
requests>=2.28,<3.0
-e git+https://example.com/pkg.git#egg=editable-pkg
Flask_SQLAlchemy[asyncio]~=3.0
`)
	descs := RequirementsParser{}.Parse(src)

	django, ok := findByName(descs, "django")
	if !ok || django.DeclaredSpec != "==4.2.1" {
		t.Fatalf("django descriptor wrong: %+v", django)
	}

	if _, ok := findByName(descs, "editable-pkg"); ok {
		t.Fatalf("editable install must not produce a registry descriptor")
	}

	flask, ok := findByName(descs, "flask-sqlalchemy")
	if !ok || flask.DeclaredSpec != "~=3.0" {
		t.Fatalf("name normalization or extras handling wrong: %+v", flask)
	}
}

func TestGoModParserIndirectAndPseudoVersion(t *testing.T) {
	src := []byte(`module example.com/demo

go 1.22

require (
	github.com/pkg/errors v0.9.1
	golang.org/x/sync v0.1.0 // indirect
	example.com/pseudo v0.0.0-20210101000000-abcdef012345
)
`)
	descs := GoModParser{}.Parse(src)

	errs, ok := findByName(descs, "github.com/pkg/errors")
	if !ok || errs.Kind != descriptor.KindRuntime {
		t.Fatalf("errors descriptor wrong: %+v", errs)
	}

	sync, ok := findByName(descs, "golang.org/x/sync")
	if !ok || sync.Kind != descriptor.KindIndirect {
		t.Fatalf("indirect marker not recognized: %+v", sync)
	}

	pseudo, ok := findByName(descs, "example.com/pseudo")
	if !ok || pseudo.SourceKind != descriptor.SourcePseudo {
		t.Fatalf("pseudo-version not recognized: %+v", pseudo)
	}
}

func TestComposerParserDropsPlatformPackages(t *testing.T) {
	src := []byte(`{
  "require": {
    "php": ">=8.1",
    "ext-json": "*",
    "monolog/monolog": "^3.0"
  }
}
`)
	descs := ComposerParser{}.Parse(src)
	if len(descs) != 1 || descs[0].Name != "monolog/monolog" {
		t.Fatalf("expected only monolog/monolog, got %+v", descs)
	}
}

func TestPubspecParserHostedAndPath(t *testing.T) {
	src := []byte(`dependencies:
  http: ^0.13.0
  flutter:
    sdk: flutter
  local_pkg:
    path: ../local_pkg

dev_dependencies:
  test: ^1.24.0
`)
	descs := PubspecParser{}.Parse(src)

	httpDep, ok := findByName(descs, "http")
	if !ok || httpDep.DeclaredSpec != "^0.13.0" {
		t.Fatalf("http descriptor wrong: %+v", httpDep)
	}

	local, ok := findByName(descs, "local_pkg")
	if !ok || local.SourceKind != descriptor.SourceLocalPath {
		t.Fatalf("local_pkg should be local-path: %+v", local)
	}

	flutter, ok := findByName(descs, "flutter")
	if !ok || flutter.SourceKind != descriptor.SourceSDK {
		t.Fatalf("flutter sdk dep should be source-sdk: %+v", flutter)
	}

	test, ok := findByName(descs, "test")
	if !ok || test.Kind != descriptor.KindDev {
		t.Fatalf("test should be dev kind: %+v", test)
	}
}

func TestNuGetParserBothAttributeOrders(t *testing.T) {
	src := []byte(`<Project>
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
    <PackageReference Version="6.0.0" Include="Microsoft.Extensions.Logging" />
  </ItemGroup>
</Project>
`)
	descs := NuGetParser{}.Parse(src)
	nj, ok := findByName(descs, "newtonsoft.json")
	if !ok || nj.DeclaredSpec != "13.0.3" {
		t.Fatalf("newtonsoft.json descriptor wrong: %+v", nj)
	}
	ml, ok := findByName(descs, "microsoft.extensions.logging")
	if !ok || ml.DeclaredSpec != "6.0.0" {
		t.Fatalf("reversed-attribute-order descriptor wrong: %+v", ml)
	}
}

func TestGemfileParserGroupsAndMultiConstraint(t *testing.T) {
	src := []byte(`source "https://rubygems.org"

gem "rails", "~> 7.0", ">= 7.0.2"

group :development, :test do
  gem "rspec"
end

gem "local_gem", path: "../local_gem"
`)
	descs := GemfileParser{}.Parse(src)

	rails, ok := findByName(descs, "rails")
	if !ok || rails.DeclaredSpec != "~> 7.0, >= 7.0.2" || rails.Kind != descriptor.KindRuntime {
		t.Fatalf("rails descriptor wrong: %+v", rails)
	}

	rspec, ok := findByName(descs, "rspec")
	if !ok || rspec.Kind != descriptor.KindDev {
		t.Fatalf("rspec in development/test group should be dev kind: %+v", rspec)
	}

	local, ok := findByName(descs, "local_gem")
	if !ok || local.SourceKind != descriptor.SourceLocalPath {
		t.Fatalf("path: gem should be local-path: %+v", local)
	}
}

func TestRegistryDispatchByFilename(t *testing.T) {
	r := NewRegistry()
	if r.ForPath("/proj/Cargo.toml") == nil {
		t.Fatal("expected Cargo.toml to dispatch")
	}
	if r.ForPath("/proj/requirements-dev.txt") == nil {
		t.Fatal("expected requirements*.txt to dispatch")
	}
	if r.ForPath("/proj/src/App.csproj") == nil {
		t.Fatal("expected *.csproj to dispatch")
	}
	if r.ForPath("/proj/README.md") != nil {
		t.Fatal("expected unrecognized files to dispatch to nothing")
	}
}

func TestEcosystemAssignment(t *testing.T) {
	descs := CargoParser{}.Parse([]byte("[dependencies]\nserde = \"1.0\"\n"))
	if len(descs) != 1 || descs[0].Ecosystem != ecosystem.Cargo {
		t.Fatalf("expected cargo ecosystem tag: %+v", descs)
	}
}
