package manifest

import (
	"regexp"
	"strings"

	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
)

// NuGetParser recognizes .csproj's <PackageReference> and <PackageVersion>
// elements. It scans for the Include/Version attribute pair directly
// rather than building a full XML DOM, since attribute order varies and a
// self-closing element can wrap onto multiple lines in hand-edited files;
// the regex tolerates either attribute order on a single line, which covers
// the overwhelming majority of generated and hand-written project files.
type NuGetParser struct{}

var nugetPackageRefRe = regexp.MustCompile(
	`<Package(?:Reference|Version)\s+` +
		`(?:Include\s*=\s*"([^"]+)"\s+Version\s*=\s*"([^"]*)"|Version\s*=\s*"([^"]*)"\s+Include\s*=\s*"([^"]+)")`)

func (NuGetParser) Parse(src []byte) []descriptor.Descriptor {
	lines := scanLines(src)
	var out []descriptor.Descriptor
	for _, ln := range lines {
		if !strings.Contains(ln.text, "PackageReference") && !strings.Contains(ln.text, "PackageVersion") {
			continue
		}
		for _, idx := range nugetPackageRefRe.FindAllStringSubmatchIndex(ln.text, -1) {
			var nameStart, nameEnd, verStart, verEnd int
			if idx[2] >= 0 {
				nameStart, nameEnd = idx[2], idx[3]
				verStart, verEnd = idx[4], idx[5]
			} else {
				verStart, verEnd = idx[6], idx[7]
				nameStart, nameEnd = idx[8], idx[9]
			}
			name := ln.text[nameStart:nameEnd]
			ver := ln.text[verStart:verEnd]

			out = append(out, descriptor.Descriptor{
				Ecosystem:    ecosystem.NuGet,
				Name:         strings.ToLower(name),
				DeclaredSpec: ver,
				NameSpan:     ln.spanAt(nameStart, nameEnd),
				VersionSpan:  ln.spanAt(verStart, verEnd),
				Kind:         descriptor.KindRuntime,
				SourceKind:   descriptor.SourceRegistry,
			})
		}
	}
	return out
}
