package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/engine"
)

func TestParseFormatRejectsUnknownValue(t *testing.T) {
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected an error for an unrecognized format")
	}
	for _, f := range []string{"summary", "json", "markdown"} {
		if _, err := ParseFormat(f); err != nil {
			t.Fatalf("ParseFormat(%q) failed: %v", f, err)
		}
	}
}

func TestParseSeverityRejectsUnknownValue(t *testing.T) {
	if _, err := ParseSeverity("extreme"); err == nil {
		t.Fatal("expected an error for an unrecognized severity")
	}
	sev, err := ParseSeverity("HIGH")
	if err != nil || sev != advisory.High {
		t.Fatalf("ParseSeverity(HIGH) = %v, %v", sev, err)
	}
}

func sampleReport() *engine.Report {
	return &engine.Report{
		Total: 1, High: 1,
		Findings: []engine.Finding{
			{
				Descriptor: descriptor.Descriptor{Name: "widget", DeclaredSpec: "1.0.0"},
				Vulnerabilities: []advisory.Record{
					{ID: "GHSA-xyz", Severity: advisory.High, Summary: "bad thing", URL: "https://example.com/GHSA-xyz"},
				},
			},
		},
	}
}

func TestRenderJSONMatchesStableSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderJSON(&buf, "Cargo.toml", sampleReport()); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}
	var out jsonReport
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.File != "Cargo.toml" || out.Summary.Total != 1 || out.Summary.High != 1 {
		t.Fatalf("unexpected report: %+v", out)
	}
	if len(out.Vulnerabilities) != 1 || out.Vulnerabilities[0].ID != "GHSA-xyz" {
		t.Fatalf("unexpected vulnerabilities: %+v", out.Vulnerabilities)
	}
}

func TestRenderSummaryReportsZeroFindingsTersely(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, "Cargo.toml", &engine.Report{})
	if !strings.Contains(buf.String(), "0 vulnerabilities") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderMarkdownIncludesEveryFinding(t *testing.T) {
	var buf bytes.Buffer
	RenderMarkdown(&buf, "Cargo.toml", sampleReport())
	if !strings.Contains(buf.String(), "GHSA-xyz") {
		t.Fatalf("expected the finding's ID in markdown output, got %q", buf.String())
	}
}

func TestExitCodeRequiresFailOnVulnsFlag(t *testing.T) {
	report := sampleReport()
	if code := ExitCode(report, false); code != 0 {
		t.Fatalf("ExitCode without --fail-on-vulns = %d, want 0", code)
	}
	if code := ExitCode(report, true); code != 1 {
		t.Fatalf("ExitCode with --fail-on-vulns and findings = %d, want 1", code)
	}
	if code := ExitCode(&engine.Report{}, true); code != 0 {
		t.Fatalf("ExitCode with --fail-on-vulns and no findings = %d, want 0", code)
	}
}
