// Package cli implements cmd/packradar-scan's presentation layer: the three
// output formats and the severity/exit-code policy spec §6 defines for the
// command-line scanning front-end.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/engine"
)

// Format is one of the three output formats spec §6 names.
type Format string

const (
	FormatSummary  Format = "summary"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSummary, FormatJSON, FormatMarkdown:
		return Format(s), nil
	default:
		return "", fmt.Errorf("invalid --output %q: want one of summary, json, markdown", s)
	}
}

// ParseSeverity validates a --min-severity flag value against spec §6's
// four-level scale (unknown is not a selectable floor).
func ParseSeverity(s string) (advisory.Severity, error) {
	switch strings.ToLower(s) {
	case "low":
		return advisory.Low, nil
	case "medium":
		return advisory.Medium, nil
	case "high":
		return advisory.High, nil
	case "critical":
		return advisory.Critical, nil
	default:
		return "", fmt.Errorf("invalid --min-severity %q: want one of low, medium, high, critical", s)
	}
}

// jsonVulnerability is one row of the stable JSON schema spec §6 requires.
type jsonVulnerability struct {
	Package     string `json:"package"`
	Version     string `json:"version"`
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type jsonSummary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

type jsonReport struct {
	File            string              `json:"file"`
	Summary         jsonSummary         `json:"summary"`
	Vulnerabilities []jsonVulnerability `json:"vulnerabilities"`
}

func flattenVulnerabilities(report *engine.Report) []jsonVulnerability {
	var out []jsonVulnerability
	for _, f := range report.Findings {
		for _, rec := range f.Vulnerabilities {
			out = append(out, jsonVulnerability{
				Package:     f.Descriptor.Name,
				Version:     f.Descriptor.DeclaredSpec,
				ID:          rec.ID,
				Severity:    rec.Severity.String(),
				Description: rec.Summary,
				URL:         rec.URL,
			})
		}
	}
	return out
}

// RenderJSON writes the stable schema
// { file, summary: {total,critical,high,medium,low}, vulnerabilities: [...] }.
func RenderJSON(w io.Writer, file string, report *engine.Report) error {
	out := jsonReport{
		File: file,
		Summary: jsonSummary{
			Total: report.Total, Critical: report.Critical,
			High: report.High, Medium: report.Medium, Low: report.Low,
		},
		Vulnerabilities: flattenVulnerabilities(report),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// RenderSummary writes human-readable severity counts.
func RenderSummary(w io.Writer, file string, report *engine.Report) {
	fmt.Fprintf(w, "%s: %d vulnerabilities found\n", file, report.Total)
	if report.Total == 0 {
		return
	}
	fmt.Fprintf(w, "  critical: %d\n", report.Critical)
	fmt.Fprintf(w, "  high:     %d\n", report.High)
	fmt.Fprintf(w, "  medium:   %d\n", report.Medium)
	fmt.Fprintf(w, "  low:      %d\n", report.Low)
}

// RenderMarkdown writes a tabular report of every vulnerability found.
func RenderMarkdown(w io.Writer, file string, report *engine.Report) {
	fmt.Fprintf(w, "# packradar scan: %s\n\n", file)
	fmt.Fprintf(w, "Total: %d | Critical: %d | High: %d | Medium: %d | Low: %d\n\n",
		report.Total, report.Critical, report.High, report.Medium, report.Low)
	if report.Total == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 2, 1, ' ', 0)
	fmt.Fprintln(tw, "Package\tVersion\tSeverity\tID\tSummary")
	fmt.Fprintln(tw, "---\t---\t---\t---\t---")
	for _, v := range flattenVulnerabilities(report) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Package, v.Version, v.Severity, v.ID, v.Description)
	}
	tw.Flush()
}

// Render dispatches to the format's renderer.
func Render(w io.Writer, format Format, file string, report *engine.Report) error {
	switch format {
	case FormatJSON:
		return RenderJSON(w, file, report)
	case FormatMarkdown:
		RenderMarkdown(w, file, report)
		return nil
	default:
		RenderSummary(w, file, report)
		return nil
	}
}

// ExitCode implements spec §6's policy: 0 when there are no vulnerabilities
// at or above the scan's minimum severity, or when --fail-on-vulns was not
// set; 1 otherwise. The scan has already filtered report to minSeverity, so
// any finding here already cleared that bar.
func ExitCode(report *engine.Report, failOnVulns bool) int {
	if !failOnVulns {
		return 0
	}
	if report.Total > 0 {
		return 1
	}
	return 0
}
