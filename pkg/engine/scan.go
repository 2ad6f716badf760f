package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/cache"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/version"
)

// Finding is one descriptor's vulnerabilities at or above the scan's
// minimum severity.
type Finding struct {
	Descriptor      descriptor.Descriptor
	Info            *version.Info
	Vulnerabilities []advisory.Record
}

// Report is scan's return value: totals per severity plus the findings
// that met the threshold.
type Report struct {
	ScanID   string
	Total    int
	Critical int
	High     int
	Medium   int
	Low      int
	Findings []Finding
}

// Scan runs a synchronous end-to-end pass over descriptors: it forces a
// refresh of every registry-sourced descriptor (even ones that are not
// yet stale), joins vulnerabilities, and filters by minSeverity. Unlike
// Lookup, Scan surfaces per-descriptor fetch errors only as a degraded
// log line — a single unreachable registry does not abort the scan.
// Report.ScanID is a fresh UUID per call; cmd/packradard includes it in
// its per-scan log line. No metric carries it.
func (e *Engine) Scan(ctx context.Context, ds []descriptor.Descriptor, minSeverity advisory.Severity) *Report {
	report := &Report{ScanID: uuid.NewString()}
	for _, d := range ds {
		if d.SourceKind != descriptor.SourceRegistry {
			continue
		}
		fetcher := e.router.Route(ctx, d)
		if fetcher == nil {
			continue
		}
		key := cache.Key{Ecosystem: d.Ecosystem, SourceRegistry: fetcher.Name(), Name: d.Name}

		info, err := e.fetchAndCache(ctx, d, fetcher, key)
		if err != nil {
			Degrade(err, e.logger)
			continue
		}
		info = e.decorate(ctx, d, info, true)

		var kept []advisory.Record
		for _, rec := range info.Vulnerabilities {
			if !rec.Severity.IsAtLeast(minSeverity) {
				continue
			}
			kept = append(kept, rec)
			report.Total++
			switch rec.Severity {
			case advisory.Critical:
				report.Critical++
			case advisory.High:
				report.High++
			case advisory.Medium:
				report.Medium++
			case advisory.Low:
				report.Low++
			}
		}
		if len(kept) > 0 {
			report.Findings = append(report.Findings, Finding{Descriptor: d, Info: info, Vulnerabilities: kept})
		}
	}
	return report
}
