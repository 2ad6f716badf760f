package advisory

import "time"

// Record is one advisory affecting a declared version, as joined onto a
// version.Info by the vulnerability lookup.
type Record struct {
	ID             string
	Severity       Severity
	AffectedRanges []string
	FixedIn        string
	Summary        string
	URL            string

	// EPSSScore and EPSSPercentile are populated by Enricher.Enrich when the
	// record's ID resolves to a CVE FIRST.org has scored; zero when absent.
	EPSSScore      float64
	EPSSPercentile float64

	// KnownExploited reports whether the CVE appears in CISA's Known
	// Exploited Vulnerabilities catalog.
	KnownExploited bool
}

// Key identifies a (ecosystem, package, declared version) triple the
// vulnerability lookup batches on, matching the vulnerability-TTL cache
// partition described in spec §3.
type Key struct {
	Ecosystem       string
	CanonicalName   string
	DeclaredVersion string
}

// Result pairs a Key's advisory records with the time they were fetched,
// so callers can enforce the vulnerability TTL (six hours, independent of
// the metadata TTL) themselves.
type Result struct {
	Key       Key
	Records   []Record
	FetchedAt time.Time
}
