package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/osv-scanner/pkg/models"
	"github.com/package-url/packageurl-go"

	"github.com/packradar/packradar/pkg/ecosystem"
)

// Client batches advisory lookups against a single OSV-compatible database
// endpoint, per spec §4.6: one POST per batch, not one request per package.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// NewClient builds a Client against the public OSV.dev batch-query API.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{HTTP: httpClient, BaseURL: "https://api.osv.dev/v1"}
}

type osvBatchQuery struct {
	Queries []osvQuery `json:"queries"`
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

type osvPackage struct {
	PURL string `json:"purl"`
}

type osvBatchResult struct {
	Results []struct {
		Vulns []osvVulnID `json:"vulns"`
	} `json:"results"`
}

type osvVulnID struct {
	ID string `json:"id"`
}

// Lookup resolves advisory records for a batch of keys: one querybatch
// POST (cheap, returns only vuln IDs), then one GET per distinct ID found
// to fetch its full record, since querybatch intentionally omits full
// records to keep its response small.
func (c *Client) Lookup(ctx context.Context, keys []Key) (map[Key][]Record, error) {
	out := make(map[Key][]Record, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	purls := make([]string, len(keys))
	for i, k := range keys {
		purls[i] = buildPURL(k)
	}

	batchReq := osvBatchQuery{Queries: make([]osvQuery, len(keys))}
	for i, k := range keys {
		batchReq.Queries[i] = osvQuery{Package: osvPackage{PURL: purls[i]}, Version: k.DeclaredVersion}
	}

	var batchResult osvBatchResult
	if err := c.post(ctx, "/querybatch", batchReq, &batchResult); err != nil {
		return nil, fmt.Errorf("advisory querybatch: %w", err)
	}

	idSet := make(map[string]bool)
	for _, r := range batchResult.Results {
		for _, v := range r.Vulns {
			idSet[v.ID] = true
		}
	}
	if len(idSet) == 0 {
		return out, nil
	}

	details := make(map[string]models.Vulnerability, len(idSet))
	for id := range idSet {
		var vuln models.Vulnerability
		if err := c.get(ctx, "/vulns/"+id, &vuln); err != nil {
			continue // one advisory failing to fetch degrades to a partial join, not a whole-batch failure
		}
		details[id] = vuln
	}

	for i, r := range batchResult.Results {
		key := keys[i]
		for _, v := range r.Vulns {
			vuln, ok := details[v.ID]
			if !ok {
				continue
			}
			out[key] = append(out[key], toRecord(vuln))
		}
	}
	return out, nil
}

func buildPURL(k Key) string {
	eco := ecosystem.Ecosystem(k.Ecosystem)
	instance := packageurl.PackageURL{
		Type: eco.PurlType(),
		Name: k.CanonicalName,
	}
	return instance.ToString()
}

func toRecord(v models.Vulnerability) Record {
	sev := severityFromDatabaseSpecific(v)
	if sev == Unknown {
		for _, s := range v.Severity {
			if parsed := severityFromCVSSVector(string(s.Score)); parsed != Unknown {
				sev = parsed
				break
			}
		}
	}

	var fixedIn string
	var ranges []string
	for _, aff := range v.Affected {
		for _, r := range aff.Ranges {
			var rangeParts []string
			for _, ev := range r.Events {
				if ev.Introduced != "" {
					rangeParts = append(rangeParts, ">="+ev.Introduced)
				}
				if ev.Fixed != "" {
					rangeParts = append(rangeParts, "<"+ev.Fixed)
					if fixedIn == "" {
						fixedIn = ev.Fixed
					}
				}
			}
			if len(rangeParts) > 0 {
				ranges = append(ranges, fmt.Sprintf("%v", rangeParts))
			}
		}
	}

	url := ""
	if len(v.References) > 0 {
		url = v.References[0].URL
	}

	return Record{
		ID:             v.ID,
		Severity:       sev,
		AffectedRanges: ranges,
		FixedIn:        fixedIn,
		Summary:        v.Summary,
		URL:            url,
	}
}

// severityFromDatabaseSpecific looks for a qualitative severity string in
// the vulnerability's database_specific block, the field GHSA-sourced OSV
// entries use to carry "CRITICAL"/"HIGH"/etc. directly. It round-trips
// through a generic map rather than a typed field reference, since the
// vendored models package's exact database_specific shape varies by
// ecosystem and isn't worth a hard struct dependency here.
func severityFromDatabaseSpecific(v models.Vulnerability) Severity {
	raw, err := json.Marshal(v)
	if err != nil {
		return Unknown
	}
	var generic struct {
		DatabaseSpecific map[string]interface{} `json:"database_specific"`
		Affected         []struct {
			DatabaseSpecific map[string]interface{} `json:"database_specific"`
		} `json:"affected"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Unknown
	}
	if s, ok := generic.DatabaseSpecific["severity"].(string); ok {
		return FromString(s)
	}
	for _, aff := range generic.Affected {
		if s, ok := aff.DatabaseSpecific["severity"].(string); ok {
			return FromString(s)
		}
	}
	return Unknown
}

// severityFromCVSSVector is the last-resort severity source: OSV's
// Severity.Score field holds a CVSS vector string, not a bucket name, so
// this only succeeds when a feed embeds the qualitative rating directly
// in that field rather than an actual vector. database_specific.severity,
// tried first in toRecord, is the reliable source.
func severityFromCVSSVector(vector string) Severity {
	if vector == "" {
		return Unknown
	}
	return FromString(vector)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("advisory database returned %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}
