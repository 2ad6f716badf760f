package cache

import "time"

// Entry is one stored record: an opaque payload (a JSON-encoded
// version.Info or advisory.Result) plus the bookkeeping the caller needs to
// decide freshness. The cache itself never interprets Payload.
type Entry struct {
	Payload   []byte
	FetchedAt time.Time
	TTL       time.Duration
}

// Stale reports whether the entry is older than its TTL as of now.
func (e Entry) Stale(now time.Time) bool {
	return now.Sub(e.FetchedAt) > e.TTL
}
