package cache

import (
	"context"
	"sync"
	"time"

	"github.com/packradar/packradar/pkg/core"
)

// Config configures a Hybrid cache.
type Config struct {
	// DatabasePath is the cold tier's SQLite file. DefaultDatabasePath() if empty.
	DatabasePath string
	// PerEcosystemCap bounds the hot tier's entry count per ecosystem; the
	// least-recently-used survivors beyond the cap are evicted on sweep.
	PerEcosystemCap int
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
	Logger        core.Logger
}

// DefaultConfig returns sane defaults: a 5,000-entry-per-ecosystem hot tier
// cap and a five-minute sweep interval.
func DefaultConfig() *Config {
	return &Config{
		PerEcosystemCap: 5000,
		SweepInterval:   5 * time.Minute,
	}
}

// Hybrid is the two-tier cache: hot tier first, cold tier on miss with
// promotion back into the hot tier, writes fan out to both tiers.
type Hybrid struct {
	hot  *hotTier
	cold *coldTier
	cfg  *Config

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Open creates the hybrid cache, opening (and, on first run, creating) the
// cold tier's SQLite file.
func Open(cfg *Config) (*Hybrid, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NopLogger{}
	}
	path := cfg.DatabasePath
	if path == "" {
		var err error
		path, err = DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
	}

	cold, err := openColdTier(path, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return &Hybrid{
		hot:    newHotTier(),
		cold:   cold,
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}, nil
}

// Get consults the hot tier first; on miss it consults the cold tier and,
// on hit, promotes the entry back into the hot tier. The caller compares
// now - FetchedAt against TTL to decide freshness; Get never does that
// itself, since "stale but present" is a valid result for
// stale-while-revalidate callers.
func (h *Hybrid) Get(k Key) (Entry, bool) {
	if e, ok := h.hot.get(k); ok {
		return e, true
	}
	if e, ok := h.cold.get(k); ok {
		h.hot.put(k, e)
		return e, true
	}
	return Entry{}, false
}

// Put writes to both tiers with FetchedAt stamped by the caller (the
// fetcher's response time), not recomputed here.
func (h *Hybrid) Put(k Key, payload []byte, fetchedAt time.Time, ttl time.Duration) {
	e := Entry{Payload: payload, FetchedAt: fetchedAt, TTL: ttl}
	h.hot.put(k, e)
	_ = h.cold.put(k, e) // cold-tier write errors degrade per put's own logging.
}

// Invalidate removes the key from both tiers.
func (h *Hybrid) Invalidate(k Key) {
	h.hot.invalidate(k)
	h.cold.invalidate(k)
}

// InvalidateAll wipes both tiers, for the façade's whole-cache invalidation
// operation.
func (h *Hybrid) InvalidateAll() {
	h.hot.clear()
	h.cold.clear()
}

// Ping verifies the cold tier's SQLite connection is reachable, for the
// daemon's database health check.
func (h *Hybrid) Ping(ctx context.Context) error {
	return h.cold.db.PingContext(ctx)
}

// Sweep runs one eviction pass over both tiers: the hot tier drops expired
// entries and anything beyond the per-ecosystem cap, the cold tier drops
// expired rows outright (it has no size cap of its own — disk is cheap).
func (h *Hybrid) Sweep() {
	now := time.Now()
	evicted := h.hot.evictExpiredAndOverCap(now, h.cfg.PerEcosystemCap)
	coldEvicted, err := h.cold.sweepExpired(now)
	if err != nil {
		h.cfg.Logger.Warn("cold cache sweep failed: %v", err)
	}
	if evicted > 0 || coldEvicted > 0 {
		h.cfg.Logger.Debug("cache sweep evicted %d hot, %d cold entries", evicted, coldEvicted)
	}
}

// StartSweeper launches the periodic background sweep, following the same
// ticker/stopCh/select shape as rediverio-sdk's pkg/platform.JobPoller.
func (h *Hybrid) StartSweeper() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Sweep()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Close stops the sweeper and closes the cold tier's database handle.
func (h *Hybrid) Close() error {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
	return h.cold.close()
}
