// Package engine implements the façade (C8): the single entry point
// collaborators use to resolve dependency descriptors into VersionInfo
// records, joined against advisory data, without ever seeing the parsers,
// fetchers, cache tiers, or router underneath.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/cache"
	"github.com/packradar/packradar/pkg/coalesce"
	"github.com/packradar/packradar/pkg/core"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/enrich"
	"github.com/packradar/packradar/pkg/perrors"
	"github.com/packradar/packradar/pkg/registry"
	"github.com/packradar/packradar/pkg/router"
	"github.com/packradar/packradar/pkg/version"
)

// repoHealthTTL bounds how often a package's repository-health signal
// (archived status, stars, last push) gets re-fetched; it changes far
// less often than version metadata, so a longer TTL avoids needless API
// calls against GitHub's/GitLab's rate limits.
const repoHealthTTL = 24 * time.Hour

// fetchTimeout bounds every fetch, including retries inside the fetcher,
// per spec's ten-second suspension-point deadline.
const fetchTimeout = 10 * time.Second

// notFoundSentinel is the payload stored for a negative-TTL cache entry.
// A real VersionInfo always marshals to a JSON object, never the bare
// literal null, so this is unambiguous.
var notFoundSentinel = []byte("null")

// Config configures TTLs and the fan-out bound.
type Config struct {
	MetadataTTL      time.Duration
	VulnerabilityTTL time.Duration
	NegativeTTL      time.Duration
	FanOut           int
	SecurityEnabled  bool
}

// DefaultConfig matches spec §3/§4.6/§5's stated defaults.
func DefaultConfig() Config {
	return Config{
		MetadataTTL:      time.Hour,
		VulnerabilityTTL: 6 * time.Hour,
		NegativeTTL:      5 * time.Minute,
		FanOut:           32,
		SecurityEnabled:  true,
	}
}

// Engine is the façade: constructed once, threaded through collaborators
// by reference (spec §9).
type Engine struct {
	cache      *cache.Hybrid
	coalescer  *coalesce.Group[*version.Info]
	router     *router.Router
	advisories *advisory.Client
	enricher   *advisory.Enricher
	repos      *enrich.Client
	cfg        Config
	sem        chan struct{}
	logger     core.Logger
}

// SetEnricher attaches an EPSS/KEV enricher. Nil disables enrichment,
// leaving joined advisory records with their zero-value exploit signal.
func (e *Engine) SetEnricher(enricher *advisory.Enricher) {
	e.enricher = enricher
}

// SetRepoEnricher attaches a repository-health client. Nil disables repo
// enrichment, leaving version.Info.RepoHealth nil.
func (e *Engine) SetRepoEnricher(repos *enrich.Client) {
	e.repos = repos
}

// New builds an Engine. advisories may be nil when cfg.SecurityEnabled is
// false, or when the collaborator disables vulnerability lookup entirely.
func New(c *cache.Hybrid, r *router.Router, advisories *advisory.Client, cfg Config, logger core.Logger) *Engine {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if cfg.FanOut <= 0 {
		cfg.FanOut = DefaultConfig().FanOut
	}
	return &Engine{
		cache:      c,
		coalescer:  coalesce.NewGroup[*version.Info](),
		router:     r,
		advisories: advisories,
		cfg:        cfg,
		sem:        make(chan struct{}, cfg.FanOut),
		logger:     logger,
	}
}

// Lookup resolves one descriptor: read-through, background-revalidated.
// Descriptors that never touch a registry (pseudo-versions, local paths,
// git/SDK/replaced sources) return (nil, nil) without a fetch, per spec
// §4.1's source_kind classification (S4).
func (e *Engine) Lookup(ctx context.Context, d descriptor.Descriptor) (*version.Info, error) {
	if d.SourceKind != descriptor.SourceRegistry {
		return nil, nil
	}

	fetcher := e.router.Route(ctx, d)
	if fetcher == nil {
		return nil, perrors.E(perrors.KindConfiguration, "engine.Lookup", fmt.Sprintf("no fetcher configured for ecosystem %s", d.Ecosystem))
	}
	key := cache.Key{Ecosystem: d.Ecosystem, SourceRegistry: fetcher.Name(), Name: d.Name}

	if entry, ok := e.cache.Get(key); ok {
		if isNotFoundEntry(entry) {
			if !entry.Stale(time.Now()) {
				return nil, perrors.ErrNotFound
			}
			// negative-TTL entry expired: fall through to a real fetch.
		} else if info, err := decodeInfo(entry.Payload); err == nil {
			if !entry.Stale(time.Now()) {
				return e.decorate(ctx, d, info, false), nil
			}
			go e.refreshInBackground(d, fetcher, key)
			return e.decorate(ctx, d, info, false), nil
		}
	}

	info, err := e.fetchAndCache(ctx, d, fetcher, key)
	if err != nil {
		Degrade(err, e.logger)
		return nil, err
	}
	return e.decorate(ctx, d, info, false), nil
}

// LookupMany resolves every descriptor concurrently, bounded by the
// configured fan-out, preserving input order in the result slice. A
// descriptor that fails to resolve leaves a nil entry at its index rather
// than aborting the batch — the core never raises a batch-wide error for
// per-item failures (spec §7's degraded-mode policy).
func (e *Engine) LookupMany(ctx context.Context, ds []descriptor.Descriptor) []*version.Info {
	out := make([]*version.Info, len(ds))
	var wg sync.WaitGroup
	for i, d := range ds {
		wg.Add(1)
		e.sem <- struct{}{}
		go func(i int, d descriptor.Descriptor) {
			defer wg.Done()
			defer func() { <-e.sem }()
			info, _ := e.Lookup(ctx, d)
			out[i] = info
		}(i, d)
	}
	wg.Wait()
	return out
}

// Invalidate removes one cache key, or the whole cache when key is nil.
func (e *Engine) Invalidate(key *cache.Key) {
	if key == nil {
		e.cache.InvalidateAll()
		return
	}
	e.cache.Invalidate(*key)
}

// fetchAndCache issues (or joins) a coalesced fetch and writes the result
// to the cache. The shared fetch runs on its own background-scoped
// context so a caller cancelling ctx never cancels a fetch other callers
// are also waiting on (spec §5's cancellation policy).
func (e *Engine) fetchAndCache(ctx context.Context, d descriptor.Descriptor, fetcher registry.Fetcher, key cache.Key) (*version.Info, error) {
	val, err, _ := e.coalescer.Do(key.String(), func() (*version.Info, error) {
		fctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		info, ferr := fetcher.Fetch(fctx, d.Name)
		if ferr != nil {
			if perrors.IsNotFound(ferr) {
				e.cache.Put(key, notFoundSentinel, time.Now(), e.cfg.NegativeTTL)
			}
			return nil, ferr
		}
		info.SourceRegistry = fetcher.Name()
		info.FetchedAt = time.Now()

		payload, merr := json.Marshal(info)
		if merr != nil {
			return nil, perrors.E(perrors.KindRegistryProtocol, "engine.fetchAndCache", merr)
		}
		e.cache.Put(key, payload, info.FetchedAt, e.cfg.MetadataTTL)
		return info, nil
	})
	return val, err
}

func (e *Engine) refreshInBackground(d descriptor.Descriptor, fetcher registry.Fetcher, key cache.Key) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	if _, err := e.fetchAndCache(ctx, d, fetcher, key); err != nil {
		e.logger.Debug("background revalidation failed for %s: %v", key.String(), err)
	}
}

// decorate runs every post-fetch enrichment pass over info: advisory
// records, then repository health. Each pass degrades independently on
// failure, so an advisory-database outage never blocks repo-health data
// and vice versa.
func (e *Engine) decorate(ctx context.Context, d descriptor.Descriptor, info *version.Info, force bool) *version.Info {
	info = e.joinVulnerabilities(ctx, d, info, force)
	return e.joinRepoHealth(ctx, d, info, force)
}

// joinRepoHealth attaches cached or freshly-fetched repository-health data
// onto info.RepoHealth. A lookup failure or an unset/unrecognized
// repository URL leaves info unchanged.
func (e *Engine) joinRepoHealth(ctx context.Context, d descriptor.Descriptor, info *version.Info, force bool) *version.Info {
	if e.repos == nil || info == nil || info.Repository == "" {
		return info
	}

	cacheKey := cache.Key{Ecosystem: d.Ecosystem, SourceRegistry: "repo-health", Name: info.Repository}
	if !force {
		if entry, ok := e.cache.Get(cacheKey); ok && !entry.Stale(time.Now()) {
			var health enrich.Health
			if json.Unmarshal(entry.Payload, &health) == nil {
				out := info.Clone()
				out.RepoHealth = &health
				return out
			}
		}
	}

	health, err := e.repos.Enrich(ctx, info.Repository)
	if err != nil || health == nil {
		if err != nil {
			e.logger.Debug("repo health lookup failed for %s: %v", info.Repository, err)
		}
		return info
	}
	if payload, merr := json.Marshal(health); merr == nil {
		e.cache.Put(cacheKey, payload, time.Now(), repoHealthTTL)
	}
	out := info.Clone()
	out.RepoHealth = health
	return out
}

// joinVulnerabilities attaches cached or freshly-looked-up advisory
// records onto info. An advisory-database outage degrades to returning
// info unchanged rather than failing the lookup (spec §4.6).
func (e *Engine) joinVulnerabilities(ctx context.Context, d descriptor.Descriptor, info *version.Info, force bool) *version.Info {
	if !e.cfg.SecurityEnabled || e.advisories == nil || info == nil {
		return info
	}

	advKey := advisory.Key{Ecosystem: string(d.Ecosystem), CanonicalName: d.Name, DeclaredVersion: d.DeclaredSpec}
	cacheKey := cache.Key{Ecosystem: d.Ecosystem, SourceRegistry: "advisory", Name: d.Name + "@" + d.DeclaredSpec}

	if !force {
		if entry, ok := e.cache.Get(cacheKey); ok && !entry.Stale(time.Now()) {
			var recs []advisory.Record
			if json.Unmarshal(entry.Payload, &recs) == nil {
				out := info.Clone()
				out.Vulnerabilities = recs
				return out
			}
		}
	}

	results, err := e.advisories.Lookup(ctx, []advisory.Key{advKey})
	if err != nil {
		e.logger.Warn("advisory lookup failed for %s: %v", d.Name, err)
		return info
	}
	recs := results[advKey]
	if e.enricher != nil && len(recs) > 0 {
		e.enricher.Enrich(ctx, recs)
	}
	if payload, merr := json.Marshal(recs); merr == nil {
		e.cache.Put(cacheKey, payload, time.Now(), e.cfg.VulnerabilityTTL)
	}
	out := info.Clone()
	out.Vulnerabilities = recs
	return out
}

func decodeInfo(payload []byte) (*version.Info, error) {
	var info version.Info
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func isNotFoundEntry(e cache.Entry) bool {
	return len(e.Payload) == len(notFoundSentinel) && string(e.Payload) == string(notFoundSentinel)
}
