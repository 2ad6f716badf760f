// Command packradard is the editor-attached daemon: it wires the engine
// façade to the internal/rpcio stdio framing and, on a side HTTP port,
// exposes Prometheus metrics and Kubernetes-style health probes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/packradar/packradar/internal/rpcio"
	"github.com/packradar/packradar/pkg/advisory"
	"github.com/packradar/packradar/pkg/cache"
	"github.com/packradar/packradar/pkg/config"
	"github.com/packradar/packradar/pkg/core"
	"github.com/packradar/packradar/pkg/credentials"
	"github.com/packradar/packradar/pkg/descriptor"
	"github.com/packradar/packradar/pkg/ecosystem"
	"github.com/packradar/packradar/pkg/engine"
	"github.com/packradar/packradar/pkg/enrich"
	"github.com/packradar/packradar/pkg/health"
	"github.com/packradar/packradar/pkg/manifest"
	"github.com/packradar/packradar/pkg/metrics"
	"github.com/packradar/packradar/pkg/registry"
	"github.com/packradar/packradar/pkg/router"
)

const appName = "packradard"

var (
	metricLookups     = metrics.MetricDefinition{Name: "packradar_lookups_total", Type: metrics.MetricTypeCounter, Help: "Total lookup RPC calls, by outcome.", Labels: []string{"outcome"}}
	metricScans       = metrics.MetricDefinition{Name: "packradar_scans_total", Type: metrics.MetricTypeCounter, Help: "Total scan RPC calls."}
	metricScanFinding = metrics.MetricDefinition{Name: "packradar_scan_findings_total", Type: metrics.MetricTypeCounter, Help: "Vulnerable descriptors found by scan, by severity.", Labels: []string{"severity"}}
	metricRPCDuration = metrics.MetricDefinition{Name: "packradar_rpc_duration_seconds", Type: metrics.MetricTypeHistogram, Help: "RPC handler latency in seconds, by method."}
)

func main() {
	configPath := flag.String("config", "", "path to a packradar YAML configuration file")
	statusAddr := flag.String("status-addr", "127.0.0.1:9095", "address for the /metrics, /healthz, /readyz status server")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName)
		return
	}

	level := core.LogLevelInfo
	if *verbose {
		level = core.LogLevelDebug
	}
	logger := core.NewDefaultLogger(appName, level)

	snap, err := config.Load(*configPath)
	if err != nil {
		logger.Error("configuration error: %v", err)
		os.Exit(1)
	}

	eng, cacheStore, err := buildEngine(snap, logger)
	if err != nil {
		logger.Error("startup failed: %v", err)
		os.Exit(1)
	}
	defer cacheStore.Close()
	cacheStore.StartSweeper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	collector, healthHandler := buildObservability(cacheStore)
	srv := startStatusServer(*statusAddr, collector, healthHandler, logger)
	defer srv.Close()

	conn := rpcio.NewConn(os.Stdin, os.Stdout)
	dispatcher := newDispatcher(eng, collector, logger)

	logger.Info("packradard ready, status server on %s", *statusAddr)
	go func() {
		<-ctx.Done()
		os.Stdin.Close()
	}()
	if err := rpcio.Serve(conn, dispatcher.handle); err != nil {
		logger.Error("rpc loop terminated: %v", err)
		os.Exit(1)
	}
}

// buildEngine wires the C8 façade from a configuration snapshot: the
// hybrid cache, the credential-aware router, and (when security.enabled)
// the OSV advisory client.
func buildEngine(snap *config.Snapshot, logger core.Logger) (*engine.Engine, *cache.Hybrid, error) {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Logger = logger
	store, err := cache.Open(cacheCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}

	client := registry.NewClient(logger)
	routerCfg := router.Config{}
	for name, cr := range snap.Registries.Cargo.Registries {
		routerCfg.CargoRegistries = append(routerCfg.CargoRegistries, router.CargoRegistry{
			Name: name, Host: hostOf(cr.IndexURL), SparseURL: cr.IndexURL, CredEnvVar: cr.Auth.Variable,
		})
	}
	for scope, ns := range snap.Registries.NPM.Scoped {
		routerCfg.NPMScopes = append(routerCfg.NPMScopes, router.NPMScopeRegistry{
			Scope: scope, Host: hostOf(ns.URL), BaseURL: ns.URL, CredEnvVar: ns.Auth.Variable,
		})
	}
	r := router.New(client, credentials.NewChainedStore(credentials.NewEnvStore()), routerCfg)

	var advClient *advisory.Client
	if snap.Security.Enabled {
		advClient = advisory.NewClient(nil)
	}

	cfg := engine.DefaultConfig()
	cfg.MetadataTTL = snap.MetadataTTL()
	cfg.SecurityEnabled = snap.Security.Enabled
	eng := engine.New(store, r, advClient, cfg, logger)
	if snap.Security.Enabled {
		eng.SetEnricher(advisory.NewEnricher(nil))
	}
	eng.SetRepoEnricher(enrich.NewClient())
	return eng, store, nil
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	const schemeSep = "://"
	if idx := indexOf(rawURL, schemeSep); idx >= 0 {
		rawURL = rawURL[idx+len(schemeSep):]
	}
	if idx := indexOf(rawURL, "/"); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	return rawURL
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func buildObservability(store *cache.Hybrid) (*metrics.PrometheusCollector, *health.Handler) {
	collector := metrics.NewPrometheusCollector(&metrics.PrometheusConfig{Namespace: "packradar"})
	for _, def := range []metrics.MetricDefinition{metricLookups, metricScans, metricScanFinding} {
		_ = collector.RegisterCounter(def)
	}
	_ = collector.RegisterHistogram(metricRPCDuration)

	h := health.NewHandler(health.WithVersion(appName))
	h.Register("cache", &health.DatabaseCheck{PingFunc: store.Ping})
	h.Register("ping", &health.PingCheck{})
	return collector, h
}

func startStatusServer(addr string, collector *metrics.PrometheusCollector, h *health.Handler, logger core.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/healthz", h.HealthHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/livez", h.LivenessHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("status server stopped: %v", err)
		}
	}()
	return srv
}

// dispatcher resolves each rpcio method against the engine façade.
type dispatcher struct {
	engine    *engine.Engine
	manifests *manifest.Registry
	metrics   *metrics.PrometheusCollector
	logger    core.Logger
}

func newDispatcher(e *engine.Engine, collector *metrics.PrometheusCollector, logger core.Logger) *dispatcher {
	return &dispatcher{engine: e, manifests: manifest.NewRegistry(), metrics: collector, logger: logger}
}

type lookupParams struct {
	Ecosystem    string `json:"ecosystem"`
	Name         string `json:"name"`
	DeclaredSpec string `json:"declared_spec"`
	RegistryName string `json:"registry_name,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

type lookupManyParams struct {
	Descriptors []lookupParams `json:"descriptors"`
}

type scanParams struct {
	Path        string `json:"path"`
	MinSeverity string `json:"min_severity"`
}

type invalidateParams struct {
	Ecosystem      string `json:"ecosystem"`
	SourceRegistry string `json:"source_registry"`
	Name           string `json:"name"`
}

func (d *dispatcher) handle(method string, raw json.RawMessage) (interface{}, error) {
	start := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.HistogramObserve(metricRPCDuration.Name, time.Since(start).Seconds())
		}
	}()

	switch method {
	case "lookup":
		var p lookupParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		info, err := d.engine.Lookup(context.Background(), toDescriptor(p))
		d.countLookup(err)
		if err != nil {
			return nil, err
		}
		return info, nil

	case "lookupMany":
		var p lookupManyParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		ds := make([]descriptor.Descriptor, len(p.Descriptors))
		for i, lp := range p.Descriptors {
			ds[i] = toDescriptor(lp)
		}
		results := d.engine.LookupMany(context.Background(), ds)
		if d.metrics != nil {
			d.metrics.CounterAdd(metricLookups.Name, float64(len(ds)), "batch")
		}
		return results, nil

	case "scan":
		var p scanParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		body, err := os.ReadFile(p.Path)
		if err != nil {
			return nil, err
		}
		descriptors := d.manifests.Parse(p.Path, body)
		minSev := advisory.FromString(p.MinSeverity)
		report := d.engine.Scan(context.Background(), descriptors, minSev)
		d.logger.Debug("scan %s: %d descriptors, %d findings", report.ScanID, len(descriptors), report.Total)
		if d.metrics != nil {
			d.metrics.CounterInc(metricScans.Name)
			d.metrics.CounterAdd(metricScanFinding.Name, float64(report.Critical), "critical")
			d.metrics.CounterAdd(metricScanFinding.Name, float64(report.High), "high")
			d.metrics.CounterAdd(metricScanFinding.Name, float64(report.Medium), "medium")
			d.metrics.CounterAdd(metricScanFinding.Name, float64(report.Low), "low")
		}
		return report, nil

	case "invalidate":
		var p invalidateParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Ecosystem == "" && p.Name == "" {
			d.engine.Invalidate(nil)
			return "ok", nil
		}
		key := cache.Key{Ecosystem: ecosystemOf(p.Ecosystem), SourceRegistry: p.SourceRegistry, Name: p.Name}
		d.engine.Invalidate(&key)
		return "ok", nil

	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
}

func (d *dispatcher) countLookup(err error) {
	if d.metrics == nil {
		return
	}
	if err != nil {
		d.metrics.CounterInc(metricLookups.Name, "error")
		return
	}
	d.metrics.CounterInc(metricLookups.Name, "ok")
}

func ecosystemOf(s string) ecosystem.Ecosystem {
	for _, e := range ecosystem.All() {
		if string(e) == s {
			return e
		}
	}
	return ecosystem.Ecosystem(s)
}

func toDescriptor(p lookupParams) descriptor.Descriptor {
	return descriptor.Descriptor{
		Ecosystem:    ecosystemOf(p.Ecosystem),
		Name:         p.Name,
		DeclaredSpec: p.DeclaredSpec,
		SourceKind:   descriptor.SourceRegistry,
		RoutingHint:  descriptor.RoutingHint{RegistryName: p.RegistryName, Scope: p.Scope},
	}
}
