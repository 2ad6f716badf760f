// Package config loads the configuration snapshot handed to the engine
// once at startup, mirroring cmd/rediver-agent's own yaml.v3-tagged Config
// struct in the teacher repo.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/packradar/packradar/pkg/perrors"
)

// InlayHints controls decoration policy at the presentation edge; the
// engine still resolves every descriptor regardless of these flags.
type InlayHints struct {
	Enabled        bool `yaml:"enabled"`
	ShowUpToDate   bool `yaml:"show_up_to_date"`
}

// Diagnostics controls whether the collaborator renders diagnostics.
type Diagnostics struct {
	Enabled bool `yaml:"enabled"`
}

// Cache configures the engine's TTL override.
type Cache struct {
	TTLSecs int `yaml:"ttl_secs"`
}

// Security enables vulnerability lookup and its severity floor.
type Security struct {
	Enabled     bool   `yaml:"enabled"`
	MinSeverity string `yaml:"min_severity"`
}

// Auth names an environment variable a bearer token is read from at
// request time, never at load time (spec §4.7).
type Auth struct {
	Type     string `yaml:"type"`
	Variable string `yaml:"variable"`
}

// CargoRegistryConfig configures one Cargo alternate registry entry.
type CargoRegistryConfig struct {
	IndexURL string `yaml:"index_url"`
	Auth     Auth   `yaml:"auth"`
}

// NPMScopeConfig configures one npm scope's private registry.
type NPMScopeConfig struct {
	URL  string `yaml:"url"`
	Auth Auth   `yaml:"auth"`
}

// CargoRegistries configures Cargo routing.
type CargoRegistries struct {
	Registries map[string]CargoRegistryConfig `yaml:"registries"`
}

// NPMRegistry configures npm routing: a default URL plus per-scope entries.
type NPMRegistry struct {
	URL    string                    `yaml:"url"`
	Scoped map[string]NPMScopeConfig `yaml:"scoped"`
}

// Registries groups every ecosystem's routing configuration.
type Registries struct {
	Cargo CargoRegistries `yaml:"cargo"`
	NPM   NPMRegistry      `yaml:"npm"`
}

// Snapshot is the immutable configuration handed to the engine once at
// startup (spec §9's "configuration snapshot" note): never mutated after
// Load returns, threaded through collaborators by pointer.
type Snapshot struct {
	InlayHints  InlayHints  `yaml:"inlay_hints"`
	Diagnostics Diagnostics `yaml:"diagnostics"`
	Cache       Cache       `yaml:"cache"`
	Security    Security    `yaml:"security"`
	Ignore      []string    `yaml:"ignore"`
	Registries  Registries  `yaml:"registries"`
}

// Default returns the snapshot the daemon starts from before any config
// file is applied on top: inlay hints and diagnostics on, security on at
// medium, no ignore globs, no alternate registries.
func Default() *Snapshot {
	return &Snapshot{
		InlayHints:  InlayHints{Enabled: true, ShowUpToDate: false},
		Diagnostics: Diagnostics{Enabled: true},
		Cache:       Cache{TTLSecs: 3600},
		Security:    Security{Enabled: true, MinSeverity: "medium"},
	}
}

// Load reads and parses a YAML configuration file, starting from Default
// and overlaying whatever the file sets. A missing path is not an error —
// the collaborator may run with defaults alone — but a malformed file is
// KindConfiguration, per spec §7's "startup fails loudly" policy.
func Load(path string) (*Snapshot, error) {
	snap := Default()
	if path == "" {
		return snap, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return nil, perrors.E(perrors.KindConfiguration, "config.Load", fmt.Sprintf("reading %s", path), err)
	}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return nil, perrors.E(perrors.KindConfiguration, "config.Load", fmt.Sprintf("parsing %s", path), err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

var validSeverities = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

// Validate rejects configuration values that would silently misbehave,
// pointing the diagnostic at the offending key (spec §7's ConfigurationError).
func (s *Snapshot) Validate() error {
	if s.Security.MinSeverity != "" && !validSeverities[s.Security.MinSeverity] {
		return perrors.E(perrors.KindConfiguration, "config.Validate",
			fmt.Sprintf("security.min_severity: invalid value %q", s.Security.MinSeverity))
	}
	if s.Cache.TTLSecs < 0 {
		return perrors.E(perrors.KindConfiguration, "config.Validate", "cache.ttl_secs: must not be negative")
	}
	return nil
}

// MetadataTTL converts cache.ttl_secs into a time.Duration, falling back
// to one hour when unset.
func (s *Snapshot) MetadataTTL() time.Duration {
	if s.Cache.TTLSecs <= 0 {
		return time.Hour
	}
	return time.Duration(s.Cache.TTLSecs) * time.Second
}
