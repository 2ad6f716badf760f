package engine

import (
	"github.com/packradar/packradar/pkg/core"
	"github.com/packradar/packradar/pkg/perrors"
)

// Decoration is the degraded-mode label a collaborator renders when a
// lookup did not resolve to a materialized VersionInfo.
type Decoration string

const (
	DecorationUnknown Decoration = "? Unknown"
	DecorationYanked  Decoration = "⊘ Yanked"
	DecorationPseudo  Decoration = "→ Pseudo"
)

// Degrade maps an error onto spec §7's policy table: every kind resolves
// to the Unknown decoration, but the log level and message differ per
// kind. The core never propagates past this point — Degrade's caller logs
// and moves on, it never panics or aborts the batch.
func Degrade(err error, logger core.Logger) Decoration {
	if err == nil {
		return ""
	}
	switch perrors.GetKind(err) {
	case perrors.KindNotFound:
		// cached under negative-TTL by the caller; no logging needed here.
	case perrors.KindRateLimited:
		logger.Warn("rate limited, giving up after retries: %v", err)
	case perrors.KindNetwork, perrors.KindTimeout:
		logger.Debug("network error: %v", err)
	case perrors.KindRegistryProtocol:
		logger.Warn("registry response could not be decoded: %v", err)
	case perrors.KindCache:
		logger.Warn("cache degraded to hot-tier-only: %v", err)
	case perrors.KindConfiguration:
		logger.Error("configuration error: %v", err)
	default:
		logger.Warn("unexpected error: %v", err)
	}
	return DecorationUnknown
}
