package registry

import (
	"context"

	"golang.org/x/time/rate"
)

// Budget describes one registry's request budget: Rate requests become
// available per second, Burst allows short bursts above the steady rate.
type Budget struct {
	Rate  float64
	Burst int
}

// Budgets holds the spec'd per-registry budgets, strict for crates.io,
// soft everywhere else: fetchers queue behind the limiter rather than
// failing when saturated.
var Budgets = map[string]Budget{
	"crates.io":            {Rate: 1, Burst: 1},
	"registry.npmjs.org":   {Rate: 1, Burst: 2},
	"pypi.org":             {Rate: 20, Burst: 20},
	"proxy.golang.org":     {Rate: 10, Burst: 10}, // fair-use; no published number
	"packagist.org":        {Rate: 1, Burst: 5},   // 60/minute
	"pub.dev":              {Rate: 100.0 / 60.0, Burst: 10},
	"api.nuget.org":        {Rate: 10, Burst: 10}, // fair-use; no published number
	"rubygems.org":         {Rate: 10, Burst: 10},
}

// limiterSet holds one *rate.Limiter per host, so every Fetcher sharing the
// same registry host also shares the same token bucket: a private Cargo
// alternate registry configured separately gets its own entry keyed by its
// own host name.
type limiterSet struct {
	limiters map[string]*rate.Limiter
}

func newLimiterSet() *limiterSet {
	ls := &limiterSet{limiters: make(map[string]*rate.Limiter, len(Budgets))}
	for host, b := range Budgets {
		ls.limiters[host] = rate.NewLimiter(rate.Limit(b.Rate), b.Burst)
	}
	return ls
}

// forHost returns the limiter for host, creating a conservative default
// (fair-use, 5 req/s) if host has no published budget — e.g. a private
// Cargo sparse-index mirror or scoped npm registry the router added at
// runtime.
func (ls *limiterSet) forHost(host string) *rate.Limiter {
	if l, ok := ls.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(5, 5)
	ls.limiters[host] = l
	return l
}

// wait blocks until the host's limiter admits one request, or ctx is done.
func (ls *limiterSet) wait(ctx context.Context, host string) error {
	return ls.forHost(host).Wait(ctx)
}
