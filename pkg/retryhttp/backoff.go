// Package retryhttp adapts rediverio-sdk's pkg/retry exponential-backoff
// math to per-request HTTP retries: where the teacher's queue re-tries a
// failed upload minutes to days later, a registry fetch retries within the
// lifetime of one lookup call, so the base interval and ceiling both move
// down several orders of magnitude.
package retryhttp

import (
	"math"
	"math/rand"
	"time"
)

// Strategy selects how the interval grows between attempts.
type Strategy int

const (
	StrategyExponential Strategy = iota
	StrategyConstant
)

// Config configures backoff between HTTP retry attempts.
type Config struct {
	Strategy     Strategy
	BaseInterval time.Duration
	MaxInterval  time.Duration
	// Jitter is a fraction in [0,1]; the interval is perturbed by
	// +/-(Jitter * interval) to avoid synchronized retries across clients.
	Jitter float64
}

// DefaultConfig returns the fetcher-path default: 500ms base, 10s ceiling,
// 20% jitter, matching spec's ten-second soft per-request budget (C4).
func DefaultConfig() Config {
	return Config{
		Strategy:     StrategyExponential,
		BaseInterval: 500 * time.Millisecond,
		MaxInterval:  10 * time.Second,
		Jitter:       0.2,
	}
}

// Interval returns the delay to wait before retry attempt n (1-based).
func (c Config) Interval(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var interval time.Duration
	switch c.Strategy {
	case StrategyConstant:
		interval = c.BaseInterval
	default:
		interval = time.Duration(float64(c.BaseInterval) * math.Pow(2, float64(attempt-1)))
	}

	if c.MaxInterval > 0 && interval > c.MaxInterval {
		interval = c.MaxInterval
	}
	if c.Jitter > 0 {
		interval = applyJitter(interval, c.Jitter)
	}
	if interval < 0 {
		interval = 0
	}
	return interval
}

func applyJitter(interval time.Duration, jitter float64) time.Duration {
	if jitter > 1 {
		jitter = 1
	}
	span := float64(interval) * jitter
	delta := (rand.Float64()*2 - 1) * span
	return time.Duration(float64(interval) + delta)
}
