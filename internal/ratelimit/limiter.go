// Package ratelimit enforces minimum spacing between outbound requests.
//
// One Limiter paces one logical client: every scraping pipeline owns its own
// instance by default (instance-scoped pacing). Callers that need global
// pacing across concurrently running pipelines must construct a single
// Limiter and hand the same instance to every fetch client; mixing the two
// policies breaks the delay guarantee.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/charliechaser/cuevana-scraper/internal/metrics"
)

// Limiter grants at most one acquisition per configured delay. Concurrent
// callers serialize in arrival order on the underlying token bucket.
type Limiter struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// New builds a Limiter that spaces acquisitions by delay. A non-positive
// delay disables pacing entirely.
func New(delay time.Duration) *Limiter {
	if delay <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		delay:   delay,
	}
}

// Acquire blocks until at least the configured delay has elapsed since the
// previous granted acquisition, or until the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(waited)
	}
	return nil
}

// Delay returns the configured minimum inter-request spacing.
func (l *Limiter) Delay() time.Duration {
	return l.delay
}
