package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/metrics"
	"github.com/charliechaser/cuevana-scraper/internal/ratelimit"
)

// Config controls the retry and caching behavior of a Client.
type Config struct {
	// RetryAttempts is the total number of fetch attempts for one URL.
	RetryAttempts int
	// RetryDelay is multiplied by the attempt number for linear backoff.
	RetryDelay time.Duration
	// Cooldown429 is the extra pause applied after a 429 response.
	Cooldown429 time.Duration
	// CacheTTL enables the in-memory response cache when positive.
	CacheTTL time.Duration
}

// Client wraps a Fetcher with rate limiting, retry with linear backoff, and
// an optional TTL response cache.
type Client struct {
	fetcher  Fetcher
	limiter  *ratelimit.Limiter
	cache    *responseCache
	cfg      Config
	failures atomic.Int64
	logger   *zap.Logger
}

// NewClient builds a Client around fetcher. The limiter is acquired before
// every network attempt; cache hits skip it entirely.
func NewClient(fetcher Fetcher, limiter *ratelimit.Limiter, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Cooldown429 <= 0 {
		cfg.Cooldown429 = 5 * time.Second
	}
	c := &Client{
		fetcher: fetcher,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.CacheTTL > 0 {
		c.cache = newResponseCache(cfg.CacheTTL)
	}
	return c
}

// Failures returns the number of failed fetch attempts so far. Diagnostic
// only; control flow never consults it.
func (c *Client) Failures() int64 {
	return c.failures.Load()
}

// Fetch retrieves url, retrying transient failures with linear backoff.
// Non-retryable HTTP statuses surface immediately as a PermanentError;
// exhausted retries surface the last failure as a TransientError.
func (c *Client) Fetch(ctx context.Context, rawURL string) (catalog.FetchResult, error) {
	if c.cache != nil {
		if result, ok := c.cache.get(rawURL); ok {
			metrics.ObserveCacheHit()
			result.FromCache = true
			return result, nil
		}
	}

	if err := validateURL(rawURL); err != nil {
		return catalog.FetchResult{}, &catalog.PermanentError{URL: rawURL, Err: err}
	}

	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return catalog.FetchResult{}, err
		}

		start := time.Now()
		result, err := c.fetcher.Fetch(ctx, rawURL)
		metrics.ObserveFetchDuration(time.Since(start))

		switch {
		case err != nil:
			// Transport failure: timeout or network error, always retryable.
			lastErr = err
			lastStatus = 0
		case result.StatusCode >= 200 && result.StatusCode < 300:
			if c.cache != nil {
				c.cache.put(rawURL, result)
			}
			return result, nil
		case result.StatusCode == http.StatusForbidden:
			c.failures.Add(1)
			metrics.ObserveFetchFailure("blocked")
			return catalog.FetchResult{}, &catalog.PermanentError{
				URL:    rawURL,
				Status: result.StatusCode,
				Err:    catalog.ErrBlocked,
			}
		case result.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("throttled with status %d", result.StatusCode)
			lastStatus = result.StatusCode
		case result.StatusCode >= 500:
			lastErr = fmt.Errorf("server error status %d", result.StatusCode)
			lastStatus = result.StatusCode
		default:
			c.failures.Add(1)
			metrics.ObserveFetchFailure("permanent")
			return catalog.FetchResult{}, &catalog.PermanentError{URL: rawURL, Status: result.StatusCode}
		}

		c.failures.Add(1)
		if attempt == c.cfg.RetryAttempts {
			break
		}

		metrics.ObserveRetry()
		backoff := c.cfg.RetryDelay * time.Duration(attempt)
		if lastStatus == http.StatusTooManyRequests {
			backoff += c.cfg.Cooldown429
		}
		c.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)
		if err := sleep(ctx, backoff); err != nil {
			return catalog.FetchResult{}, err
		}
	}

	metrics.ObserveFetchFailure("transient")
	return catalog.FetchResult{}, &catalog.TransientError{
		URL:      rawURL,
		Status:   lastStatus,
		Attempts: c.cfg.RetryAttempts,
		Err:      lastErr,
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", rawURL)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
