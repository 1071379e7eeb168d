// Package fetch performs HTTP retrieval with retry, backoff and pacing.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/proxy"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

// Fetcher performs a single HTTP GET attempt. Retry policy lives in Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (catalog.FetchResult, error)
}

// CollyConfig controls the low-level collector.
type CollyConfig struct {
	UserAgent     string
	Timeout       time.Duration
	RespectRobots bool
	// Proxies enables round-robin proxy rotation when non-empty.
	Proxies []string
}

// CollyFetcher implements Fetcher using a Colly collector.
type CollyFetcher struct {
	cfg           CollyConfig
	baseCollector *colly.Collector
}

// NewCollyFetcher builds a CollyFetcher.
func NewCollyFetcher(cfg CollyConfig) (*CollyFetcher, error) {
	c := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c.SetRequestTimeout(timeout)
	c.WithTransport(newHTTPTransport())

	if len(cfg.Proxies) > 0 {
		switcher, err := proxy.RoundRobinProxySwitcher(cfg.Proxies...)
		if err != nil {
			return nil, fmt.Errorf("configure proxy rotation: %w", err)
		}
		c.SetProxyFunc(switcher)
	}

	return &CollyFetcher{cfg: cfg, baseCollector: c}, nil
}

// Fetch executes one HTTP GET. Any HTTP response, including non-2xx, is
// returned as a FetchResult with its status code; only transport-level
// failures produce an error.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (catalog.FetchResult, error) {
	var (
		result       catalog.FetchResult
		responseSeen bool
		fetchErr     error
	)

	collector := f.baseCollector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		responseSeen = true
		result = catalog.FetchResult{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			FetchedAt:  time.Now().UTC(),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			responseSeen = true
			result = catalog.FetchResult{
				URL:        url,
				StatusCode: r.StatusCode,
				Body:       append([]byte(nil), r.Body...),
				FetchedAt:  time.Now().UTC(),
			}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return catalog.FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if responseSeen {
			return result, nil
		}
		if fetchErr != nil {
			return catalog.FetchResult{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if err != nil {
			return catalog.FetchResult{}, fmt.Errorf("fetch %s: %w", url, err)
		}
		return catalog.FetchResult{}, fmt.Errorf("fetch %s: no response received", url)
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
