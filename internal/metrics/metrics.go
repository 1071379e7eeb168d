// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperPagesTotal         *prometheus.CounterVec
	scraperItemsTotal         *prometheus.CounterVec
	scraperFetchRetriesTotal  prometheus.Counter
	scraperFetchFailuresTotal *prometheus.CounterVec
	scraperParseFailuresTotal prometheus.Counter
	scraperCacheHitsTotal     prometheus.Counter
	scraperRateLimitDelays    prometheus.Histogram
	scraperFetchDuration      prometheus.Histogram
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDuration       *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		scraperPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_total",
				Help: "Total number of catalog pages fetched, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		scraperItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_items_total",
				Help: "Total number of content items normalized, labeled by kind.",
			},
			[]string{"kind"},
		)

		scraperFetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_fetch_retries_total",
				Help: "Total number of fetch attempts that were retried.",
			},
		)

		scraperFetchFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_failures_total",
				Help: "Total number of fetch failures after retry exhaustion, labeled by class.",
			},
			[]string{"class"},
		)

		scraperParseFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_parse_failures_total",
				Help: "Total number of content cards dropped for missing mandatory fields.",
			},
		)

		scraperCacheHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_cache_hits_total",
				Help: "Total number of fetches served from the response cache.",
			},
		)

		scraperRateLimitDelays = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delay_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		scraperFetchDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_http_requests_total",
				Help: "Total number of API requests served, labeled by method, route and status.",
			},
			[]string{"method", "route", "status"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_http_request_duration_seconds",
				Help:    "Histogram of API request latencies by route.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage increments the page counter for kind/status.
func ObservePage(kind, status string) {
	if scraperPagesTotal != nil {
		scraperPagesTotal.WithLabelValues(kind, status).Inc()
	}
}

// ObserveItems adds normalized items for a kind.
func ObserveItems(kind string, count int) {
	if scraperItemsTotal != nil && count > 0 {
		scraperItemsTotal.WithLabelValues(kind).Add(float64(count))
	}
}

// ObserveRetry increments the retry counter.
func ObserveRetry() {
	if scraperFetchRetriesTotal != nil {
		scraperFetchRetriesTotal.Inc()
	}
}

// ObserveFetchFailure increments the failure counter for a failure class.
func ObserveFetchFailure(class string) {
	if scraperFetchFailuresTotal != nil {
		scraperFetchFailuresTotal.WithLabelValues(class).Inc()
	}
}

// ObserveParseFailure increments the dropped-card counter.
func ObserveParseFailure() {
	if scraperParseFailuresTotal != nil {
		scraperParseFailuresTotal.Inc()
	}
}

// ObserveCacheHit increments the response cache hit counter.
func ObserveCacheHit() {
	if scraperCacheHitsTotal != nil {
		scraperCacheHitsTotal.Inc()
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(d time.Duration) {
	if scraperRateLimitDelays != nil {
		scraperRateLimitDelays.Observe(d.Seconds())
	}
}

// ObserveFetchDuration records the latency of one page fetch.
func ObserveFetchDuration(d time.Duration) {
	if scraperFetchDuration != nil {
		scraperFetchDuration.Observe(d.Seconds())
	}
}

// ObserveHTTPRequest records one served API request.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(route).Observe(d.Seconds())
	}
}
