package fetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/ratelimit"
)

// scriptedFetcher returns canned outcomes in order, repeating the last one.
type scriptedFetcher struct {
	attempts int
	results  []catalog.FetchResult
	errs     []error
}

func (f *scriptedFetcher) Fetch(_ context.Context, url string) (catalog.FetchResult, error) {
	i := f.attempts
	f.attempts++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	res := f.results[i]
	if res.URL == "" {
		res.URL = url
	}
	return res, f.errs[i]
}

func okResult(body string) catalog.FetchResult {
	return catalog.FetchResult{StatusCode: http.StatusOK, Body: []byte(body), FetchedAt: time.Now().UTC()}
}

func statusResult(code int) catalog.FetchResult {
	return catalog.FetchResult{StatusCode: code}
}

func newTestClient(f Fetcher, cfg Config) *Client {
	return NewClient(f, ratelimit.New(0), cfg, zap.NewNop())
}

func TestFetchSuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{okResult("<html>ok</html>")},
		errs:    []error{nil},
	}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Millisecond})

	result, err := client.Fetch(context.Background(), "https://cuevana.pro/peliculas/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, 1, fetcher.attempts)
	require.Zero(t, client.Failures())
}

func TestFetchRetriesExactlyConfiguredAttempts(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{{}},
		errs:    []error{errors.New("dial tcp: i/o timeout")},
	}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Millisecond})

	_, err := client.Fetch(context.Background(), "https://cuevana.pro/peliculas/")
	require.Error(t, err)
	require.True(t, catalog.IsTransient(err))
	require.Equal(t, 3, fetcher.attempts)
	require.EqualValues(t, 3, client.Failures())

	var te *catalog.TransientError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 3, te.Attempts)
}

func TestFetchServerErrorIsRetried(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{statusResult(http.StatusBadGateway), okResult("ok")},
		errs:    []error{nil, nil},
	}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Millisecond})

	result, err := client.Fetch(context.Background(), "https://cuevana.pro/series/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, 2, fetcher.attempts)
	require.EqualValues(t, 1, client.Failures())
}

func TestFetchClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{statusResult(http.StatusNotFound)},
		errs:    []error{nil},
	}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Millisecond})

	_, err := client.Fetch(context.Background(), "https://cuevana.pro/pelicula/missing")
	require.Error(t, err)
	require.True(t, catalog.IsPermanent(err))
	require.Equal(t, 1, fetcher.attempts)
}

func TestFetchForbiddenSurfacesBlocked(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{statusResult(http.StatusForbidden)},
		errs:    []error{nil},
	}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Millisecond})

	_, err := client.Fetch(context.Background(), "https://cuevana.pro/peliculas/")
	require.ErrorIs(t, err, catalog.ErrBlocked)
	require.Equal(t, 1, fetcher.attempts)
}

func TestFetchTooManyRequestsRetriedWithCooldown(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{statusResult(http.StatusTooManyRequests), okResult("ok")},
		errs:    []error{nil, nil},
	}
	client := newTestClient(fetcher, Config{
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		Cooldown429:   30 * time.Millisecond,
	})

	start := time.Now()
	result, err := client.Fetch(context.Background(), "https://cuevana.pro/peliculas/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)
	require.Equal(t, 2, fetcher.attempts)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFetchMalformedURLIsPermanent(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{results: []catalog.FetchResult{{}}, errs: []error{nil}}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Millisecond})

	_, err := client.Fetch(context.Background(), "ftp://not-a-web-url")
	require.Error(t, err)
	require.True(t, catalog.IsPermanent(err))
	require.Zero(t, fetcher.attempts)
}

func TestFetchCacheHitBypassesNetwork(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{okResult("cached body")},
		errs:    []error{nil},
	}
	client := newTestClient(fetcher, Config{
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		CacheTTL:      time.Minute,
	})

	first, err := client.Fetch(context.Background(), "https://cuevana.pro/peliculas/")
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := client.Fetch(context.Background(), "https://cuevana.pro/peliculas/")
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, first.Body, second.Body)
	require.Equal(t, 1, fetcher.attempts)
}

func TestFetchCancellationDuringBackoff(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{
		results: []catalog.FetchResult{{}},
		errs:    []error{errors.New("connection refused")},
	}
	client := newTestClient(fetcher, Config{RetryAttempts: 3, RetryDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, "https://cuevana.pro/peliculas/")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, fetcher.attempts)
}
