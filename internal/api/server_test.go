package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
)

// fakeScraper records the last call and returns canned results.
type fakeScraper struct {
	items   []catalog.ContentItem
	streams []catalog.Stream
	diag    catalog.Diagnostics
	err     error

	lastFilters catalog.Filters
	lastOpts    scraper.Options
	lastTerm    string
	lastKind    catalog.Kind
	lastURL     string
}

func (f *fakeScraper) ScrapeMovies(_ context.Context, filters catalog.Filters, opts scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	f.lastFilters, f.lastOpts = filters, opts
	return f.items, f.diag, f.err
}

func (f *fakeScraper) ScrapeTVShows(_ context.Context, filters catalog.Filters, opts scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	f.lastFilters, f.lastOpts = filters, opts
	return f.items, f.diag, f.err
}

func (f *fakeScraper) Search(_ context.Context, term string, kind catalog.Kind, filters catalog.Filters, opts scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	f.lastTerm, f.lastKind, f.lastFilters, f.lastOpts = term, kind, filters, opts
	return f.items, f.diag, f.err
}

func (f *fakeScraper) ScrapeURL(_ context.Context, pageURL string) (catalog.ContentItem, error) {
	f.lastURL = pageURL
	if f.err != nil {
		return catalog.ContentItem{}, f.err
	}
	if len(f.items) == 0 {
		return catalog.ContentItem{}, catalog.ErrNotFound
	}
	return f.items[0], nil
}

func (f *fakeScraper) Streams(_ context.Context, pageURL string) ([]catalog.Stream, error) {
	f.lastURL = pageURL
	return f.streams, f.err
}

func sampleItem() catalog.ContentItem {
	year := 2010
	return catalog.ContentItem{
		ID:        "inception",
		Kind:      catalog.KindMovie,
		Title:     "Inception",
		Year:      &year,
		SourceURL: "https://cuevana.pro/pelicula/inception",
		FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func get(t *testing.T, sc Scraper, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(sc, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/healthz", "/api/health"} {
		rec := get(t, &fakeScraper{}, path)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestLogCarriesRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	srv := NewServer(&fakeScraper{}, zap.New(core))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.NotEmpty(t, fields["request_id"])
	require.Equal(t, rec.Header().Get("X-Request-ID"), fields["request_id"])
}

func TestListMoviesParsesFiltersAndOptions(t *testing.T) {
	t.Parallel()

	fake := &fakeScraper{items: []catalog.ContentItem{sampleItem()}, diag: catalog.Diagnostics{PagesFetched: 1}}
	rec := get(t, fake, "/api/movies?genre=action&year_from=2000&min_rating=7.5&page=2&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "action", fake.lastFilters.Genre)
	require.NotNil(t, fake.lastFilters.YearFrom)
	require.Equal(t, 2000, *fake.lastFilters.YearFrom)
	require.NotNil(t, fake.lastFilters.MinRating)
	require.InDelta(t, 7.5, *fake.lastFilters.MinRating, 0.001)
	require.Equal(t, 2, fake.lastOpts.Page)
	require.Equal(t, 10, fake.lastOpts.ItemsPerPage)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, 1, resp.Diagnostics.PagesFetched)
}

func TestListMoviesRejectsBadFilter(t *testing.T) {
	t.Parallel()

	rec := get(t, &fakeScraper{}, "/api/movies?year_from=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	rec := get(t, &fakeScraper{}, "/api/search")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPassesTermAndKind(t *testing.T) {
	t.Parallel()

	fake := &fakeScraper{}
	rec := get(t, fake, "/api/search?q=matrix&kind=tvshow")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "matrix", fake.lastTerm)
	require.Equal(t, catalog.KindTVShow, fake.lastKind)
}

func TestSearchRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	rec := get(t, &fakeScraper{}, "/api/search?q=matrix&kind=podcast")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailNotFound(t *testing.T) {
	t.Parallel()

	rec := get(t, &fakeScraper{}, "/api/detail?url=https://cuevana.pro/pelicula/gone")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetailReturnsItem(t *testing.T) {
	t.Parallel()

	fake := &fakeScraper{items: []catalog.ContentItem{sampleItem()}}
	rec := get(t, fake, "/api/detail?url=https://cuevana.pro/pelicula/inception")
	require.Equal(t, http.StatusOK, rec.Code)

	var item catalog.ContentItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, "inception", item.ID)
}

func TestStreamsEndpoint(t *testing.T) {
	t.Parallel()

	fake := &fakeScraper{streams: []catalog.Stream{{Server: "Server A", URL: "https://player.example/abc"}}}
	rec := get(t, fake, "/api/streams?url=https://cuevana.pro/pelicula/inception")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Streams []catalog.Stream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Streams, 1)
}

func TestUpstreamErrorsMapToGatewayStatuses(t *testing.T) {
	t.Parallel()

	transient := &fakeScraper{err: &catalog.TransientError{URL: "u", Attempts: 3, Err: errors.New("timeout")}}
	rec := get(t, transient, "/api/movies")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	blocked := &fakeScraper{err: &catalog.PermanentError{URL: "u", Status: 403, Err: catalog.ErrBlocked}}
	rec = get(t, blocked, "/api/movies")
	require.Equal(t, http.StatusBadGateway, rec.Code)
}
