// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/metrics"
	"github.com/charliechaser/cuevana-scraper/internal/scraper"
)

// Scraper is the pipeline surface the HTTP handlers drive.
type Scraper interface {
	ScrapeMovies(ctx context.Context, filters catalog.Filters, opts scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error)
	ScrapeTVShows(ctx context.Context, filters catalog.Filters, opts scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error)
	Search(ctx context.Context, term string, kind catalog.Kind, filters catalog.Filters, opts scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error)
	ScrapeURL(ctx context.Context, pageURL string) (catalog.ContentItem, error)
	Streams(ctx context.Context, pageURL string) ([]catalog.Stream, error)
}

// Server wires HTTP handlers to the scraping pipeline.
type Server struct {
	router  chi.Router
	scraper Scraper
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(sc Scraper, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{scraper: sc, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthz)
		r.Get("/movies", s.listMovies)
		r.Get("/tv", s.listTVShows)
		r.Get("/search", s.search)
		r.Get("/detail", s.detail)
		r.Get("/streams", s.streams)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listResponse is the envelope shared by the listing and search endpoints.
type listResponse struct {
	Items       []catalog.ContentItem `json:"items"`
	Diagnostics catalog.Diagnostics   `json:"diagnostics"`
}

func (s *Server) listMovies(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, s.scraper.ScrapeMovies)
}

func (s *Server) listTVShows(w http.ResponseWriter, r *http.Request) {
	s.list(w, r, s.scraper.ScrapeTVShows)
}

func (s *Server) list(
	w http.ResponseWriter,
	r *http.Request,
	scrape func(context.Context, catalog.Filters, scraper.Options) ([]catalog.ContentItem, catalog.Diagnostics, error),
) {
	filters, err := parseFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, diag, err := scrape(r.Context(), filters, opts)
	if err != nil {
		s.writeError(w, upstreamStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{Items: items, Diagnostics: diag})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	kind := catalog.KindMovie
	if k := r.URL.Query().Get("kind"); k != "" {
		kind = catalog.Kind(k)
		if !kind.Valid() {
			s.writeError(w, http.StatusBadRequest, "kind must be movie or tvshow")
			return
		}
	}
	filters, err := parseFilters(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, diag, err := s.scraper.Search(r.Context(), term, kind, filters, opts)
	if err != nil {
		s.writeError(w, upstreamStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, listResponse{Items: items, Diagnostics: diag})
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter url is required")
		return
	}
	item, err := s.scraper.ScrapeURL(r.Context(), pageURL)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "content not found")
			return
		}
		s.writeError(w, upstreamStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, item)
}

func (s *Server) streams(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter url is required")
		return
	}
	streams, err := s.scraper.Streams(r.Context(), pageURL)
	if err != nil {
		s.writeError(w, upstreamStatus(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"streams": streams})
}

func parseFilters(r *http.Request) (catalog.Filters, error) {
	q := r.URL.Query()
	var filters catalog.Filters
	filters.Genre = q.Get("genre")

	if v := q.Get("year_from"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return catalog.Filters{}, errors.New("year_from must be an integer")
		}
		filters.YearFrom = &year
	}
	if v := q.Get("year_to"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return catalog.Filters{}, errors.New("year_to must be an integer")
		}
		filters.YearTo = &year
	}
	if v := q.Get("min_rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return catalog.Filters{}, errors.New("min_rating must be a number")
		}
		filters.MinRating = &rating
	}
	return filters, nil
}

func parseOptions(r *http.Request) (scraper.Options, error) {
	q := r.URL.Query()
	var opts scraper.Options

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"page", &opts.Page},
		{"limit", &opts.ItemsPerPage},
		{"max_pages", &opts.MaxPages},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return scraper.Options{}, errors.New(p.name + " must be a non-negative integer")
		}
		*p.dst = n
	}
	return opts, nil
}

// upstreamStatus maps pipeline failures to gateway-style status codes.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrBlocked):
		return http.StatusBadGateway
	case catalog.IsTransient(err):
		return http.StatusGatewayTimeout
	case catalog.IsPermanent(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

// metricsMiddleware records per-route request counts and latencies.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
