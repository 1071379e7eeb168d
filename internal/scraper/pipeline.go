// Package scraper orchestrates fetch, parse, normalize, filter and paginate
// into the public scraping operations.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
	"github.com/charliechaser/cuevana-scraper/internal/clock/system"
	"github.com/charliechaser/cuevana-scraper/internal/metrics"
	"github.com/charliechaser/cuevana-scraper/internal/normalize"
	"github.com/charliechaser/cuevana-scraper/internal/paginate"
	"github.com/charliechaser/cuevana-scraper/internal/parse"
)

// PageFetcher retrieves one URL with retry and pacing applied.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (catalog.FetchResult, error)
}

// Config controls pipeline defaults.
type Config struct {
	BaseURL      string
	ItemsPerPage int
	MaxPages     int
}

// Options tune a single scrape call. Zero values fall back to Config.
type Options struct {
	Page         int
	ItemsPerPage int
	MaxPages     int
}

// Pipeline is the single-worker scraping pipeline. Page fetches within one
// call are strictly sequential; run one Pipeline per concurrent kind and give
// each its own fetch client (or share one for global pacing).
type Pipeline struct {
	fetcher PageFetcher
	parser  *parse.Parser
	clock   catalog.Clock
	cfg     Config
	logger  *zap.Logger
}

// New builds a Pipeline.
func New(fetcher PageFetcher, parser *parse.Parser, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://cuevana.pro"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Pipeline{
		fetcher: fetcher,
		parser:  parser,
		clock:   system.New(),
		cfg:     cfg,
		logger:  logger,
	}
}

// WithClock overrides the pipeline clock. Primarily for tests.
func (p *Pipeline) WithClock(clock catalog.Clock) *Pipeline {
	p.clock = clock
	return p
}

// ScrapeMovies walks the movie listing and returns the filtered items.
func (p *Pipeline) ScrapeMovies(ctx context.Context, filters catalog.Filters, opts Options) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	return p.scrape(ctx, catalog.KindMovie, filters, "", opts)
}

// ScrapeTVShows walks the series listing and returns the filtered items.
func (p *Pipeline) ScrapeTVShows(ctx context.Context, filters catalog.Filters, opts Options) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	return p.scrape(ctx, catalog.KindTVShow, filters, "", opts)
}

// Search runs the site search for term. Result ordering is the remote
// relevance order, preserved.
func (p *Pipeline) Search(ctx context.Context, term string, kind catalog.Kind, filters catalog.Filters, opts Options) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, catalog.Diagnostics{}, fmt.Errorf("search term is required")
	}
	return p.scrape(ctx, kind, filters, term, opts)
}

// ScrapeURL fetches exactly one detail page and returns its single item.
// Pages without a parsable item yield ErrNotFound.
func (p *Pipeline) ScrapeURL(ctx context.Context, pageURL string) (catalog.ContentItem, error) {
	result, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return catalog.ContentItem{}, err
	}

	card, err := p.parser.ParseDetail(result.Body, pageURL)
	if err != nil {
		return catalog.ContentItem{}, fmt.Errorf("parse detail page: %w", err)
	}
	if !card.Complete() {
		return catalog.ContentItem{}, catalog.ErrNotFound
	}

	item, err := normalize.Normalize(card, kindFromURL(pageURL), p.clock.Now())
	if err != nil {
		return catalog.ContentItem{}, catalog.ErrNotFound
	}
	return item, nil
}

// Streams fetches a detail page and extracts its playback links.
func (p *Pipeline) Streams(ctx context.Context, pageURL string) ([]catalog.Stream, error) {
	result, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	streams, err := p.parser.ParseStreams(result.Body)
	if err != nil {
		return nil, fmt.Errorf("parse streams: %w", err)
	}
	return streams, nil
}

func (p *Pipeline) scrape(
	ctx context.Context,
	kind catalog.Kind,
	filters catalog.Filters,
	searchTerm string,
	opts Options,
) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	perPage := opts.ItemsPerPage
	if perPage == 0 {
		perPage = p.cfg.ItemsPerPage
	}
	maxPages := opts.MaxPages
	if maxPages == 0 {
		maxPages = p.cfg.MaxPages
	}

	paginator := paginate.New(p, paginate.Config{
		StartPage:    opts.Page,
		MaxPages:     maxPages,
		ItemsPerPage: perPage,
	}, p.logger)

	items, diag, err := paginator.Run(ctx, kind, filters, searchTerm)
	metrics.ObserveItems(string(kind), len(items))
	return items, diag, err
}

// FetchPage implements paginate.Source: one fetch, parse and normalize cycle
// for a single listing page.
func (p *Pipeline) FetchPage(ctx context.Context, req catalog.PageRequest) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	pageURL := p.pageURL(req)

	result, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.ObservePage(string(req.Kind), "error")
		return nil, catalog.Diagnostics{}, err
	}
	metrics.ObservePage(string(req.Kind), "ok")

	cards, dropped, err := p.parser.Parse(result.Body, req.Kind)
	if err != nil {
		return nil, catalog.Diagnostics{}, fmt.Errorf("parse page %d: %w", req.PageNumber, err)
	}
	for i := 0; i < dropped; i++ {
		metrics.ObserveParseFailure()
	}

	items, diag := normalize.Batch(cards, req.Kind, p.clock.Now())
	diag.ParseFailures = dropped

	if req.ItemsPerPage > 0 && len(items) > req.ItemsPerPage {
		items = items[:req.ItemsPerPage]
	}

	p.logger.Debug("page scraped",
		zap.String("kind", string(req.Kind)),
		zap.Int("page", req.PageNumber),
		zap.Int("items", len(items)),
		zap.Int("dropped", dropped),
		zap.Bool("cached", result.FromCache),
	)
	return items, diag, nil
}

// pageURL builds the listing or search URL for one page request, following
// the site's URL scheme.
func (p *Pipeline) pageURL(req catalog.PageRequest) string {
	if req.SearchTerm != "" {
		q := url.Values{}
		q.Set("s", req.SearchTerm)
		if req.Kind == catalog.KindTVShow {
			q.Set("type", "tv")
		}
		if req.PageNumber > 1 {
			q.Set("page", fmt.Sprintf("%d", req.PageNumber))
		}
		return fmt.Sprintf("%s/?%s", p.cfg.BaseURL, q.Encode())
	}

	section := "peliculas"
	if req.Kind == catalog.KindTVShow {
		section = "series"
	}
	if req.PageNumber > 1 {
		return fmt.Sprintf("%s/%s/page/%d/", p.cfg.BaseURL, section, req.PageNumber)
	}
	return fmt.Sprintf("%s/%s/", p.cfg.BaseURL, section)
}

func kindFromURL(pageURL string) catalog.Kind {
	if u, err := url.Parse(pageURL); err == nil {
		if strings.Contains(u.Path, "/serie") {
			return catalog.KindTVShow
		}
	}
	return catalog.KindMovie
}
