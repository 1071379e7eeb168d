// Package paginate drives multi-page catalog traversal with bounded stop
// conditions.
package paginate

import (
	"context"

	"go.uber.org/zap"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

// Source produces the normalized items of a single listing page.
type Source interface {
	FetchPage(ctx context.Context, req catalog.PageRequest) ([]catalog.ContentItem, catalog.Diagnostics, error)
}

// Defaults for page traversal.
const (
	DefaultItemsPerPage = 20
	MaxItemsPerPage     = 100

	// filteredStreakLimit stops traversal after this many consecutive pages
	// that contribute no new items, whether filtered out or already seen.
	// This bounds traversal on sparse result sets and on sites that loop
	// their listings when no page cap is configured.
	filteredStreakLimit = 3
)

// Config bounds one traversal. The zero value starts at page 1 with the
// default page size and no page cap.
type Config struct {
	StartPage    int
	MaxPages     int
	ItemsPerPage int
}

// Paginator walks listing pages sequentially, merging results. It retains no
// cursor between runs: callers resume by setting StartPage on a fresh Config.
type Paginator struct {
	source Source
	cfg    Config
	logger *zap.Logger
}

// New builds a Paginator over source.
func New(source Source, cfg Config, logger *zap.Logger) *Paginator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StartPage < 1 {
		cfg.StartPage = 1
	}
	if cfg.ItemsPerPage < 1 {
		cfg.ItemsPerPage = DefaultItemsPerPage
	}
	if cfg.ItemsPerPage > MaxItemsPerPage {
		cfg.ItemsPerPage = MaxItemsPerPage
	}
	return &Paginator{source: source, cfg: cfg, logger: logger}
}

// Run fetches pages in increasing order until a stop condition fires,
// applying filters post-parse and merging duplicate IDs (latest fetch wins).
// A fetch failure terminates traversal early and surfaces the items already
// collected alongside the failure.
func (p *Paginator) Run(
	ctx context.Context,
	kind catalog.Kind,
	filters catalog.Filters,
	searchTerm string,
) ([]catalog.ContentItem, catalog.Diagnostics, error) {
	var diag catalog.Diagnostics
	var items []catalog.ContentItem
	index := make(map[string]int)
	streak := 0
	page := p.cfg.StartPage
	fetched := 0

	for {
		if err := ctx.Err(); err != nil {
			diag.StopReason = catalog.StopCanceled
			return items, diag, err
		}
		if p.cfg.MaxPages > 0 && fetched >= p.cfg.MaxPages {
			diag.StopReason = catalog.StopMaxPages
			return items, diag, nil
		}

		pageItems, pageDiag, err := p.source.FetchPage(ctx, catalog.PageRequest{
			PageNumber:   page,
			ItemsPerPage: p.cfg.ItemsPerPage,
			Kind:         kind,
			SearchTerm:   searchTerm,
		})
		fetched++
		diag.Merge(pageDiag)
		diag.PagesFetched++

		if err != nil {
			diag.StopReason = catalog.StopFetchError
			p.logger.Warn("pagination terminated by fetch failure",
				zap.Int("page", page),
				zap.Int("collected", len(items)),
				zap.Error(err),
			)
			return items, diag, err
		}
		if len(pageItems) == 0 {
			diag.StopReason = catalog.StopEmptyPage
			return items, diag, nil
		}

		added := 0
		for _, item := range pageItems {
			if !filters.Matches(item) {
				diag.FilteredOut++
				continue
			}
			if at, dup := index[item.ID]; dup {
				// Same slug seen on an earlier page: latest fetch wins.
				diag.Duplicates++
				items[at] = item
				continue
			}
			index[item.ID] = len(items)
			items = append(items, item)
			added++
		}

		if added == 0 {
			streak++
			if streak >= filteredStreakLimit {
				diag.StopReason = catalog.StopFilteredStreak
				return items, diag, nil
			}
		} else {
			streak = 0
		}
		page++
	}
}
