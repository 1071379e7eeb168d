// Package catalog defines the core types shared across the scraping pipeline.
package catalog

import "time"

// Kind distinguishes the two content types Cuevana serves.
type Kind string

// Content kinds understood by the pipeline.
const (
	KindMovie  Kind = "movie"
	KindTVShow Kind = "tvshow"
)

// Valid reports whether k is one of the known content kinds.
func (k Kind) Valid() bool {
	return k == KindMovie || k == KindTVShow
}

// ContentItem is the normalized, immutable record produced by the pipeline.
// ID is derived from the source URL slug and is unique within one result set.
type ContentItem struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Year        *int      `json:"year,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	Description string    `json:"description,omitempty"`
	Poster      string    `json:"poster,omitempty"`
	Runtime     string    `json:"runtime,omitempty"`
	SourceURL   string    `json:"source_url"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// PageRequest identifies one listing page to fetch.
type PageRequest struct {
	PageNumber   int
	ItemsPerPage int
	Kind         Kind
	SearchTerm   string
}

// FetchResult is the successful outcome of a single page fetch. Failures are
// reported through the error taxonomy in errors.go.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	FromCache  bool
	FetchedAt  time.Time
}

// Stream is one playback link extracted from a detail page.
type Stream struct {
	Server string `json:"server"`
	URL    string `json:"url"`
}

// StopReason names why pagination terminated. Each stop condition is reported
// independently so diagnostics stay unambiguous.
type StopReason string

// Pagination stop reasons.
const (
	StopNone           StopReason = ""
	StopEmptyPage      StopReason = "empty_page"
	StopMaxPages       StopReason = "max_pages"
	StopFilteredStreak StopReason = "filtered_streak"
	StopFetchError     StopReason = "fetch_error"
	StopCanceled       StopReason = "canceled"
)

// Diagnostics aggregates the non-fatal conditions observed during a scrape.
// Single-field parse issues are absorbed here rather than raised.
type Diagnostics struct {
	PagesFetched       int        `json:"pages_fetched"`
	ItemsParsed        int        `json:"items_parsed"`
	ParseFailures      int        `json:"parse_failures"`
	ValidationFailures int        `json:"validation_failures"`
	RatingClamps       int        `json:"rating_clamps"`
	Duplicates         int        `json:"duplicates"`
	FilteredOut        int        `json:"filtered_out"`
	StopReason         StopReason `json:"stop_reason,omitempty"`
}

// Merge folds page-level diagnostics into a running total.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.PagesFetched += other.PagesFetched
	d.ItemsParsed += other.ItemsParsed
	d.ParseFailures += other.ParseFailures
	d.ValidationFailures += other.ValidationFailures
	d.RatingClamps += other.RatingClamps
	d.Duplicates += other.Duplicates
	d.FilteredOut += other.FilteredOut
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
