// Package normalize converts parsed content cards into typed catalog records.
package normalize

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charliechaser/cuevana-scraper/internal/catalog"
)

// Normalize converts a card into a ContentItem. Rejections are reported as
// errors but are expected to be counted by the caller, never to abort a batch.
func Normalize(card catalog.Card, kind catalog.Kind, fetchedAt time.Time) (catalog.ContentItem, error) {
	if card.SourceURL.State != catalog.FieldPresent {
		return catalog.ContentItem{}, fmt.Errorf("card has no source url")
	}
	title := strings.TrimSpace(card.Title.Value)
	if card.Title.State != catalog.FieldPresent || title == "" {
		return catalog.ContentItem{}, fmt.Errorf("card has empty title")
	}

	id, err := DeriveID(card.SourceURL.Value)
	if err != nil {
		return catalog.ContentItem{}, fmt.Errorf("derive id: %w", err)
	}

	item := catalog.ContentItem{
		ID:        id,
		Kind:      kind,
		Title:     title,
		Genres:    card.Genres,
		SourceURL: card.SourceURL.Value,
		FetchedAt: fetchedAt,
	}
	if card.Year.State == catalog.FieldPresent {
		year := card.Year.Value
		item.Year = &year
	}
	if card.Rating.State == catalog.FieldPresent {
		rating := card.Rating.Value
		item.Rating = &rating
	}
	if card.Description.State == catalog.FieldPresent {
		item.Description = strings.TrimSpace(card.Description.Value)
	}
	if card.Poster.State == catalog.FieldPresent {
		item.Poster = card.Poster.Value
	}
	if card.Runtime.State == catalog.FieldPresent {
		item.Runtime = strings.TrimSpace(card.Runtime.Value)
	}
	return item, nil
}

// Batch normalizes a page worth of cards, deduplicating by derived ID. When
// two cards share an ID the one with more populated fields wins; ties keep
// the first encountered, preserving input order.
func Batch(cards []catalog.Card, kind catalog.Kind, fetchedAt time.Time) ([]catalog.ContentItem, catalog.Diagnostics) {
	var diag catalog.Diagnostics

	type entry struct {
		item      catalog.ContentItem
		populated int
	}
	index := make(map[string]int, len(cards))
	order := make([]entry, 0, len(cards))

	for _, card := range cards {
		if card.RatingClamped {
			diag.RatingClamps++
		}
		item, err := Normalize(card, kind, fetchedAt)
		if err != nil {
			diag.ValidationFailures++
			continue
		}
		populated := card.Populated()
		if at, dup := index[item.ID]; dup {
			diag.Duplicates++
			if populated > order[at].populated {
				order[at] = entry{item: item, populated: populated}
			}
			continue
		}
		index[item.ID] = len(order)
		order = append(order, entry{item: item, populated: populated})
	}

	items := make([]catalog.ContentItem, 0, len(order))
	for _, e := range order {
		items = append(items, e.item)
	}
	diag.ItemsParsed = len(items)
	return items, diag
}

// DeriveID builds the stable item ID from the last path segment of the
// source URL, stripped of query parameters and lowercased.
func DeriveID(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", err
	}
	segment := path.Base(strings.TrimRight(u.Path, "/"))
	if segment == "." || segment == "/" || segment == "" {
		return "", fmt.Errorf("url %q has no path segment", sourceURL)
	}
	return strings.ToLower(segment), nil
}
