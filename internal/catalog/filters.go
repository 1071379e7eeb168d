package catalog

import "strings"

// Filters is an immutable predicate set evaluated against normalized items.
// Every field is independently optional; present fields combine as a logical
// AND. The zero value matches everything.
type Filters struct {
	Genre     string
	YearFrom  *int
	YearTo    *int
	MinRating *float64
}

// IsZero reports whether no predicate is set.
func (f Filters) IsZero() bool {
	return f.Genre == "" && f.YearFrom == nil && f.YearTo == nil && f.MinRating == nil
}

// Matches evaluates the filter against item. It is pure and total: an item
// missing a constrained field is excluded rather than erroring.
func (f Filters) Matches(item ContentItem) bool {
	if f.Genre != "" && !hasGenre(item.Genres, f.Genre) {
		return false
	}
	if f.YearFrom != nil {
		if item.Year == nil || *item.Year < *f.YearFrom {
			return false
		}
	}
	if f.YearTo != nil {
		if item.Year == nil || *item.Year > *f.YearTo {
			return false
		}
	}
	if f.MinRating != nil {
		if item.Rating == nil || *item.Rating < *f.MinRating {
			return false
		}
	}
	return true
}

func hasGenre(genres []string, want string) bool {
	for _, g := range genres {
		if strings.EqualFold(g, want) {
			return true
		}
	}
	return false
}
