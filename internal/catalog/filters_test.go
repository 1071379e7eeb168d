package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func item(mut func(*ContentItem)) ContentItem {
	it := ContentItem{
		ID:        "inception",
		Kind:      KindMovie,
		Title:     "Inception",
		Year:      intPtr(2010),
		Genres:    []string{"action", "science-fiction"},
		Rating:    floatPtr(8.8),
		SourceURL: "https://cuevana.pro/pelicula/inception",
	}
	if mut != nil {
		mut(&it)
	}
	return it
}

func TestFiltersMatches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		filters Filters
		item    ContentItem
		want    bool
	}{
		{name: "empty filter matches everything", filters: Filters{}, item: item(nil), want: true},
		{name: "genre case-insensitive", filters: Filters{Genre: "Action"}, item: item(nil), want: true},
		{name: "genre not present", filters: Filters{Genre: "comedy"}, item: item(nil), want: false},
		{name: "year bounds inclusive", filters: Filters{YearFrom: intPtr(2010), YearTo: intPtr(2010)}, item: item(nil), want: true},
		{name: "year below lower bound", filters: Filters{YearFrom: intPtr(2020)}, item: item(func(i *ContentItem) { i.Year = intPtr(2019); i.Rating = floatPtr(6.5) }), want: false},
		{name: "year above upper bound", filters: Filters{YearTo: intPtr(2005)}, item: item(nil), want: false},
		{name: "min rating inclusive", filters: Filters{MinRating: floatPtr(8.8)}, item: item(nil), want: true},
		{name: "rating below minimum", filters: Filters{MinRating: floatPtr(9.0)}, item: item(nil), want: false},
		{name: "nil year fails year filter", filters: Filters{YearFrom: intPtr(2000)}, item: item(func(i *ContentItem) { i.Year = nil }), want: false},
		{name: "nil rating fails rating filter", filters: Filters{MinRating: floatPtr(1.0)}, item: item(func(i *ContentItem) { i.Rating = nil }), want: false},
		{name: "nil year passes when unconstrained", filters: Filters{Genre: "action"}, item: item(func(i *ContentItem) { i.Year = nil }), want: true},
		{
			name:    "all predicates AND together",
			filters: Filters{Genre: "action", YearFrom: intPtr(2005), YearTo: intPtr(2015), MinRating: floatPtr(8.0)},
			item:    item(nil),
			want:    true,
		},
		{
			name:    "one failing predicate excludes",
			filters: Filters{Genre: "action", MinRating: floatPtr(9.5)},
			item:    item(nil),
			want:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, tc.filters.Matches(tc.item))
		})
	}
}

func TestFiltersIsZero(t *testing.T) {
	t.Parallel()

	require.True(t, Filters{}.IsZero())
	require.False(t, Filters{Genre: "drama"}.IsZero())
	require.False(t, Filters{MinRating: floatPtr(5)}.IsZero())
}

func TestCardPopulatedAndComplete(t *testing.T) {
	t.Parallel()

	empty := Card{}
	require.Equal(t, 0, empty.Populated())
	require.False(t, empty.Complete())

	full := Card{
		Title:     Text("Inception"),
		SourceURL: Text("https://cuevana.pro/pelicula/inception"),
		Year:      IntField{State: FieldPresent, Value: 2010},
		Rating:    FloatField{State: FieldPresent, Value: 8.8},
		Genres:    []string{"action"},
	}
	require.Equal(t, 5, full.Populated())
	require.True(t, full.Complete())

	// Malformed fields do not count toward completeness.
	partial := Card{
		Title:     Text("Inception"),
		SourceURL: Text("https://cuevana.pro/pelicula/inception"),
		Year:      IntField{State: FieldMalformed},
	}
	require.Equal(t, 2, partial.Populated())
	require.True(t, partial.Complete())
}
