package catalog

// FieldState tags the extraction outcome of a single card field. Keeping the
// outcome explicit lets normalization be exhaustive over known fields instead
// of guessing from zero values.
type FieldState int

// Field extraction outcomes.
const (
	FieldAbsent FieldState = iota
	FieldPresent
	FieldMalformed
)

// TextField is an optional string extracted from a content card.
type TextField struct {
	State FieldState
	Value string
}

// IntField is an optional integer extracted from a content card.
type IntField struct {
	State FieldState
	Value int
}

// FloatField is an optional float extracted from a content card.
type FloatField struct {
	State FieldState
	Value float64
}

// Text builds a present TextField.
func Text(v string) TextField { return TextField{State: FieldPresent, Value: v} }

// Card is the intermediate per-item extraction result for one content card,
// before typed normalization. Title and SourceURL are the only mandatory
// fields; everything else degrades independently.
type Card struct {
	Title       TextField
	SourceURL   TextField
	Year        IntField
	Rating      FloatField
	Description TextField
	Poster      TextField
	Runtime     TextField
	Genres      []string
	// RatingClamped is set when an out-of-range rating was clamped to [0,10].
	RatingClamped bool
}

// Populated counts the fields successfully extracted. Used by the batch
// deduplication policy, which keeps the more complete card.
func (c Card) Populated() int {
	n := 0
	for _, f := range []TextField{c.Title, c.SourceURL, c.Description, c.Poster, c.Runtime} {
		if f.State == FieldPresent {
			n++
		}
	}
	if c.Year.State == FieldPresent {
		n++
	}
	if c.Rating.State == FieldPresent {
		n++
	}
	if len(c.Genres) > 0 {
		n++
	}
	return n
}

// Complete reports whether the card carries both mandatory fields.
func (c Card) Complete() bool {
	return c.Title.State == FieldPresent && c.SourceURL.State == FieldPresent
}
