package parse

import "strings"

// genreSynonyms maps folded (lowercased, accent-stripped) source labels to
// the canonical vocabulary. Cuevana labels its genres in Spanish.
var genreSynonyms = map[string]string{
	"accion":          "action",
	"aventura":        "adventure",
	"animacion":       "animation",
	"belica":          "war",
	"ciencia ficcion": "science-fiction",
	"cine negro":      "film-noir",
	"comedia":         "comedy",
	"crimen":          "crime",
	"documental":      "documentary",
	"familia":         "family",
	"fantasia":        "fantasy",
	"guerra":          "war",
	"historia":        "history",
	"infantil":        "family",
	"misterio":        "mystery",
	"musica":          "music",
	"pelicula de tv":  "tv-movie",
	"sci-fi":          "science-fiction",
	"suspense":        "thriller",
	"suspenso":        "thriller",
	"terror":          "horror",
}

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// NormalizeGenre maps a free-text genre label to the canonical lowercase
// vocabulary. Unknown labels pass through unchanged, lowercased.
func NormalizeGenre(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}
	folded := accentFolder.Replace(lowered)
	if canonical, ok := genreSynonyms[folded]; ok {
		return canonical
	}
	return lowered
}

// NormalizeGenres maps every label and drops empties and duplicates while
// preserving first-seen order.
func NormalizeGenres(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		g := NormalizeGenre(r)
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
