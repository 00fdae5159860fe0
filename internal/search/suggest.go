package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"drifttapes/internal/catalog"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// MinSuggestionScore is the lowest Jaro-Winkler similarity offered as a
// "did you mean" suggestion.
const MinSuggestionScore = 0.7

// Suggestion is a near-miss name for a query that found nothing
type Suggestion struct {
	Type  ResultType `json:"type"`
	Slug  string     `json:"slug"`
	Text  string     `json:"text"`
	Score float64    `json:"score"`
}

// Suggest ranks artist names and album titles by similarity to the query and
// returns up to n of them. It is independent of Search and never affects its
// results.
func Suggest(idx *catalog.Index, query string, n int) []Suggestion {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < MinQueryLength || n <= 0 {
		return []Suggestion{}
	}

	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false

	suggestions := []Suggestion{}
	consider := func(kind ResultType, slug, text, normalized string) {
		score := strutil.Similarity(q, normalized, metric)
		if score < MinSuggestionScore {
			return
		}
		suggestions = append(suggestions, Suggestion{Type: kind, Slug: slug, Text: text, Score: score})
	}

	for i := range idx.Artists {
		entry := &idx.Artists[i]
		consider(TypeArtist, entry.Artist.Slug, entry.Artist.Name, entry.Name)
	}
	for i := range idx.Albums {
		entry := &idx.Albums[i]
		consider(TypeAlbum, entry.Album.Slug, entry.Album.Title, entry.Title)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions
}
