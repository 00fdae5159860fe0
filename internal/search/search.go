package search

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"drifttapes/internal/catalog"
	"drifttapes/pkg/models"
)

const (
	// MinQueryLength is the shortest query, in characters, that produces results
	MinQueryLength = 2
	// MaxResults caps the number of results returned
	MaxResults = 20

	primaryFieldBonus = 2
)

// ResultType distinguishes artist and album hits
type ResultType string

const (
	TypeArtist ResultType = "artist"
	TypeAlbum  ResultType = "album"
)

// Field tags recorded in Result.MatchedOn
const (
	FieldName     = "name"
	FieldGenre    = "genre"
	FieldSubgenre = "subgenre"
	FieldLocation = "location"
	FieldTitle    = "title"
	FieldArtist   = "artist"
	FieldMood     = "mood"
	FieldTag      = "tag"
	FieldYear     = "year"
	FieldTrack    = "track"
)

// Result is one ranked search hit
type Result struct {
	Type      ResultType      `json:"type"`
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	Subtitle  string          `json:"subtitle"`
	MatchedOn []string        `json:"matchedOn"`
	Gradient  models.Gradient `json:"gradient"`
}

// Score is the number of matched fields, plus a bonus when the match
// included the record's primary field (artist name or album title).
func (r *Result) Score() int {
	score := len(r.MatchedOn)
	for _, field := range r.MatchedOn {
		if field == FieldName || field == FieldTitle {
			score += primaryFieldBonus
			break
		}
	}
	return score
}

// Search returns the catalog records whose searchable fields contain the
// query, best first. Ties keep encounter order: artists before albums, then
// dataset order. Queries shorter than MinQueryLength return an empty list.
func Search(idx *catalog.Index, query string) []Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < MinQueryLength {
		return []Result{}
	}

	results := []Result{}
	seen := make(map[string]bool)

	for i := range idx.Artists {
		entry := &idx.Artists[i]
		var matched []string
		if strings.Contains(entry.Name, q) {
			matched = append(matched, FieldName)
		}
		if strings.Contains(entry.Genre, q) {
			matched = append(matched, FieldGenre)
		}
		if anyContains(entry.Subgenres, q) {
			matched = append(matched, FieldSubgenre)
		}
		if strings.Contains(entry.Origin, q) {
			matched = append(matched, FieldLocation)
		}

		key := "artist-" + entry.Artist.ID
		if len(matched) == 0 || seen[key] {
			continue
		}
		seen[key] = true

		artist := entry.Artist
		results = append(results, Result{
			Type:      TypeArtist,
			ID:        artist.ID,
			Slug:      artist.Slug,
			Title:     artist.Name,
			Subtitle:  fmt.Sprintf("%s • %s", artist.Origin, artist.Genre),
			MatchedOn: matched,
			Gradient:  artist.Gradient(),
		})
	}

	for i := range idx.Albums {
		entry := &idx.Albums[i]
		var matched []string
		if strings.Contains(entry.Title, q) {
			matched = append(matched, FieldTitle)
		}
		if strings.Contains(entry.ArtistName, q) {
			matched = append(matched, FieldArtist)
		}
		if strings.Contains(entry.Mood, q) {
			matched = append(matched, FieldMood)
		}
		if anyContains(entry.Tags, q) {
			matched = append(matched, FieldTag)
		}
		if entry.Year == q {
			matched = append(matched, FieldYear)
		}
		if anyContains(entry.Tracks, q) {
			matched = append(matched, FieldTrack)
		}

		key := "album-" + entry.Album.ID
		if len(matched) == 0 || seen[key] {
			continue
		}
		seen[key] = true

		album := entry.Album
		results = append(results, Result{
			Type:      TypeAlbum,
			ID:        album.ID,
			Slug:      album.Slug,
			Title:     album.Title,
			Subtitle:  fmt.Sprintf("%s • %d", album.ArtistName, album.Year),
			MatchedOn: matched,
			Gradient:  entry.Gradient(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results
}

func anyContains(values []string, q string) bool {
	for _, v := range values {
		if strings.Contains(v, q) {
			return true
		}
	}
	return false
}
