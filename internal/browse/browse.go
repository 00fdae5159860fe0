package browse

import (
	"errors"
	"fmt"
	"sort"

	"drifttapes/pkg/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ErrUnknownSortKey is returned by ParseSortKey for unrecognized keys
var ErrUnknownSortKey = errors.New("unknown sort key")

// SortKey selects the ordering of a browse listing
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortTitleAZ   SortKey = "title-az"
	SortTitleZA   SortKey = "title-za"

	DefaultSort = SortNewest
)

// SortKeys lists every supported key in display order
var SortKeys = []SortKey{SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortTitleAZ, SortTitleZA}

// ParseSortKey validates a sort key. An empty string selects DefaultSort.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return DefaultSort, nil
	}
	for _, key := range SortKeys {
		if string(key) == s {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// Filters are the optional browse constraints. Zero values mean "not set";
// set filters combine with logical AND.
type Filters struct {
	ArtistID string
	Genre    string // matched against the album's artist genre
	Tag      string
	Year     int
}

// ActiveCount returns how many filters are set, so callers can tell "no
// filters applied" apart from "filters applied, nothing matched".
func (f Filters) ActiveCount() int {
	count := 0
	if f.ArtistID != "" {
		count++
	}
	if f.Genre != "" {
		count++
	}
	if f.Tag != "" {
		count++
	}
	if f.Year != 0 {
		count++
	}
	return count
}

// FilterAndSort returns the albums matching every set filter, ordered by key.
// Sorting is stable: albums with equal keys keep dataset order. The input
// slice is not modified.
func FilterAndSort(albums []models.Album, artists []models.Artist, filters Filters, key SortKey) []models.Album {
	var genreArtists map[string]bool
	if filters.Genre != "" {
		genreArtists = make(map[string]bool)
		for _, artist := range artists {
			if artist.Genre == filters.Genre {
				genreArtists[artist.ID] = true
			}
		}
	}

	result := []models.Album{}
	for _, album := range albums {
		if filters.ArtistID != "" && album.ArtistID != filters.ArtistID {
			continue
		}
		if genreArtists != nil && !genreArtists[album.ArtistID] {
			continue
		}
		if filters.Tag != "" && !album.HasTag(filters.Tag) {
			continue
		}
		if filters.Year != 0 && album.Year != filters.Year {
			continue
		}
		result = append(result, album)
	}

	sortAlbums(result, key)
	return result
}

func sortAlbums(albums []models.Album, key SortKey) {
	var less func(a, b *models.Album) bool

	switch key {
	case SortOldest:
		less = func(a, b *models.Album) bool { return a.Year < b.Year }
	case SortPriceLow:
		less = func(a, b *models.Album) bool { return a.Price < b.Price }
	case SortPriceHigh:
		less = func(a, b *models.Album) bool { return a.Price > b.Price }
	case SortTitleAZ, SortTitleZA:
		// Collators keep internal buffers, so each sort gets its own
		col := collate.New(language.English)
		sign := 1
		if key == SortTitleZA {
			sign = -1
		}
		less = func(a, b *models.Album) bool {
			return sign*col.CompareString(a.Title, b.Title) < 0
		}
	default:
		less = func(a, b *models.Album) bool { return a.Year > b.Year }
	}

	sort.SliceStable(albums, func(i, j int) bool {
		return less(&albums[i], &albums[j])
	})
}
