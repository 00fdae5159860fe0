package catalog

import (
	"strconv"
	"strings"

	"drifttapes/pkg/models"
)

// Fallback artwork colors for an album whose artist cannot be resolved
const (
	FallbackPrimary   = "#9333EA"
	FallbackSecondary = "#06B6D4"
)

// ArtistEntry is the lower-cased searchable projection of an artist
type ArtistEntry struct {
	Artist    *models.Artist
	Name      string
	Genre     string
	Subgenres []string
	Origin    string
	Bio       string
}

// AlbumEntry is the lower-cased searchable projection of an album, joined to
// its artist. Artist is nil when the album's artistId does not resolve.
type AlbumEntry struct {
	Album       *models.Album
	Artist      *models.Artist
	Title       string
	ArtistName  string
	Mood        string
	Tags        []string
	Description string
	Year        string
	Tracks      []string
}

// Gradient returns the owning artist's colors, or the fallback pair
func (e *AlbumEntry) Gradient() models.Gradient {
	if e.Artist == nil {
		return models.Gradient{Primary: FallbackPrimary, Secondary: FallbackSecondary}
	}
	return e.Artist.Gradient()
}

// Index is the precomputed search structure. It is read-only once built.
type Index struct {
	Artists []ArtistEntry
	Albums  []AlbumEntry
}

// BuildIndex projects every searchable field of artists and albums. It never
// fails: an album referencing a missing artist gets a nil Artist.
func BuildIndex(artists []models.Artist, albums []models.Album) *Index {
	byID := make(map[string]*models.Artist, len(artists))
	idx := &Index{
		Artists: make([]ArtistEntry, 0, len(artists)),
		Albums:  make([]AlbumEntry, 0, len(albums)),
	}

	for i := range artists {
		artist := &artists[i]
		byID[artist.ID] = artist
		idx.Artists = append(idx.Artists, ArtistEntry{
			Artist:    artist,
			Name:      strings.ToLower(artist.Name),
			Genre:     strings.ToLower(artist.Genre),
			Subgenres: lowerAll(artist.Subgenres),
			Origin:    strings.ToLower(artist.Origin),
			Bio:       strings.ToLower(artist.ShortBio),
		})
	}

	for i := range albums {
		album := &albums[i]
		trackTitles := make([]string, len(album.Tracks))
		for j, track := range album.Tracks {
			trackTitles[j] = strings.ToLower(track.Title)
		}
		idx.Albums = append(idx.Albums, AlbumEntry{
			Album:       album,
			Artist:      byID[album.ArtistID],
			Title:       strings.ToLower(album.Title),
			ArtistName:  strings.ToLower(album.ArtistName),
			Mood:        strings.ToLower(album.Mood),
			Tags:        lowerAll(album.Tags),
			Description: strings.ToLower(album.Description),
			Year:        strconv.Itoa(album.Year),
			Tracks:      trackTitles,
		})
	}

	return idx
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
