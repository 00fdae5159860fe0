package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"drifttapes/pkg/models"
)

// Facets lists the distinct values the browse filters can take
type Facets struct {
	Genres []string `json:"genres"` // first-seen artist order
	Tags   []string `json:"tags"`   // first-seen album order
	Years  []int    `json:"years"`  // newest first
}

// Facets computes the distinct filter values over the catalog
func (c *Catalog) Facets() Facets {
	f := Facets{
		Genres: []string{},
		Tags:   []string{},
		Years:  []int{},
	}

	seenGenre := make(map[string]bool)
	for _, artist := range c.artists {
		if !seenGenre[artist.Genre] {
			seenGenre[artist.Genre] = true
			f.Genres = append(f.Genres, artist.Genre)
		}
	}

	seenTag := make(map[string]bool)
	seenYear := make(map[int]bool)
	for _, album := range c.albums {
		for _, tag := range album.Tags {
			if !seenTag[tag] {
				seenTag[tag] = true
				f.Tags = append(f.Tags, tag)
			}
		}
		if !seenYear[album.Year] {
			seenYear[album.Year] = true
			f.Years = append(f.Years, album.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))

	return f
}

// FeaturedAlbums returns up to n albums, newest first; albums from the same
// year keep dataset order.
func (c *Catalog) FeaturedAlbums(n int) []models.Album {
	albums := make([]models.Album, len(c.albums))
	copy(albums, c.albums)
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].Year > albums[j].Year
	})
	if n >= 0 && n < len(albums) {
		albums = albums[:n]
	}
	return albums
}

// FeaturedArtists returns the artists flagged as featured
func (c *Catalog) FeaturedArtists() []models.Artist {
	artists := []models.Artist{}
	for _, artist := range c.artists {
		if artist.Featured {
			artists = append(artists, artist)
		}
	}
	return artists
}

// SimilarArtists picks up to n other artists: same genre first, then artists
// sharing a subgenre, then whoever is left, each group in dataset order.
func (c *Catalog) SimilarArtists(artist *models.Artist, n int) []models.Artist {
	similar := []models.Artist{}
	picked := map[string]bool{artist.ID: true}

	take := func(match func(a *models.Artist) bool) {
		for i := range c.artists {
			if len(similar) >= n {
				return
			}
			candidate := &c.artists[i]
			if picked[candidate.ID] || !match(candidate) {
				continue
			}
			picked[candidate.ID] = true
			similar = append(similar, *candidate)
		}
	}

	take(func(a *models.Artist) bool { return a.Genre == artist.Genre })
	take(func(a *models.Artist) bool { return sharesSubgenre(a, artist) })
	take(func(a *models.Artist) bool { return true })

	return similar
}

func sharesSubgenre(a, b *models.Artist) bool {
	for _, x := range a.Subgenres {
		for _, y := range b.Subgenres {
			if x == y {
				return true
			}
		}
	}
	return false
}

// ArtistStats summarizes an artist's discography
type ArtistStats struct {
	AlbumCount     int    `json:"albumCount"`
	TrackCount     int    `json:"trackCount"`
	RuntimeSeconds int    `json:"runtimeSeconds"`
	Runtime        string `json:"runtime"`
}

// ArtistStats computes album/track counts and total runtime for an artist
func (c *Catalog) ArtistStats(artistID string) ArtistStats {
	var stats ArtistStats
	for _, album := range c.albums {
		if album.ArtistID != artistID {
			continue
		}
		stats.AlbumCount++
		stats.TrackCount += len(album.Tracks)
		stats.RuntimeSeconds += AlbumDuration(&album)
	}
	stats.Runtime = FormatRuntime(stats.RuntimeSeconds)
	return stats
}

// AlbumDuration returns the summed track durations of an album in seconds
func AlbumDuration(album *models.Album) int {
	total := 0
	for _, track := range album.Tracks {
		total += ParseDuration(track.Duration)
	}
	return total
}

// ParseDuration converts "m:ss" into seconds. Anything else yields 0.
func ParseDuration(duration string) int {
	parts := strings.Split(duration, ":")
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return minutes*60 + seconds
}

// FormatRuntime renders seconds as "1h 5m" or "42 min"
func FormatRuntime(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}

// TrackID builds the globally unique playable id for an album track
func TrackID(albumID string, number int) string {
	return fmt.Sprintf("%s-%d", albumID, number)
}

// Materialize converts an album's tracks into playable tracks. artist may be
// nil, in which case the fallback gradient is used.
func Materialize(album *models.Album, artist *models.Artist) []models.PlayableTrack {
	gradient := models.Gradient{Primary: FallbackPrimary, Secondary: FallbackSecondary}
	if artist != nil {
		gradient = artist.Gradient()
	}

	tracks := make([]models.PlayableTrack, len(album.Tracks))
	for i, track := range album.Tracks {
		tracks[i] = models.PlayableTrack{
			ID:            TrackID(album.ID, track.Number),
			Title:         track.Title,
			ArtistName:    album.ArtistName,
			AlbumTitle:    album.Title,
			AlbumSlug:     album.Slug,
			Duration:      track.Duration,
			CoverGradient: gradient,
		}
	}
	return tracks
}

// NewCartItem builds the cart entry for purchasing a whole album
func NewCartItem(album *models.Album, artist *models.Artist) models.CartItem {
	item := models.CartItem{
		ID:            album.ID,
		Type:          models.CartItemAlbum,
		Title:         album.Title,
		ArtistName:    album.ArtistName,
		AlbumSlug:     album.Slug,
		Price:         album.Price,
		CoverGradient: models.Gradient{Primary: FallbackPrimary, Secondary: FallbackSecondary},
	}
	if artist != nil {
		item.ArtistSlug = artist.Slug
		item.CoverGradient = artist.Gradient()
	}
	return item
}
