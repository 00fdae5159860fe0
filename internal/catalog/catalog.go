package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"drifttapes/pkg/models"
)

const (
	ArtistsFile = "artists.json"
	AlbumsFile  = "albums.json"
)

// ErrIntegrity is returned when catalog data violates a load-time precondition
// (dangling artist reference, duplicate id or slug, broken track numbering).
var ErrIntegrity = errors.New("catalog integrity violation")

// Catalog is the immutable artist/album dataset with id and slug lookups.
// It is safe for concurrent reads.
type Catalog struct {
	artists []models.Artist
	albums  []models.Album

	artistsByID   map[string]*models.Artist
	artistsBySlug map[string]*models.Artist
	albumsByID    map[string]*models.Album
	albumsBySlug  map[string]*models.Album
}

type artistsDocument struct {
	Artists []models.Artist `json:"artists"`
}

type albumsDocument struct {
	Albums []models.Album `json:"albums"`
}

// Load reads artists.json and albums.json from dir and validates them
func Load(dir string) (*Catalog, error) {
	var artistsDoc artistsDocument
	if err := readJSON(filepath.Join(dir, ArtistsFile), &artistsDoc); err != nil {
		return nil, err
	}

	var albumsDoc albumsDocument
	if err := readJSON(filepath.Join(dir, AlbumsFile), &albumsDoc); err != nil {
		return nil, err
	}

	return New(artistsDoc.Artists, albumsDoc.Albums)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// New builds a catalog from already decoded collections. Dataset order is
// preserved; it is the tie-break order for search and sorting.
func New(artists []models.Artist, albums []models.Album) (*Catalog, error) {
	c := &Catalog{
		artists:       artists,
		albums:        albums,
		artistsByID:   make(map[string]*models.Artist, len(artists)),
		artistsBySlug: make(map[string]*models.Artist, len(artists)),
		albumsByID:    make(map[string]*models.Album, len(albums)),
		albumsBySlug:  make(map[string]*models.Album, len(albums)),
	}

	for i := range c.artists {
		artist := &c.artists[i]
		if artist.ID == "" || artist.Slug == "" {
			return nil, fmt.Errorf("%w: artist at position %d is missing id or slug", ErrIntegrity, i)
		}
		if _, exists := c.artistsByID[artist.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate artist id %q", ErrIntegrity, artist.ID)
		}
		if _, exists := c.artistsBySlug[artist.Slug]; exists {
			return nil, fmt.Errorf("%w: duplicate artist slug %q", ErrIntegrity, artist.Slug)
		}
		c.artistsByID[artist.ID] = artist
		c.artistsBySlug[artist.Slug] = artist
	}

	for i := range c.albums {
		album := &c.albums[i]
		if album.ID == "" || album.Slug == "" {
			return nil, fmt.Errorf("%w: album at position %d is missing id or slug", ErrIntegrity, i)
		}
		if _, exists := c.albumsByID[album.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate album id %q", ErrIntegrity, album.ID)
		}
		if _, exists := c.albumsBySlug[album.Slug]; exists {
			return nil, fmt.Errorf("%w: duplicate album slug %q", ErrIntegrity, album.Slug)
		}
		if _, exists := c.artistsByID[album.ArtistID]; !exists {
			return nil, fmt.Errorf("%w: album %q references unknown artist %q", ErrIntegrity, album.ID, album.ArtistID)
		}
		if album.Price < 0 {
			return nil, fmt.Errorf("%w: album %q has negative price", ErrIntegrity, album.ID)
		}
		for j, track := range album.Tracks {
			if track.Number != j+1 {
				return nil, fmt.Errorf("%w: album %q track %d has number %d", ErrIntegrity, album.ID, j+1, track.Number)
			}
		}
		c.albumsByID[album.ID] = album
		c.albumsBySlug[album.Slug] = album
	}

	return c, nil
}

// Artists returns all artists in dataset order. The slice must not be modified.
func (c *Catalog) Artists() []models.Artist {
	return c.artists
}

// Albums returns all albums in dataset order. The slice must not be modified.
func (c *Catalog) Albums() []models.Album {
	return c.albums
}

// ArtistByID returns the artist with the given id, or nil
func (c *Catalog) ArtistByID(id string) *models.Artist {
	return c.artistsByID[id]
}

// ArtistBySlug returns the artist with the given slug, or nil
func (c *Catalog) ArtistBySlug(slug string) *models.Artist {
	return c.artistsBySlug[slug]
}

// AlbumByID returns the album with the given id, or nil
func (c *Catalog) AlbumByID(id string) *models.Album {
	return c.albumsByID[id]
}

// AlbumBySlug returns the album with the given slug, or nil
func (c *Catalog) AlbumBySlug(slug string) *models.Album {
	return c.albumsBySlug[slug]
}

// AlbumsByArtist returns the artist's albums in dataset order
func (c *Catalog) AlbumsByArtist(artistID string) []models.Album {
	albums := []models.Album{}
	for _, album := range c.albums {
		if album.ArtistID == artistID {
			albums = append(albums, album)
		}
	}
	return albums
}
