package server

import (
	"net/http"

	"drifttapes/internal/browse"
	"drifttapes/internal/cache"
	"drifttapes/internal/catalog"
	"drifttapes/internal/search"
	"drifttapes/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	similarArtistCount = 3
	featuredAlbumCount = 8
	suggestionCount    = 3
)

// AlbumDetail is an album with its artist and derived runtime
type AlbumDetail struct {
	models.Album
	Artist          *models.Artist         `json:"artist"`
	PlayableTracks  []models.PlayableTrack `json:"playableTracks"`
	DurationSeconds int                    `json:"durationSeconds"`
	Runtime         string                 `json:"runtime"`
}

// ArtistDetail is an artist with their discography
type ArtistDetail struct {
	models.Artist
	Albums  []models.Album      `json:"albums"`
	Stats   catalog.ArtistStats `json:"stats"`
	Similar []models.Artist     `json:"similar"`
}

func (ms *StoreServer) handleGetArtists(w http.ResponseWriter, r *http.Request) {
	artists := ms.catalog.Current().Catalog.Artists()
	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"artists": artists,
		"total":   len(artists),
	})
}

func (ms *StoreServer) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	c := ms.catalog.Current().Catalog

	artist := c.ArtistBySlug(r.PathValue("slug"))
	if artist == nil {
		ms.respondWithError(w, r, http.StatusNotFound, "Artist not found", nil)
		return
	}

	ms.respondJSON(w, http.StatusOK, ArtistDetail{
		Artist:  *artist,
		Albums:  c.AlbumsByArtist(artist.ID),
		Stats:   c.ArtistStats(artist.ID),
		Similar: c.SimilarArtists(artist, similarArtistCount),
	})
}

func (ms *StoreServer) handleGetAlbums(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	c := ms.catalog.Current().Catalog

	var validationErrors []ValidationError

	year, verr := validateYear(query.Get("year"))
	if verr != nil {
		validationErrors = append(validationErrors, *verr)
	}
	sortKey, verr := validateSortKey(query.Get("sort"))
	if verr != nil {
		validationErrors = append(validationErrors, *verr)
	}
	if len(validationErrors) > 0 {
		ms.respondWithValidationError(w, r, validationErrors)
		return
	}

	filters := browse.Filters{
		ArtistID: sanitizeInput(query.Get("artist")),
		Genre:    sanitizeInput(query.Get("genre")),
		Tag:      sanitizeInput(query.Get("tag")),
		Year:     year,
	}
	// The artist filter accepts a slug as well as an id
	if artist := c.ArtistBySlug(filters.ArtistID); artist != nil {
		filters.ArtistID = artist.ID
	}

	albums := browse.FilterAndSort(c.Albums(), c.Artists(), filters, sortKey)

	ms.logger.WithFields(logrus.Fields{
		"filters": filters.ActiveCount(),
		"sort":    sortKey,
		"matches": len(albums),
	}).Debug("Browse albums")

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"albums":        albums,
		"total":         len(albums),
		"activeFilters": filters.ActiveCount(),
		"sort":          sortKey,
	})
}

func (ms *StoreServer) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	c := ms.catalog.Current().Catalog

	album := c.AlbumBySlug(r.PathValue("slug"))
	if album == nil {
		ms.respondWithError(w, r, http.StatusNotFound, "Album not found", nil)
		return
	}

	artist := c.ArtistByID(album.ArtistID)
	duration := catalog.AlbumDuration(album)

	ms.respondJSON(w, http.StatusOK, AlbumDetail{
		Album:           *album,
		Artist:          artist,
		PlayableTracks:  catalog.Materialize(album, artist),
		DurationSeconds: duration,
		Runtime:         catalog.FormatRuntime(duration),
	})
}

func (ms *StoreServer) handleGetFacets(w http.ResponseWriter, r *http.Request) {
	facets := ms.catalog.Current().Catalog.Facets()
	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"genres":   facets.Genres,
		"tags":     facets.Tags,
		"years":    facets.Years,
		"sortKeys": sortKeyNames(),
	})
}

func (ms *StoreServer) handleGetFeatured(w http.ResponseWriter, r *http.Request) {
	c := ms.catalog.Current().Catalog
	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"albums":  c.FeaturedAlbums(featuredAlbumCount),
		"artists": c.FeaturedArtists(),
	})
}

// handleSearch runs a catalog search, offering suggestions when nothing
// matched. Responses are cached per catalog version.
func (ms *StoreServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if verr := validateSearchQuery(query); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	snap := ms.catalog.Current()
	resp, hit := ms.searchCache.GetSearch(snap.Version, query)
	if !hit {
		resp = cache.SearchResponse{
			Results:     search.Search(snap.Index, query),
			Suggestions: []search.Suggestion{},
		}
		if len(resp.Results) == 0 {
			resp.Suggestions = search.Suggest(snap.Index, query, suggestionCount)
		}
		ms.searchCache.SetSearch(snap.Version, query, resp)
	}

	ms.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(resp.Results),
		"cached":  hit,
	}).Debug("Search")

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":       query,
		"results":     resp.Results,
		"suggestions": resp.Suggestions,
	})
}
