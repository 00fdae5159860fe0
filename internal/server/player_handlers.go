package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"drifttapes/internal/catalog"
	"drifttapes/internal/player"
	"drifttapes/pkg/models"
)

// handleGetPlayerState returns the current player state
func (ms *StoreServer) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	ms.respondJSON(w, http.StatusOK, clientSession(r).Player.Snapshot())
}

// albumTracks resolves an album id into its playable tracks
func (ms *StoreServer) albumTracks(albumID string) ([]models.PlayableTrack, bool) {
	c := ms.catalog.Current().Catalog
	album := c.AlbumByID(albumID)
	if album == nil {
		return nil, false
	}
	return catalog.Materialize(album, c.ArtistByID(album.ArtistID)), true
}

// albumTrack resolves a single track of an album by its 1-based number
func (ms *StoreServer) albumTrack(albumID string, number int) (models.PlayableTrack, bool) {
	tracks, ok := ms.albumTracks(albumID)
	if !ok {
		return models.PlayableTrack{}, false
	}
	id := catalog.TrackID(albumID, number)
	for _, track := range tracks {
		if track.ID == id {
			return track, true
		}
	}
	return models.PlayableTrack{}, false
}

func (ms *StoreServer) handlePlayAlbum(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumID    string `json:"albumId"`
		StartIndex int    `json:"startIndex"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	if verr := validateAlbumID(req.AlbumID); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	tracks, ok := ms.albumTracks(req.AlbumID)
	if !ok {
		ms.respondWithError(w, r, http.StatusNotFound, "Album not found", nil)
		return
	}

	p := clientSession(r).Player
	p.PlayAlbum(tracks, req.StartIndex)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

func (ms *StoreServer) handlePlayTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumID      string `json:"albumId"`
		TrackNumber  int    `json:"trackNumber"`
		ReplaceQueue bool   `json:"replaceQueue"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	if verr := validateAlbumID(req.AlbumID); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	track, ok := ms.albumTrack(req.AlbumID, req.TrackNumber)
	if !ok {
		ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
		return
	}

	p := clientSession(r).Player
	p.PlayTrack(track, req.ReplaceQueue)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

func (ms *StoreServer) handleAddToQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumID     string `json:"albumId"`
		TrackNumber int    `json:"trackNumber"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	if verr := validateAlbumID(req.AlbumID); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	track, ok := ms.albumTrack(req.AlbumID, req.TrackNumber)
	if !ok {
		ms.respondWithError(w, r, http.StatusNotFound, "Track not found", nil)
		return
	}

	p := clientSession(r).Player
	p.AddToQueue(track)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

func (ms *StoreServer) handleRemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	index, verr := validateQueueIndex(r.PathValue("index"))
	if verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	p := clientSession(r).Player
	p.RemoveFromQueue(index)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

func (ms *StoreServer) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	p := clientSession(r).Player
	p.ClearQueue()
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

func (ms *StoreServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time *float64 `json:"time"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	if req.Time == nil {
		ms.respondWithValidationError(w, r, []ValidationError{{
			Field:   "time",
			Message: "Seek time is required",
			Code:    "MISSING_TIME",
		}})
		return
	}
	if *req.Time < 0 {
		ms.respondWithValidationError(w, r, []ValidationError{{
			Field:   "time",
			Message: "Seek time cannot be negative",
			Code:    "INVALID_TIME",
		}})
		return
	}

	p := clientSession(r).Player
	p.Seek(*req.Time)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

func (ms *StoreServer) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	if req.Volume == nil {
		ms.respondWithValidationError(w, r, []ValidationError{{
			Field:   "volume",
			Message: "Volume is required",
			Code:    "MISSING_VOLUME",
		}})
		return
	}
	if verr := validateVolume(*req.Volume); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	p := clientSession(r).Player
	p.SetVolume(*req.Volume)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

// playerActions maps the body-less transport endpoints to player methods
var playerActions = map[string]func(*player.Player){
	"play":     (*player.Player).Play,
	"pause":    (*player.Player).Pause,
	"toggle":   (*player.Player).Toggle,
	"next":     (*player.Player).PlayNext,
	"previous": (*player.Player).PlayPrevious,
	"show":     (*player.Player).ShowPlayer,
	"hide":     (*player.Player).HidePlayer,
	"expand":   (*player.Player).ToggleExpand,
	"mute":     (*player.Player).ToggleMute,
}

func (ms *StoreServer) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	apply, ok := playerActions[action]
	if !ok {
		ms.respondWithError(w, r, http.StatusNotFound, fmt.Sprintf("Unknown player action: %s", action), nil)
		return
	}

	p := clientSession(r).Player
	apply(p)
	ms.respondJSON(w, http.StatusOK, p.Snapshot())
}

// handlePlayerEvents streams player state changes as server-sent events
// until the client disconnects or the player is closed.
func (ms *StoreServer) handlePlayerEvents(w http.ResponseWriter, r *http.Request) {
	flusher, err := setupSSE(w)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Streaming unsupported", err)
		return
	}

	s := clientSession(r)
	updates := s.Player.Subscribe()
	defer s.Player.Unsubscribe(updates)

	ms.logger.WithField("session_id", s.ID).Debug("Player event stream opened")

	ms.sendEvent(w, flusher, s.Player.Snapshot())
	for {
		select {
		case <-r.Context().Done():
			ms.logger.WithField("session_id", s.ID).Debug("Player event stream closed by client")
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			ms.sendEvent(w, flusher, state)
		}
	}
}

func setupSSE(w http.ResponseWriter) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return flusher, nil
}

func (ms *StoreServer) sendEvent(w http.ResponseWriter, flusher http.Flusher, state player.State) {
	b, err := json.Marshal(state)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to encode player event")
		return
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		ms.logger.WithError(err).Debug("Player event write failed")
		return
	}
	flusher.Flush()
}
