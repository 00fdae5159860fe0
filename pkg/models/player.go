package models

// PlayableTrack is a catalog track materialized for playback. ID is
// "<albumId>-<trackNumber>" and is unique across the catalog.
type PlayableTrack struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	ArtistName    string   `json:"artistName"`
	AlbumTitle    string   `json:"albumTitle"`
	AlbumSlug     string   `json:"albumSlug"`
	Duration      string   `json:"duration"`
	AudioURL      string   `json:"audioUrl,omitempty"`
	CoverGradient Gradient `json:"coverGradient"`
}

// QueuedTrack is a PlayableTrack at a position in the play queue
type QueuedTrack struct {
	PlayableTrack
	QueueIndex int `json:"queueIndex"`
}
