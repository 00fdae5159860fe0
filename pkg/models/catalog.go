package models

// Gradient is the pair of colors used to render artist and album artwork
type Gradient struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Artist represents a catalog artist
type Artist struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Name           string   `json:"name"`
	Genre          string   `json:"genre"`
	Subgenres      []string `json:"subgenres"`
	Origin         string   `json:"origin"`
	Founded        int      `json:"founded"`
	ShortBio       string   `json:"shortBio"`
	Bio            string   `json:"bio,omitempty"`
	Equipment      []string `json:"equipment,omitempty"`
	Influences     []string `json:"influences,omitempty"`
	AccentColor    string   `json:"accentColor"`
	SecondaryColor string   `json:"secondaryColor"`
	Featured       bool     `json:"featured,omitempty"`
	Website        string   `json:"website,omitempty"`
	SocialHandle   string   `json:"socialHandle,omitempty"`
}

// Gradient returns the artist's artwork colors
func (a *Artist) Gradient() Gradient {
	return Gradient{Primary: a.AccentColor, Secondary: a.SecondaryColor}
}

// Album represents a purchasable release by exactly one artist
type Album struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	ArtistID    string   `json:"artistId"`
	ArtistName  string   `json:"artistName"` // denormalized for display
	Year        int      `json:"year"`
	Mood        string   `json:"mood"`
	Tags        []string `json:"tags"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Tracks      []Track  `json:"tracks"`
}

// HasTag reports whether tag is one of the album's tags (exact match)
func (a *Album) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Track is a track embedded in an album. Number is 1-based and unique within
// the album.
type Track struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Duration string `json:"duration"` // "m:ss"
}
