package models

// CartItemType discriminates what a cart item refers to
type CartItemType string

const (
	CartItemAlbum CartItemType = "album"
	CartItemTrack CartItemType = "track"
)

// CartItem is a purchasable reference held in a cart. ID mirrors the album ID.
type CartItem struct {
	ID            string       `json:"id"`
	Type          CartItemType `json:"type"`
	Title         string       `json:"title"`
	ArtistName    string       `json:"artistName"`
	ArtistSlug    string       `json:"artistSlug"`
	AlbumSlug     string       `json:"albumSlug"`
	Price         float64      `json:"price"`
	CoverGradient Gradient     `json:"coverGradient"`
}
