package server

import (
	"errors"
	"net/http"

	"drifttapes/internal/cart"
	"drifttapes/internal/catalog"
	"drifttapes/pkg/models"

	"github.com/sirupsen/logrus"
)

// CartResponse is the cart as returned to clients
type CartResponse struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Total     float64           `json:"total"`
}

func cartResponse(store *cart.Store) CartResponse {
	snap := store.Snapshot()
	return CartResponse{
		Items:     snap.Items,
		ItemCount: snap.ItemCount,
		Total:     snap.Total,
	}
}

func (ms *StoreServer) handleGetCart(w http.ResponseWriter, r *http.Request) {
	ms.respondJSON(w, http.StatusOK, cartResponse(clientSession(r).Cart))
}

// handleAddCartItem adds an album to the caller's cart. A repeat add is not
// an error; it answers 200 with alreadyInCart set instead of 201.
func (ms *StoreServer) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumID string `json:"albumId"`
	}
	if verr := decodeJSONBody(w, r, &req); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}
	req.AlbumID = sanitizeInput(req.AlbumID)
	if verr := validateAlbumID(req.AlbumID); verr != nil {
		ms.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	c := ms.catalog.Current().Catalog
	album := c.AlbumByID(req.AlbumID)
	if album == nil {
		ms.respondWithError(w, r, http.StatusNotFound, "Album not found", nil)
		return
	}

	store := clientSession(r).Cart
	result := store.AddItem(catalog.NewCartItem(album, c.ArtistByID(album.ArtistID)))

	status := http.StatusCreated
	if result == cart.AlreadyInCart {
		status = http.StatusOK
	}

	ms.respondJSON(w, status, map[string]interface{}{
		"success":       true,
		"alreadyInCart": result == cart.AlreadyInCart,
		"cart":          cartResponse(store),
	})
}

func (ms *StoreServer) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	store := clientSession(r).Cart
	removed := store.RemoveItem(r.PathValue("id"))

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"removed": removed,
		"cart":    cartResponse(store),
	})
}

func (ms *StoreServer) handleClearCart(w http.ResponseWriter, r *http.Request) {
	store := clientSession(r).Cart
	store.Clear()

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"cart":    cartResponse(store),
	})
}

func (ms *StoreServer) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s := clientSession(r)

	order, err := cart.Checkout(s.Cart)
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			ms.respondWithError(w, r, http.StatusBadRequest, "Cart is empty", err)
			return
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, "Checkout failed", err)
		return
	}

	ms.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"order_id":   order.ID,
		"items":      len(order.Items),
		"total":      order.Total,
	}).Info("Order created")

	ms.respondJSON(w, http.StatusCreated, order)
}
