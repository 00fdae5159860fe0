package cart

import (
	"errors"
	"time"

	"drifttapes/pkg/models"

	"github.com/google/uuid"
)

// ErrEmptyCart is returned when checking out a cart with no items
var ErrEmptyCart = errors.New("cart is empty")

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const OrderPending OrderStatus = "pending"

// Order is a snapshot of a cart at checkout time
type Order struct {
	ID        string            `json:"id"`
	Status    OrderStatus       `json:"status"`
	Items     []models.CartItem `json:"items"`
	Total     float64           `json:"total"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Checkout builds a pending order from the cart's current contents. Payment
// is not processed and the cart is left untouched.
func Checkout(store *Store) (*Order, error) {
	snap := store.Snapshot()
	if snap.ItemCount == 0 {
		return nil, ErrEmptyCart
	}

	return &Order{
		ID:        uuid.New().String(),
		Status:    OrderPending,
		Items:     snap.Items,
		Total:     snap.Total,
		CreatedAt: time.Now(),
	}, nil
}
