package cart

import (
	"encoding/json"
	"sync"

	"drifttapes/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultStorageKey is the storage key holding the serialized cart
const DefaultStorageKey = "drift-tapes-cart"

// Storage is a durable key/value mirror for the cart blob
type Storage interface {
	GetItem(key string) ([]byte, bool, error)
	SetItem(key string, value []byte) error
}

// AddResult tells a fresh add apart from a re-add of an item already present
type AddResult int

const (
	Added AddResult = iota
	AlreadyInCart
)

func (r AddResult) String() string {
	if r == AlreadyInCart {
		return "already_in_cart"
	}
	return "added"
}

// EventType identifies a cart change reported to an Observer
type EventType string

const (
	EventAdded     EventType = "added"
	EventDuplicate EventType = "duplicate"
	EventRemoved   EventType = "removed"
	EventCleared   EventType = "cleared"
)

// Event describes a cart change. Item is nil for EventCleared.
type Event struct {
	Type  EventType
	Item  *models.CartItem
	Count int
}

// Observer is notified after each cart operation, outside the store lock
type Observer interface {
	OnCartEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

func (f ObserverFunc) OnCartEvent(e Event) { f(e) }

// Option configures a Store
type Option func(*Store)

// WithObserver registers an observer for cart events
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithLogger sets the logger used for persistence failures
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store holds a cart's items in insertion order and mirrors them to Storage
// on every mutation.
type Store struct {
	storage  Storage
	key      string
	observer Observer
	logger   *logrus.Logger

	mutex sync.RWMutex
	items []models.CartItem
}

// NewStore creates a cart backed by storage under key and rehydrates any
// previously persisted items. A missing or unreadable blob yields an empty
// cart.
func NewStore(storage Storage, key string, opts ...Option) *Store {
	if key == "" {
		key = DefaultStorageKey
	}

	s := &Store{
		storage: storage,
		key:     key,
		items:   []models.CartItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}

	s.rehydrate()
	return s
}

func (s *Store) rehydrate() {
	if s.storage == nil {
		return
	}

	log := s.logger.WithField("key", s.key)

	data, found, err := s.storage.GetItem(s.key)
	if err != nil {
		log.WithError(err).Warn("Failed to read persisted cart, starting empty")
		return
	}
	if !found || len(data) == 0 {
		return
	}

	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.WithError(err).Warn("Persisted cart is corrupt, starting empty")
		return
	}

	// Drop duplicate ids that may have been written by an older client
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		s.items = append(s.items, item)
	}

	log.WithField("items", len(s.items)).Debug("Rehydrated cart")
}

// persist writes the full item list. Must be called with the lock held.
// Failures are logged and swallowed.
func (s *Store) persist() {
	if s.storage == nil {
		return
	}

	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("Failed to encode cart")
		return
	}
	if err := s.storage.SetItem(s.key, data); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("Failed to persist cart")
	}
}

func (s *Store) notify(e Event) {
	if s.observer != nil {
		s.observer.OnCartEvent(e)
	}
}

// AddItem appends item unless an item with the same id is already present.
// A duplicate leaves the cart unchanged and returns AlreadyInCart.
func (s *Store) AddItem(item models.CartItem) AddResult {
	s.mutex.Lock()
	if s.indexOf(item.ID) >= 0 {
		count := len(s.items)
		s.mutex.Unlock()
		s.notify(Event{Type: EventDuplicate, Item: &item, Count: count})
		return AlreadyInCart
	}

	s.items = append(s.items, item)
	s.persist()
	count := len(s.items)
	s.mutex.Unlock()

	s.notify(Event{Type: EventAdded, Item: &item, Count: count})
	return Added
}

// RemoveItem removes the item with the given id. Removing an absent id is not
// an error. It reports whether an item was removed.
func (s *Store) RemoveItem(id string) bool {
	s.mutex.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.persist()
		s.mutex.Unlock()
		return false
	}

	removed := s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.persist()
	count := len(s.items)
	s.mutex.Unlock()

	s.notify(Event{Type: EventRemoved, Item: &removed, Count: count})
	return true
}

// Clear empties the cart
func (s *Store) Clear() {
	s.mutex.Lock()
	s.items = []models.CartItem{}
	s.persist()
	s.mutex.Unlock()

	s.notify(Event{Type: EventCleared})
}

// IsInCart reports whether an item with the given id is present
func (s *Store) IsInCart(id string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.indexOf(id) >= 0
}

// Items returns a copy of the cart contents in insertion order
func (s *Store) Items() []models.CartItem {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	items := make([]models.CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// Total is the sum of item prices, recomputed on every call
func (s *Store) Total() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	total := 0.0
	for _, item := range s.items {
		total += item.Price
	}
	return total
}

// ItemCount is the number of items in the cart
func (s *Store) ItemCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.items)
}

// Snapshot is a consistent view of the cart taken under a single lock
type Snapshot struct {
	Items     []models.CartItem
	ItemCount int
	Total     float64
}

// Snapshot returns items, count and total as of one instant, so the total
// always equals the sum of the returned items.
func (s *Store) Snapshot() Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	items := make([]models.CartItem, len(s.items))
	copy(items, s.items)

	total := 0.0
	for _, item := range items {
		total += item.Price
	}
	return Snapshot{Items: items, ItemCount: len(items), Total: total}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
