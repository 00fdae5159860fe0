package cart

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"drifttapes/internal/logging"
	"drifttapes/pkg/models"
)

// memoryStorage is an in-memory Storage for tests
type memoryStorage struct {
	data     map[string][]byte
	readErr  error
	writeErr error
	writes   int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{data: make(map[string][]byte)}
}

func (m *memoryStorage) GetItem(key string) ([]byte, bool, error) {
	if m.readErr != nil {
		return nil, false, m.readErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStorage) SetItem(key string, value []byte) error {
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data[key] = value
	return nil
}

func item(id string, price float64) models.CartItem {
	return models.CartItem{ID: id, Type: models.CartItemAlbum, Title: "Album " + id, Price: price}
}

func newTestStore(storage Storage, opts ...Option) *Store {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return NewStore(storage, DefaultStorageKey, opts...)
}

func itemSum(items []models.CartItem) float64 {
	sum := 0.0
	for _, i := range items {
		sum += i.Price
	}
	return sum
}

func TestAddItemIdempotent(t *testing.T) {
	var events []EventType
	store := newTestStore(newMemoryStorage(), WithObserver(ObserverFunc(func(e Event) {
		events = append(events, e.Type)
	})))

	if got := store.AddItem(item("al1", 9.99)); got != Added {
		t.Fatalf("first AddItem() = %v, want Added", got)
	}
	if got := store.AddItem(item("al1", 9.99)); got != AlreadyInCart {
		t.Fatalf("second AddItem() = %v, want AlreadyInCart", got)
	}

	if store.ItemCount() != 1 {
		t.Errorf("ItemCount() = %d, want 1", store.ItemCount())
	}
	if want := []EventType{EventAdded, EventDuplicate}; !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestTotalInvariant(t *testing.T) {
	store := newTestStore(newMemoryStorage())

	steps := []struct {
		name string
		op   func()
	}{
		{"add al1", func() { store.AddItem(item("al1", 9.99)) }},
		{"add al2", func() { store.AddItem(item("al2", 7.50)) }},
		{"re-add al1", func() { store.AddItem(item("al1", 9.99)) }},
		{"add al3", func() { store.AddItem(item("al3", 12.00)) }},
		{"remove al2", func() { store.RemoveItem("al2") }},
		{"remove absent", func() { store.RemoveItem("nope") }},
		{"clear", func() { store.Clear() }},
		{"add after clear", func() { store.AddItem(item("al4", 5.25)) }},
	}

	for _, step := range steps {
		step.op()
		items := store.Items()
		if store.Total() != itemSum(items) {
			t.Errorf("after %s: Total() = %v, sum = %v", step.name, store.Total(), itemSum(items))
		}
		if store.ItemCount() != len(items) {
			t.Errorf("after %s: ItemCount() = %d, len = %d", step.name, store.ItemCount(), len(items))
		}
	}
}

func TestRemoveAndMembership(t *testing.T) {
	store := newTestStore(newMemoryStorage())
	store.AddItem(item("al1", 1))
	store.AddItem(item("al2", 2))
	store.AddItem(item("al3", 3))

	if !store.RemoveItem("al2") {
		t.Error("RemoveItem(al2) = false, want true")
	}
	if store.RemoveItem("al2") {
		t.Error("RemoveItem(al2) twice = true, want false")
	}
	if store.IsInCart("al2") || !store.IsInCart("al1") || !store.IsInCart("al3") {
		t.Error("IsInCart() does not reflect removal")
	}

	var order []string
	for _, i := range store.Items() {
		order = append(order, i.ID)
	}
	if want := []string{"al1", "al3"}; !reflect.DeepEqual(order, want) {
		t.Errorf("Items() order = %v, want %v", order, want)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	storage := newMemoryStorage()
	first := newTestStore(storage)
	first.AddItem(item("al1", 9.99))
	first.AddItem(item("al2", 7.99))

	second := newTestStore(storage)

	if !reflect.DeepEqual(first.Items(), second.Items()) {
		t.Errorf("rehydrated items = %+v, want %+v", second.Items(), first.Items())
	}
	if first.Total() != second.Total() {
		t.Errorf("rehydrated Total() = %v, want %v", second.Total(), first.Total())
	}
}

func TestRehydrateDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		storage *memoryStorage
	}{
		{name: "missing key", storage: newMemoryStorage()},
		{name: "corrupt blob", storage: &memoryStorage{data: map[string][]byte{DefaultStorageKey: []byte("{not json")}}},
		{name: "wrong shape", storage: &memoryStorage{data: map[string][]byte{DefaultStorageKey: []byte(`{"id":"al1"}`)}}},
		{name: "read failure", storage: &memoryStorage{data: map[string][]byte{}, readErr: errors.New("disk gone")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(tt.storage)
			if store.ItemCount() != 0 || store.Total() != 0 {
				t.Errorf("expected empty cart, got %d items", store.ItemCount())
			}
		})
	}
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	storage := newMemoryStorage()
	storage.writeErr = errors.New("quota exceeded")
	store := newTestStore(storage)

	if got := store.AddItem(item("al1", 4)); got != Added {
		t.Fatalf("AddItem() = %v, want Added", got)
	}
	if store.ItemCount() != 1 {
		t.Errorf("ItemCount() = %d, want 1", store.ItemCount())
	}
	if storage.writes != 1 {
		t.Errorf("writes = %d, want 1", storage.writes)
	}
}

func TestEveryMutationPersists(t *testing.T) {
	storage := newMemoryStorage()
	store := newTestStore(storage)

	store.AddItem(item("al1", 1))
	store.AddItem(item("al1", 1))
	store.RemoveItem("al1")
	store.Clear()

	// the duplicate add changes nothing and is not written
	if storage.writes != 3 {
		t.Errorf("writes = %d, want 3", storage.writes)
	}
	if string(storage.data[DefaultStorageKey]) != "[]" {
		t.Errorf("persisted blob = %s, want []", storage.data[DefaultStorageKey])
	}
}

func TestCheckout(t *testing.T) {
	store := newTestStore(newMemoryStorage())

	if _, err := Checkout(store); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("Checkout() on empty cart error = %v, want ErrEmptyCart", err)
	}

	store.AddItem(item("al1", 9.99))
	store.AddItem(item("al2", 5.01))

	order, err := Checkout(store)
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if order.ID == "" || order.Status != OrderPending {
		t.Errorf("order = %+v, want pending order with id", order)
	}
	if len(order.Items) != 2 || order.Total != store.Total() {
		t.Errorf("order items = %d total = %v", len(order.Items), order.Total)
	}
	if store.ItemCount() != 2 {
		t.Errorf("Checkout() cleared the cart")
	}
}

func TestSnapshotIsConsistent(t *testing.T) {
	store := newTestStore(nil)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("al%d-%d", w, i%5)
				store.AddItem(item(id, float64(i%5)+0.25))
				store.RemoveItem(fmt.Sprintf("al%d-%d", w, (i+2)%5))
			}
		}(w)
	}

	for i := 0; i < 500; i++ {
		snap := store.Snapshot()
		if snap.ItemCount != len(snap.Items) {
			t.Fatalf("snapshot count = %d, len(items) = %d", snap.ItemCount, len(snap.Items))
		}
		if snap.Total != itemSum(snap.Items) {
			t.Fatalf("snapshot total = %v, sum of items = %v", snap.Total, itemSum(snap.Items))
		}
	}
	wg.Wait()

	final := store.Snapshot()
	if !reflect.DeepEqual(final.Items, store.Items()) || final.Total != store.Total() {
		t.Errorf("settled snapshot = %+v, want items %+v total %v", final, store.Items(), store.Total())
	}
}
