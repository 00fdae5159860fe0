package session

import (
	"testing"
	"time"

	"drifttapes/internal/cart"
	"drifttapes/internal/logging"
	"drifttapes/internal/player"
	"drifttapes/pkg/models"
)

type mapStorage map[string][]byte

func (m mapStorage) GetItem(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapStorage) SetItem(key string, value []byte) error {
	m[key] = value
	return nil
}

func newTestManager(storage cart.Storage) *Manager {
	return NewManager(Options{
		Storage:     storage,
		CartKey:     "cart",
		IdleTimeout: time.Minute,
		PlayerOpts:  []player.Option{player.WithScheduler(player.NewManualScheduler())},
		Logger:      logging.Discard(),
	})
}

func TestGetOrCreate(t *testing.T) {
	m := newTestManager(mapStorage{})
	defer m.Close()

	s, created := m.GetOrCreate("")
	if !created || !ValidID(s.ID) {
		t.Fatalf("GetOrCreate(\"\") = %q created=%v", s.ID, created)
	}

	again, created := m.GetOrCreate(s.ID)
	if created || again != s {
		t.Error("GetOrCreate(existing) created a new session")
	}

	if other, _ := m.GetOrCreate("not-hex"); other.ID == "not-hex" {
		t.Error("malformed id was accepted")
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	storage := mapStorage{}
	m := newTestManager(storage)
	defer m.Close()

	a, _ := m.GetOrCreate(GenerateID())
	b, _ := m.GetOrCreate(GenerateID())

	a.Cart.AddItem(models.CartItem{ID: "al1", Price: 5})
	a.Player.PlayTrack(models.PlayableTrack{ID: "al1-1", Duration: "3:00"}, true)

	if b.Cart.ItemCount() != 0 {
		t.Errorf("session b cart has %d items", b.Cart.ItemCount())
	}
	if b.Player.Snapshot().Status != player.StatusIdle {
		t.Error("session b player is not idle")
	}
	if _, ok := storage["cart:"+a.ID]; !ok {
		t.Errorf("cart not stored under session key, keys = %v", storage)
	}
}

func TestExpiryKeepsCart(t *testing.T) {
	storage := mapStorage{}
	m := newTestManager(storage)
	defer m.Close()

	id := GenerateID()
	s, _ := m.GetOrCreate(id)
	s.Cart.AddItem(models.CartItem{ID: "al1", Price: 5})
	events := s.Player.Subscribe()

	if n := m.cleanupExpired(time.Now()); n != 0 {
		t.Fatalf("cleanupExpired(now) = %d, want 0", n)
	}
	if n := m.cleanupExpired(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("cleanupExpired(+2m) = %d, want 1", n)
	}
	if m.Get(id) != nil {
		t.Error("expired session still present")
	}
	if _, ok := <-events; ok {
		t.Error("player subscription still open after expiry")
	}

	back, created := m.GetOrCreate(id)
	if !created || back.Cart.ItemCount() != 1 {
		t.Errorf("returning session created=%v items=%d, want rehydrated cart", created, back.Cart.ItemCount())
	}
}

func TestUnknownIDIsReplaced(t *testing.T) {
	tests := []struct {
		name     string
		stored   bool
		wantSame bool
	}{
		{name: "unknown id without stored cart", stored: false, wantSame: false},
		{name: "returning id with stored cart", stored: true, wantSame: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := mapStorage{}
			m := newTestManager(storage)
			defer m.Close()

			presented := GenerateID()
			if tt.stored {
				storage["cart:"+presented] = []byte(`[{"id":"al1","type":"album","price":5}]`)
			}

			s, created := m.GetOrCreate(presented)
			if !created {
				t.Fatal("GetOrCreate() reused a session that was never live")
			}
			if (s.ID == presented) != tt.wantSame {
				t.Errorf("session id = %q, presented %q, want same = %v", s.ID, presented, tt.wantSame)
			}
			if !ValidID(s.ID) {
				t.Errorf("issued id %q is malformed", s.ID)
			}
			if tt.stored && s.Cart.ItemCount() != 1 {
				t.Errorf("returning session has %d items, want rehydrated cart", s.Cart.ItemCount())
			}
			if !tt.stored {
				if _, ok := storage["cart:"+presented]; ok {
					t.Error("presented id was used as a cart key")
				}
			}
		})
	}
}
