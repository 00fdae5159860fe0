package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"drifttapes/internal/cart"
	"drifttapes/internal/player"

	"github.com/sirupsen/logrus"
)

const (
	idBytes         = 16
	cleanupInterval = time.Minute
)

// ClientSession is the per-browser state: one cart and one player
type ClientSession struct {
	ID           string
	Cart         *cart.Store
	Player       *player.Player
	LastActivity time.Time
}

// Options configures the stores created for each new session
type Options struct {
	Storage     cart.Storage
	CartKey     string
	IdleTimeout time.Duration
	PlayerOpts  []player.Option
	Logger      *logrus.Logger
}

// Manager owns the client sessions. Each session gets its own cart, mirrored
// to Storage under "<CartKey>:<id>", and its own player.
type Manager struct {
	opts     Options
	logger   *logrus.Logger
	sessions map[string]*ClientSession
	mutex    sync.Mutex
}

// NewManager creates an empty session manager
func NewManager(opts Options) *Manager {
	if opts.CartKey == "" {
		opts.CartKey = cart.DefaultStorageKey
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*ClientSession),
	}
}

// GenerateID creates a new random client id
func GenerateID() string {
	bytes := make([]byte, idBytes)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// ValidID reports whether id has the shape produced by GenerateID
func ValidID(id string) bool {
	if len(id) != idBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// GetOrCreate returns the session for id, creating it on first use. An id
// is only reused when it names a live session or a cart already in storage;
// an empty, malformed or unknown id gets a freshly generated one so clients
// cannot pick their own. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *ClientSession, created bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, ok := m.sessions[id]; ok {
		existing.LastActivity = time.Now()
		return existing, false
	}

	if !ValidID(id) || !m.hasStoredCart(id) {
		id = GenerateID()
	}

	s = &ClientSession{
		ID: id,
		Cart: cart.NewStore(m.opts.Storage, m.cartKey(id),
			cart.WithLogger(m.logger),
			cart.WithObserver(cartLogger(m.logger, id)),
		),
		Player:       player.New(append([]player.Option{player.WithLogger(m.logger)}, m.opts.PlayerOpts...)...),
		LastActivity: time.Now(),
	}
	m.sessions[id] = s

	m.logger.WithFields(logrus.Fields{
		"session_id": id,
		"cart_items": s.Cart.ItemCount(),
	}).Debug("Created client session")

	return s, true
}

// hasStoredCart reports whether a cart was persisted for id by an earlier
// session
func (m *Manager) hasStoredCart(id string) bool {
	if m.opts.Storage == nil {
		return false
	}
	_, found, err := m.opts.Storage.GetItem(m.cartKey(id))
	if err != nil {
		m.logger.WithError(err).WithField("session_id", id).Warn("Failed to look up stored cart")
		return false
	}
	return found
}

func (m *Manager) cartKey(id string) string {
	return m.opts.CartKey + ":" + id
}

// Get returns an existing session without creating one
func (m *Manager) Get(id string) *ClientSession {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.sessions[id]
}

// Remove closes and forgets a session. Its cart stays in storage.
func (m *Manager) Remove(id string) {
	m.mutex.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mutex.Unlock()

	if ok {
		s.Player.Close()
	}
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sessions)
}

// StartCleanup expires idle sessions until ctx is done
func (m *Manager) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.cleanupExpired(now); n > 0 {
					m.logger.WithField("expired", n).Debug("Expired idle client sessions")
				}
			}
		}
	}()
}

// cleanupExpired closes sessions idle longer than the timeout as of now
func (m *Manager) cleanupExpired(now time.Time) int {
	m.mutex.Lock()
	var expired []*ClientSession
	for id, s := range m.sessions {
		if now.Sub(s.LastActivity) > m.opts.IdleTimeout {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mutex.Unlock()

	for _, s := range expired {
		s.Player.Close()
	}
	return len(expired)
}

// Close closes every session's player
func (m *Manager) Close() {
	m.mutex.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*ClientSession)
	m.mutex.Unlock()

	for _, s := range sessions {
		s.Player.Close()
	}
}

func cartLogger(logger *logrus.Logger, id string) cart.Observer {
	return cart.ObserverFunc(func(e cart.Event) {
		entry := logger.WithFields(logrus.Fields{
			"session_id": id,
			"event":      e.Type,
			"cart_items": e.Count,
		})
		if e.Item != nil {
			entry = entry.WithField("item_id", e.Item.ID)
		}
		entry.Debug("Cart changed")
	})
}
