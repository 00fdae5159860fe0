package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"drifttapes/internal/auth"
	"drifttapes/internal/catalog"
	"drifttapes/internal/config"
	"drifttapes/internal/database"
	"drifttapes/internal/logging"
	"drifttapes/internal/player"
	"drifttapes/internal/session"
	"drifttapes/pkg/models"

	"golang.org/x/crypto/bcrypt"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	tracks := []models.Track{
		{Number: 1, Title: "Opening", Duration: "3:30"},
		{Number: 2, Title: "Closing", Duration: "4:15"},
	}
	artists := []models.Artist{
		{ID: "a1", Slug: "neon-drift", Name: "Neon Drift", Genre: "synthwave", Origin: "Leeds", AccentColor: "#f0f", SecondaryColor: "#00f"},
		{ID: "a2", Slug: "glass-harbor", Name: "Glass Harbor", Genre: "ambient", Origin: "Oslo", AccentColor: "#0ff", SecondaryColor: "#fff"},
	}
	albums := []models.Album{
		{ID: "al1", Slug: "midnight-circuit", Title: "Midnight Circuit", ArtistID: "a1", ArtistName: "Neon Drift", Year: 2021, Price: 9, Tags: []string{"night"}, Tracks: tracks},
		{ID: "al2", Slug: "tidal-glass", Title: "Tidal Glass", ArtistID: "a2", ArtistName: "Glass Harbor", Year: 2019, Price: 7, Tags: []string{"calm"}, Tracks: tracks},
		{ID: "al3", Slug: "chrome-sunrise", Title: "Chrome Sunrise", ArtistID: "a1", ArtistName: "Neon Drift", Year: 2023, Price: 12, Tags: []string{"night", "drive"}, Tracks: tracks},
	}

	c, err := catalog.New(artists, albums)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return c
}

func createTestStoreServer(t *testing.T) *StoreServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Logging.RequestLogging = false
	logger := logging.Discard()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"), 1, logger)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	authService, err := auth.NewService(cfg.Auth, db, logger, auth.WithHashCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}

	sessions := session.NewManager(session.Options{
		Storage:    db,
		CartKey:    cfg.Cart.StorageKey,
		PlayerOpts: []player.Option{player.WithScheduler(player.NewManualScheduler())},
		Logger:     logger,
	})
	t.Cleanup(sessions.Close)

	return NewStoreServer(cfg, logger, Deps{
		Catalog:  catalog.NewStaticHolder(testCatalog(t), logger),
		Sessions: sessions,
		Auth:     authService,
		Storage:  db,
	})
}

// client replays cookies between requests like a browser
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, ms *StoreServer) *client {
	return &client{t: t, handler: ms.Handler(), cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
}

func TestAddCartItemDuplicate(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	var first struct {
		AlreadyInCart bool         `json:"alreadyInCart"`
		Cart          CartResponse `json:"cart"`
	}
	rec := c.do(http.MethodPost, "/api/cart/items", `{"albumId":"al1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first add status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &first)
	if first.AlreadyInCart || first.Cart.ItemCount != 1 || first.Cart.Total != 9 {
		t.Errorf("first add = %+v", first)
	}
	if len(first.Cart.Items) != 1 || first.Cart.Items[0].ID != "al1" || first.Cart.Items[0].Price != first.Cart.Total {
		t.Errorf("first add items = %+v", first.Cart.Items)
	}

	var second struct {
		AlreadyInCart bool         `json:"alreadyInCart"`
		Cart          CartResponse `json:"cart"`
	}
	rec = c.do(http.MethodPost, "/api/cart/items", `{"albumId":"al1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate add status = %d, want 200", rec.Code)
	}
	decode(t, rec, &second)
	if !second.AlreadyInCart || second.Cart.ItemCount != 1 {
		t.Errorf("duplicate add = %+v", second)
	}
}

func TestAddCartItemValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing album id", `{}`, http.StatusBadRequest},
		{"unknown album", `{"albumId":"nope"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, createTestStoreServer(t))
			rec := c.do(http.MethodPost, "/api/cart/items", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestForgedClientCookieIsReplaced(t *testing.T) {
	ms := createTestStoreServer(t)
	cookieName := ms.config.Session.CookieName

	forged := session.GenerateID()
	c := newClient(t, ms)
	c.cookies[cookieName] = &http.Cookie{Name: cookieName, Value: forged}

	rec := c.do(http.MethodGet, "/api/cart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	issued := c.cookies[cookieName].Value
	if issued == forged || !session.ValidID(issued) {
		t.Errorf("client cookie = %q, want a fresh id instead of %q", issued, forged)
	}

	// the issued id sticks across requests
	c.do(http.MethodPost, "/api/cart/items", `{"albumId":"al1"}`)
	var cart CartResponse
	decode(t, c.do(http.MethodGet, "/api/cart", ""), &cart)
	if c.cookies[cookieName].Value != issued || cart.ItemCount != 1 {
		t.Errorf("cookie = %q items = %d, want %q with 1 item", c.cookies[cookieName].Value, cart.ItemCount, issued)
	}
}

func TestCartsAreIsolatedPerClient(t *testing.T) {
	ms := createTestStoreServer(t)
	alice := newClient(t, ms)
	bob := newClient(t, ms)

	alice.do(http.MethodPost, "/api/cart/items", `{"albumId":"al1"}`)

	var cart CartResponse
	decode(t, bob.do(http.MethodGet, "/api/cart", ""), &cart)
	if cart.ItemCount != 0 {
		t.Errorf("second client sees %d items", cart.ItemCount)
	}
}

func TestRemoveAndClearCart(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))
	c.do(http.MethodPost, "/api/cart/items", `{"albumId":"al1"}`)
	c.do(http.MethodPost, "/api/cart/items", `{"albumId":"al2"}`)

	var removed struct {
		Removed bool         `json:"removed"`
		Cart    CartResponse `json:"cart"`
	}
	decode(t, c.do(http.MethodDelete, "/api/cart/items/al1", ""), &removed)
	if !removed.Removed || removed.Cart.ItemCount != 1 {
		t.Errorf("remove = %+v", removed)
	}

	// removing an absent id is not an error
	rec := c.do(http.MethodDelete, "/api/cart/items/al1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("second remove status = %d", rec.Code)
	}

	var cleared struct {
		Cart CartResponse `json:"cart"`
	}
	decode(t, c.do(http.MethodDelete, "/api/cart", ""), &cleared)
	if cleared.Cart.ItemCount != 0 || cleared.Cart.Total != 0 {
		t.Errorf("clear = %+v", cleared.Cart)
	}
}

func TestCheckout(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	if rec := c.do(http.MethodPost, "/api/checkout", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty checkout status = %d, want 400", rec.Code)
	}

	c.do(http.MethodPost, "/api/cart/items", `{"albumId":"al3"}`)
	rec := c.do(http.MethodPost, "/api/checkout", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, want 201", rec.Code)
	}

	var order struct {
		ID     string  `json:"id"`
		Status string  `json:"status"`
		Total  float64 `json:"total"`
	}
	decode(t, rec, &order)
	if order.ID == "" || order.Status != "pending" || order.Total != 12 {
		t.Errorf("order = %+v", order)
	}
}

func TestSearch(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	type searchResponse struct {
		Query   string `json:"query"`
		Results []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"results"`
		Suggestions []struct {
			Text string `json:"text"`
		} `json:"suggestions"`
	}

	t.Run("matches artist and albums", func(t *testing.T) {
		var resp searchResponse
		decode(t, c.do(http.MethodGet, "/api/search?q=neon", ""), &resp)
		if len(resp.Results) != 3 || resp.Results[0].ID != "a1" {
			t.Errorf("results = %+v", resp.Results)
		}
	})

	t.Run("short query", func(t *testing.T) {
		var resp searchResponse
		decode(t, c.do(http.MethodGet, "/api/search?q=n", ""), &resp)
		if len(resp.Results) != 0 {
			t.Errorf("short query returned %d results", len(resp.Results))
		}
	})

	t.Run("typo suggests title", func(t *testing.T) {
		var resp searchResponse
		decode(t, c.do(http.MethodGet, "/api/search?q=midnite+circut", ""), &resp)
		if len(resp.Results) != 0 {
			t.Fatalf("typo matched %d results", len(resp.Results))
		}
		if len(resp.Suggestions) == 0 || resp.Suggestions[0].Text != "Midnight Circuit" {
			t.Errorf("suggestions = %+v", resp.Suggestions)
		}
	})

	t.Run("cached response is identical", func(t *testing.T) {
		first := c.do(http.MethodGet, "/api/search?q=glass", "").Body.String()
		second := c.do(http.MethodGet, "/api/search?q=glass", "").Body.String()
		if first != second {
			t.Errorf("cached search differs:\n%s\n%s", first, second)
		}
	})
}

func TestGetAlbumsFiltering(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	tests := []struct {
		name        string
		query       string
		wantIDs     []string
		wantFilters int
	}{
		{"no filters newest first", "", []string{"al3", "al1", "al2"}, 0},
		{"genre", "?genre=synthwave", []string{"al3", "al1"}, 1},
		{"artist slug", "?artist=glass-harbor", []string{"al2"}, 1},
		{"tag and year", "?tag=night&year=2021", []string{"al1"}, 2},
		{"no match", "?tag=calm&genre=synthwave", []string{}, 2},
		{"price low", "?sort=price-low", []string{"al2", "al1", "al3"}, 0},
		{"title az", "?sort=title-az", []string{"al3", "al1", "al2"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(http.MethodGet, "/api/albums"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}

			var resp struct {
				Albums        []models.Album `json:"albums"`
				Total         int            `json:"total"`
				ActiveFilters int            `json:"activeFilters"`
			}
			decode(t, rec, &resp)

			if resp.Total != len(tt.wantIDs) || resp.ActiveFilters != tt.wantFilters {
				t.Errorf("total = %d, activeFilters = %d", resp.Total, resp.ActiveFilters)
			}
			for i, album := range resp.Albums {
				if i >= len(tt.wantIDs) || album.ID != tt.wantIDs[i] {
					t.Errorf("albums[%d] = %s, want %v", i, album.ID, tt.wantIDs)
				}
			}
		})
	}
}

func TestGetAlbumsRejectsBadParams(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	rec := c.do(http.MethodGet, "/api/albums?sort=popular&year=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var result ValidationResult
	decode(t, rec, &result)
	if result.Valid || len(result.Errors) != 2 {
		t.Errorf("validation result = %+v", result)
	}
}

func TestCatalogDetailRoutes(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	var album AlbumDetail
	rec := c.do(http.MethodGet, "/api/albums/midnight-circuit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("album status = %d", rec.Code)
	}
	decode(t, rec, &album)
	if album.Artist == nil || album.Artist.ID != "a1" || album.DurationSeconds != 465 || album.PlayableTracks[1].ID != "al1-2" {
		t.Errorf("album detail = %+v", album)
	}

	var artist ArtistDetail
	decode(t, c.do(http.MethodGet, "/api/artists/neon-drift", ""), &artist)
	if len(artist.Albums) != 2 || artist.Stats.TrackCount != 4 || len(artist.Similar) != 1 {
		t.Errorf("artist detail = %+v", artist)
	}

	for _, path := range []string{"/api/albums/missing", "/api/artists/missing"} {
		if rec := c.do(http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestPlayerRoutes(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	var state player.State
	decode(t, c.do(http.MethodPost, "/api/player/play-album", `{"albumId":"al1","startIndex":1}`), &state)
	if !state.IsPlaying || state.CurrentTrack == nil || state.CurrentTrack.ID != "al1-2" || len(state.Queue) != 2 {
		t.Fatalf("play-album state = %+v", state)
	}

	decode(t, c.do(http.MethodPost, "/api/player/pause", ""), &state)
	if state.IsPlaying {
		t.Error("pause left player playing")
	}

	decode(t, c.do(http.MethodPost, "/api/player/queue", `{"albumId":"al2","trackNumber":1}`), &state)
	if len(state.Queue) != 3 {
		t.Errorf("queue length = %d, want 3", len(state.Queue))
	}

	decode(t, c.do(http.MethodPost, "/api/player/volume", `{"volume":0.25}`), &state)
	if state.Volume != 0.25 {
		t.Errorf("volume = %v", state.Volume)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown action", http.MethodPost, "/api/player/rewind", "", http.StatusNotFound},
		{"volume out of range", http.MethodPost, "/api/player/volume", `{"volume":2}`, http.StatusBadRequest},
		{"seek without time", http.MethodPost, "/api/player/seek", `{}`, http.StatusBadRequest},
		{"unknown track", http.MethodPost, "/api/player/play-track", `{"albumId":"al1","trackNumber":9}`, http.StatusNotFound},
		{"bad queue index", http.MethodDelete, "/api/player/queue/x", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := c.do(tt.method, tt.path, tt.body); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestPlayerEventsStream(t *testing.T) {
	ms := createTestStoreServer(t)

	ctx, cancel := context.WithCancel(t.Context())
	req := httptest.NewRequest(http.MethodGet, "/api/player/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		ms.Handler().ServeHTTP(rec, req)
		close(done)
	}()
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "data: {") {
		t.Errorf("stream did not start with a state event: %q", rec.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	rec := c.do(http.MethodPost, "/api/auth/signup", `{"email":"Ana@Example.com","password":"correct-horse"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}

	var profile struct {
		User models.User `json:"user"`
	}
	decode(t, c.do(http.MethodGet, "/api/auth/profile", ""), &profile)
	if profile.User.Email != "ana@example.com" || profile.User.DisplayName != "ana" {
		t.Errorf("profile = %+v", profile.User)
	}

	if rec := c.do(http.MethodPost, "/api/auth/signup", `{"email":"ana@example.com","password":"another-one"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}

	if rec := c.do(http.MethodPost, "/api/auth/logout", ""); rec.Code != http.StatusOK {
		t.Errorf("logout status = %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/auth/profile", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("profile after logout status = %d, want 401", rec.Code)
	}

	if rec := c.do(http.MethodPost, "/api/auth/login", `{"email":"ana@example.com","password":"wrong-password"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	rec := c.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var health HealthStatus
	decode(t, rec, &health)
	if health.Status != "healthy" || health.Albums != 3 || health.Artists != 2 {
		t.Errorf("health = %+v", health)
	}
}

func TestCORSPreflight(t *testing.T) {
	c := newClient(t, createTestStoreServer(t))

	rec := c.do(http.MethodOptions, "/api/cart", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
