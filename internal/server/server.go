package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"drifttapes/internal/auth"
	"drifttapes/internal/cache"
	"drifttapes/internal/catalog"
	"drifttapes/internal/config"
	"drifttapes/internal/ngrok"
	"drifttapes/internal/session"

	"github.com/sirupsen/logrus"
)

// Pinger reports whether durable storage is reachable
type Pinger interface {
	Ping() error
}

// StoreServer serves the storefront API: catalog browsing, search, per-client
// carts and players, and accounts.
type StoreServer struct {
	config       *config.Config
	logger       *logrus.Logger
	catalog      *catalog.Holder
	sessions     *session.Manager
	authService  *auth.Service
	limiter      *auth.RateLimiter
	searchCache  *cache.SearchCache
	storage      Pinger
	ngrokService *ngrok.Service
	startedAt    time.Time

	handler http.Handler
}

// Deps are the collaborators a StoreServer is built from
type Deps struct {
	Catalog  *catalog.Holder
	Sessions *session.Manager
	Auth     *auth.Service
	Storage  Pinger
	Ngrok    *ngrok.Service
}

// NewStoreServer creates a new storefront server instance
func NewStoreServer(cfg *config.Config, logger *logrus.Logger, deps Deps) *StoreServer {
	ms := &StoreServer{
		config:       cfg,
		logger:       logger,
		catalog:      deps.Catalog,
		sessions:     deps.Sessions,
		authService:  deps.Auth,
		limiter:      auth.NewRateLimiter(cfg.Auth.RateLimitPerSec, cfg.Auth.RateLimitBurst),
		searchCache:  cache.NewSearchCache(cfg.SearchCacheTTL()),
		storage:      deps.Storage,
		ngrokService: deps.Ngrok,
		startedAt:    time.Now(),
	}
	ms.handler = ms.setupRoutes()
	return ms
}

// Handler returns the fully wrapped HTTP handler
func (ms *StoreServer) Handler() http.Handler {
	return ms.handler
}

func (ms *StoreServer) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", ms.handleHealthCheck)

	// Catalog
	mux.HandleFunc("GET /api/artists", ms.handleGetArtists)
	mux.HandleFunc("GET /api/artists/{slug}", ms.handleGetArtist)
	mux.HandleFunc("GET /api/albums", ms.handleGetAlbums)
	mux.HandleFunc("GET /api/albums/{slug}", ms.handleGetAlbum)
	mux.HandleFunc("GET /api/facets", ms.handleGetFacets)
	mux.HandleFunc("GET /api/featured", ms.handleGetFeatured)
	mux.HandleFunc("GET /api/search", ms.handleSearch)

	// Cart
	mux.HandleFunc("GET /api/cart", ms.handleGetCart)
	mux.HandleFunc("POST /api/cart/items", ms.handleAddCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", ms.handleRemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", ms.handleClearCart)
	mux.HandleFunc("POST /api/checkout", ms.handleCheckout)

	// Player
	mux.HandleFunc("GET /api/player/state", ms.handleGetPlayerState)
	mux.HandleFunc("GET /api/player/events", ms.handlePlayerEvents)
	mux.HandleFunc("POST /api/player/play-album", ms.handlePlayAlbum)
	mux.HandleFunc("POST /api/player/play-track", ms.handlePlayTrack)
	mux.HandleFunc("POST /api/player/queue", ms.handleAddToQueue)
	mux.HandleFunc("DELETE /api/player/queue/{index}", ms.handleRemoveFromQueue)
	mux.HandleFunc("DELETE /api/player/queue", ms.handleClearQueue)
	mux.HandleFunc("POST /api/player/seek", ms.handleSeek)
	mux.HandleFunc("POST /api/player/volume", ms.handleSetVolume)
	mux.HandleFunc("POST /api/player/{action}", ms.handlePlayerAction)

	// Accounts
	mux.Handle("POST /api/auth/signup", ms.rateLimitMiddleware(http.HandlerFunc(ms.handleSignup)))
	mux.Handle("POST /api/auth/login", ms.rateLimitMiddleware(http.HandlerFunc(ms.handleLogin)))
	mux.HandleFunc("POST /api/auth/logout", ms.handleLogout)
	mux.HandleFunc("GET /api/auth/profile", ms.handleGetProfile)
	mux.HandleFunc("PUT /api/auth/profile", ms.handleUpdateProfile)

	var handler http.Handler = mux
	handler = ms.clientSessionMiddleware(handler)
	handler = ms.corsMiddleware(handler)
	handler = ms.requestLoggingMiddleware(handler)
	handler = ms.panicRecoveryMiddleware(handler)
	return handler
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (ms *StoreServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         ms.config.GetAddress(),
		Handler:      ms.handler,
		ReadTimeout:  time.Duration(ms.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(ms.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(ms.config.Server.IdleTimeout) * time.Second,
	}

	localAddress := fmt.Sprintf("http://%s", ms.config.GetAddress())
	snap := ms.catalog.Current()
	ms.logger.WithFields(logrus.Fields{
		"address": localAddress,
		"artists": len(snap.Catalog.Artists()),
		"albums":  len(snap.Catalog.Albums()),
	}).Info("Drift Tapes storefront starting")

	ms.limiter.StartCleanup(ctx)
	ms.searchCache.StartCleanup(ctx)

	if ms.ngrokService != nil {
		if err := ms.ngrokService.StartTunnel(ctx, localAddress); err != nil {
			ms.logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer ms.ngrokService.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	ms.logger.Info("Shutting down storefront server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// SSE streams end when their players close
	ms.sessions.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	ms.logger.Info("Storefront server shutdown complete")
	return nil
}
