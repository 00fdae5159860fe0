package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"drifttapes/internal/auth"
	"drifttapes/internal/catalog"
	"drifttapes/internal/config"
	"drifttapes/internal/database"
	"drifttapes/internal/logging"
	"drifttapes/internal/ngrok"
	"drifttapes/internal/player"
	"drifttapes/internal/server"
	"drifttapes/internal/session"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).Warn("Could not read .env file")
	}

	configPath := os.Getenv("DRIFTTAPES_CONFIG")
	if configPath == "" {
		configPath = "./config.toml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("Error configuring logging")
	}
	defer logCloser.Close()

	if _, err := os.Stat(cfg.Catalog.Dir); os.IsNotExist(err) {
		logger.WithField("catalog_dir", cfg.Catalog.Dir).Fatal("Catalog directory does not exist. Add artists.json and albums.json to it.")
	}

	holder, err := catalog.NewHolder(cfg.Catalog.Dir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error loading catalog")
	}

	db, err := database.NewDatabase(cfg.Database.Path, cfg.Database.MaxConnections, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	authService, err := auth.NewService(cfg.Auth, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating auth service")
	}

	ngrokService, err := ngrok.NewService(cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok disabled")
		ngrokService = nil
	}

	sessions := session.NewManager(session.Options{
		Storage:     db,
		CartKey:     cfg.Cart.StorageKey,
		IdleTimeout: cfg.SessionIdleTimeout(),
		PlayerOpts: []player.Option{
			player.WithTickInterval(cfg.TickInterval()),
			player.WithVolume(cfg.Player.DefaultVolume),
		},
		Logger: logger,
	})

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartCleanup(ctx)
	if authService.IsEnabled() {
		authService.GetSessionManager().StartCleanup(ctx)
	}

	if cfg.Catalog.WatchForChanges {
		go func() {
			if err := holder.Watch(ctx); err != nil {
				logger.WithError(err).Error("Catalog watcher stopped")
			}
		}()
	}

	storeServer := server.NewStoreServer(cfg, logger, server.Deps{
		Catalog:  holder,
		Sessions: sessions,
		Auth:     authService,
		Storage:  db,
		Ngrok:    ngrokService,
	})

	if err := storeServer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Received shutdown signal, goodbye")
}
