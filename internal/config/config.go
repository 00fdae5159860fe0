package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Cart     CartConfig     `toml:"cart"`
	Player   PlayerConfig   `toml:"player"`
	Session  SessionConfig  `toml:"session"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `toml:"port"`
	Host         string `toml:"host"`
	EnableCORS   bool   `toml:"enable_cors"`
	ReadTimeout  int    `toml:"read_timeout_seconds"`
	WriteTimeout int    `toml:"write_timeout_seconds"`
	IdleTimeout  int    `toml:"idle_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// CatalogConfig points at the static artist/album JSON files
type CatalogConfig struct {
	Dir             string `toml:"dir"`
	WatchForChanges bool   `toml:"watch_for_changes"`
	SearchCacheTTL  string `toml:"search_cache_ttl"`
}

// CartConfig contains cart persistence configuration
type CartConfig struct {
	StorageKey string `toml:"storage_key"`
}

// PlayerConfig contains simulated playback configuration
type PlayerConfig struct {
	TickInterval  string  `toml:"tick_interval"`
	DefaultVolume float64 `toml:"default_volume"`
}

// SessionConfig contains client session configuration
type SessionConfig struct {
	CookieName  string `toml:"cookie_name"`
	IdleTimeout string `toml:"idle_timeout"`
}

// AuthConfig contains account configuration
type AuthConfig struct {
	Enabled           bool    `toml:"enabled"`
	SessionDuration   string  `toml:"session_duration"`
	SecureCookies     bool    `toml:"secure_cookies"`
	AllowRegistration bool    `toml:"allow_registration"`
	RateLimitPerSec   float64 `toml:"rate_limit_per_second"`
	RateLimitBurst    int     `toml:"rate_limit_burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			Host:         "0.0.0.0",
			EnableCORS:   true,
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
		},
		Database: DatabaseConfig{
			Path:           "./drifttapes.db",
			MaxConnections: 5,
		},
		Catalog: CatalogConfig{
			Dir:             "./data",
			WatchForChanges: false,
			SearchCacheTTL:  "10m",
		},
		Cart: CartConfig{
			StorageKey: "drift-tapes-cart",
		},
		Player: PlayerConfig{
			TickInterval:  "250ms",
			DefaultVolume: 0.7,
		},
		Session: SessionConfig{
			CookieName:  "drifttapes_client",
			IdleTimeout: "30m",
		},
		Auth: AuthConfig{
			Enabled:           true,
			SessionDuration:   "24h",
			SecureCookies:     false,
			AllowRegistration: true,
			RateLimitPerSec:   1,
			RateLimitBurst:    5,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Drift Tapes Storefront Configuration
# Catalog data is read from [catalog].dir (artists.json, albums.json).
# Carts are persisted to the SQLite database at [database].path.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Catalog.Dir == "" {
		return fmt.Errorf("catalog directory cannot be empty")
	}
	if _, err := time.ParseDuration(c.Catalog.SearchCacheTTL); err != nil {
		return fmt.Errorf("invalid search cache ttl %q: %w", c.Catalog.SearchCacheTTL, err)
	}

	if c.Cart.StorageKey == "" {
		return fmt.Errorf("cart storage key cannot be empty")
	}

	tick, err := time.ParseDuration(c.Player.TickInterval)
	if err != nil {
		return fmt.Errorf("invalid player tick interval %q: %w", c.Player.TickInterval, err)
	}
	if tick <= 0 {
		return fmt.Errorf("player tick interval must be positive")
	}
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("player default volume must be between 0 and 1")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}
	if _, err := time.ParseDuration(c.Session.IdleTimeout); err != nil {
		return fmt.Errorf("invalid session idle timeout %q: %w", c.Session.IdleTimeout, err)
	}

	if c.Auth.Enabled {
		if _, err := time.ParseDuration(c.Auth.SessionDuration); err != nil {
			return fmt.Errorf("invalid auth session duration %q: %w", c.Auth.SessionDuration, err)
		}
		if c.Auth.RateLimitPerSec <= 0 || c.Auth.RateLimitBurst < 1 {
			return fmt.Errorf("auth rate limit must be positive")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// TickInterval returns the parsed player tick interval. Call after Validate.
func (c *Config) TickInterval() time.Duration {
	d, _ := time.ParseDuration(c.Player.TickInterval)
	return d
}

// SearchCacheTTL returns the parsed search cache TTL. Call after Validate.
func (c *Config) SearchCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Catalog.SearchCacheTTL)
	return d
}

// SessionIdleTimeout returns the parsed client session idle timeout. Call after Validate.
func (c *Config) SessionIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Session.IdleTimeout)
	return d
}

// AuthSessionDuration returns the parsed account session lifetime. Call after Validate.
func (c *Config) AuthSessionDuration() time.Duration {
	d, _ := time.ParseDuration(c.Auth.SessionDuration)
	return d
}
