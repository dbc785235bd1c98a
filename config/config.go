package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"

	// APIBaseURL is where the MCP server reaches the JSON API.
	APIBaseURL string `yaml:"api_base_url"` // default: "http://localhost:8080"
}

// FetchConfig controls how pages are downloaded.
type FetchConfig struct {
	// Timeout bounds a single fetch, connection and body read included.
	Timeout time.Duration `yaml:"timeout"` // default: 10s

	UserAgent string `yaml:"user_agent"`

	// TLSFingerprint dials TLS with a Chrome ClientHello instead of Go's.
	TLSFingerprint bool `yaml:"tls_fingerprint"` // default: true

	// Proxy is an optional http:// or https:// proxy URL.
	Proxy string `yaml:"proxy"`

	MaxBodyBytes int64 `yaml:"max_body_bytes"` // default: 10 MiB
	MaxRedirects int   `yaml:"max_redirects"`  // default: 10
}

// StoreConfig selects and configures the persistence adapter.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | file | mongo | memory; default: sqlite

	// SQLitePath is the database file; ":memory:" keeps it in-process.
	SQLitePath string `yaml:"sqlite_path"` // default: "pagescrape.db"

	// FileDir holds one JSON document per record for the file driver.
	FileDir string `yaml:"file_dir"` // default: "data"

	MongoURI      string `yaml:"mongo_uri"`      // default: "mongodb://localhost:27017"
	MongoDatabase string `yaml:"mongo_database"` // default: "pagescrape"

	// MemoryMaxEntries bounds the memory driver; oldest records are evicted.
	MemoryMaxEntries int `yaml:"memory_max_entries"` // default: 1000
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"` // default: false
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key; 0 disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 5

	// Burst is the maximum burst size per API key.
	Burst int `yaml:"burst"` // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// WebhookConfig enables completion notifications. Empty URL disables them.
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Secret  string        `yaml:"secret"`
	Timeout time.Duration `yaml:"timeout"` // default: 10s
}

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			Mode:       "release",
			APIBaseURL: "http://localhost:8080",
		},
		Fetch: FetchConfig{
			Timeout:        10 * time.Second,
			UserAgent:      DefaultUserAgent,
			TLSFingerprint: true,
			MaxBodyBytes:   10 << 20,
			MaxRedirects:   10,
		},
		Store: StoreConfig{
			Driver:           DriverSQLite,
			SQLitePath:       "pagescrape.db",
			FileDir:          "data",
			MongoURI:         "mongodb://localhost:27017",
			MongoDatabase:    "pagescrape",
			MemoryMaxEntries: 1000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration from the defaults, then the YAML file named by
// PAGESCRAPE_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("PAGESCRAPE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML document at path. Keys absent from the file keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("PAGESCRAPE_HOST", c.Server.Host)
	c.Server.Port = envIntOr("PAGESCRAPE_PORT", c.Server.Port)
	c.Server.Mode = envOr("PAGESCRAPE_MODE", c.Server.Mode)
	c.Server.APIBaseURL = envOr("PAGESCRAPE_API_URL", c.Server.APIBaseURL)

	c.Fetch.Timeout = envDurationOr("PAGESCRAPE_FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.UserAgent = envOr("PAGESCRAPE_USER_AGENT", c.Fetch.UserAgent)
	c.Fetch.TLSFingerprint = envBoolOr("PAGESCRAPE_TLS_FINGERPRINT", c.Fetch.TLSFingerprint)
	c.Fetch.Proxy = envOr("PAGESCRAPE_PROXY", c.Fetch.Proxy)
	c.Fetch.MaxBodyBytes = int64(envIntOr("PAGESCRAPE_MAX_BODY_BYTES", int(c.Fetch.MaxBodyBytes)))
	c.Fetch.MaxRedirects = envIntOr("PAGESCRAPE_MAX_REDIRECTS", c.Fetch.MaxRedirects)

	c.Store.Driver = envOr("PAGESCRAPE_STORE_DRIVER", c.Store.Driver)
	c.Store.SQLitePath = envOr("PAGESCRAPE_SQLITE_PATH", c.Store.SQLitePath)
	c.Store.FileDir = envOr("PAGESCRAPE_FILE_DIR", c.Store.FileDir)
	c.Store.MongoURI = envOr("PAGESCRAPE_MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDatabase = envOr("PAGESCRAPE_MONGO_DATABASE", c.Store.MongoDatabase)
	c.Store.MemoryMaxEntries = envIntOr("PAGESCRAPE_MEMORY_MAX_ENTRIES", c.Store.MemoryMaxEntries)

	c.Auth.Enabled = envBoolOr("PAGESCRAPE_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.APIKeys = envSliceOr("PAGESCRAPE_API_KEYS", c.Auth.APIKeys)

	c.RateLimit.RequestsPerSecond = envFloatOr("PAGESCRAPE_RATE_RPS", c.RateLimit.RequestsPerSecond)
	c.RateLimit.Burst = envIntOr("PAGESCRAPE_RATE_BURST", c.RateLimit.Burst)

	c.Log.Level = envOr("PAGESCRAPE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("PAGESCRAPE_LOG_FORMAT", c.Log.Format)

	c.Webhook.URL = envOr("PAGESCRAPE_WEBHOOK_URL", c.Webhook.URL)
	c.Webhook.Secret = envOr("PAGESCRAPE_WEBHOOK_SECRET", c.Webhook.Secret)
	c.Webhook.Timeout = envDurationOr("PAGESCRAPE_WEBHOOK_TIMEOUT", c.Webhook.Timeout)
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverFile, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("config: fetch timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: max body bytes must be positive, got %d", c.Fetch.MaxBodyBytes)
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("config: auth enabled but no API keys configured")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
