// Package config provides configuration management for the catalog server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// Store backends.
const (
	StoreBackendMemory = "memory"
	StoreBackendMongo  = "mongo"
)

// Default configuration values.
const (
	DefaultServerPort          = 8080
	DefaultLogLevel            = "info"
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultMetricsEnabled      = true
	DefaultCORSAllowedOrigins  = "*"
	DefaultStoreBackend        = StoreBackendMemory
	DefaultMongoURI            = "mongodb://localhost:27017"
	DefaultMongoDatabase       = "catalog"
	DefaultMongoConnectTimeout = 10 * time.Second
	DefaultRedisChannel        = "region-catalog:items"
	DefaultCollationLocale     = "de"
	DefaultConfirmTimeout      = 60 * time.Second
)

// Environment variable names.
const (
	EnvServerPort          = "APP_SERVER_PORT"
	EnvLogLevel            = "APP_LOG_LEVEL"
	EnvShutdownTimeout     = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled      = "APP_METRICS_ENABLED"
	EnvCORSAllowedOrigins  = "APP_CORS_ALLOWED_ORIGINS"
	EnvStoreBackend        = "APP_STORE_BACKEND"
	EnvMongoURI            = "APP_MONGO_URI"
	EnvMongoDatabase       = "APP_MONGO_DATABASE"
	EnvMongoConnectTimeout = "APP_MONGO_CONNECT_TIMEOUT"
	EnvRedisAddr           = "APP_REDIS_ADDR"
	EnvRedisChannel        = "APP_REDIS_CHANNEL"
	EnvRegions             = "APP_REGIONS"
	EnvCollationLocale     = "APP_COLLATION_LOCALE"
	EnvConfirmTimeout      = "APP_CONFIRM_TIMEOUT"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// CORSAllowedOrigins lists browser origins allowed to call the API; "*" allows any.
	CORSAllowedOrigins []string

	// Store backend: memory or mongo.
	StoreBackend        string
	MongoURI            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration

	// Change events are shared through Redis when RedisAddr is set.
	RedisAddr    string
	RedisChannel string

	// Regions seeded at startup (format: "id1:name1,id2:name2").
	Regions []model.Region

	// Catalog sessions.
	CollationLocale string
	ConfirmTimeout  time.Duration
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidCORSOrigins     = errors.New("at least one CORS origin must be allowed")
	ErrInvalidStoreBackend    = errors.New("store backend must be one of: memory, mongo")
	ErrInvalidMongoConfig     = errors.New(
		"mongo URI and database must be set when store backend is mongo",
	)
	ErrInvalidMongoTimeout    = errors.New("mongo connect timeout must be positive")
	ErrInvalidConfirmTimeout  = errors.New("confirm timeout must be positive")
	ErrInvalidCollationLocale = errors.New("collation locale must not be empty")
	ErrInvalidRegions         = errors.New("regions must be a list of id:name pairs")
	ErrDuplicateRegion        = errors.New("region id listed more than once")
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:          DefaultServerPort,
		LogLevel:            DefaultLogLevel,
		ShutdownTimeout:     DefaultShutdownTimeout,
		MetricsEnabled:      DefaultMetricsEnabled,
		CORSAllowedOrigins:  []string{DefaultCORSAllowedOrigins},
		StoreBackend:        DefaultStoreBackend,
		MongoURI:            DefaultMongoURI,
		MongoDatabase:       DefaultMongoDatabase,
		MongoConnectTimeout: DefaultMongoConnectTimeout,
		RedisChannel:        DefaultRedisChannel,
		CollationLocale:     DefaultCollationLocale,
		ConfirmTimeout:      DefaultConfirmTimeout,
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadStoreEnv(); err != nil {
		return err
	}

	return c.loadCatalogEnv()
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val := os.Getenv(EnvCORSAllowedOrigins); val != "" {
		origins := splitList(val)
		if len(origins) == 0 {
			return fmt.Errorf("parsing %s: %w", EnvCORSAllowedOrigins, ErrInvalidCORSOrigins)
		}
		c.CORSAllowedOrigins = origins
	}

	return nil
}

// splitList splits a comma separated list, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadStoreEnv loads store and event bus environment variables.
func (c *Config) loadStoreEnv() error {
	if val := os.Getenv(EnvStoreBackend); val != "" {
		c.StoreBackend = val
	}

	if val := os.Getenv(EnvMongoURI); val != "" {
		c.MongoURI = val
	}

	if val := os.Getenv(EnvMongoDatabase); val != "" {
		c.MongoDatabase = val
	}

	if val := os.Getenv(EnvMongoConnectTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMongoConnectTimeout, err)
		}
		c.MongoConnectTimeout = timeout
	}

	if val := os.Getenv(EnvRedisAddr); val != "" {
		c.RedisAddr = val
	}

	if val := os.Getenv(EnvRedisChannel); val != "" {
		c.RedisChannel = val
	}

	return nil
}

// loadCatalogEnv loads region and session environment variables.
func (c *Config) loadCatalogEnv() error {
	if val := os.Getenv(EnvRegions); val != "" {
		regions, err := ParseRegions(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvRegions, err)
		}
		c.Regions = regions
	}

	if val := os.Getenv(EnvCollationLocale); val != "" {
		c.CollationLocale = val
	}

	if val := os.Getenv(EnvConfirmTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvConfirmTimeout, err)
		}
		c.ConfirmTimeout = timeout
	}

	return nil
}

// ParseRegions parses a comma separated list of id:name pairs. Blank entries
// are skipped; names may contain colons.
func ParseRegions(s string) ([]model.Region, error) {
	var regions []model.Region
	seen := make(map[string]bool)

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRegions, entry)
		}

		id := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		if id == "" || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRegions, entry)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRegion, id)
		}
		seen[id] = true

		regions = append(regions, model.Region{ID: id, Name: name})
	}

	return regions, nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return c.validateCatalog()
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStore validates the store backend settings.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
		return nil
	case StoreBackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return ErrInvalidMongoConfig
		}
		if c.MongoConnectTimeout <= 0 {
			return ErrInvalidMongoTimeout
		}
		return nil
	default:
		return ErrInvalidStoreBackend
	}
}

// validateCatalog validates region and session settings.
func (c *Config) validateCatalog() error {
	if c.CollationLocale == "" {
		return ErrInvalidCollationLocale
	}

	if c.ConfirmTimeout <= 0 {
		return ErrInvalidConfirmTimeout
	}

	seen := make(map[string]bool, len(c.Regions))
	for _, r := range c.Regions {
		if r.ID == "" || r.Name == "" {
			return ErrInvalidRegions
		}
		if seen[r.ID] {
			return ErrDuplicateRegion
		}
		seen[r.ID] = true
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// RedisEnabled reports whether change events go through Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
