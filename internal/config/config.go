package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server
	ServerPort string

	// Logging
	LogLevel  string
	LogFormat string

	// Store
	StoreBackend     string
	StoreOpenTimeout time.Duration // How long a single attempt waits for the bolt file lock
	StoreOpenRetries int

	// Catalog
	CatalogFile  string // Empty means the embedded catalog
	EmbedBaseURL string

	// Demo identity
	DemoUsername string
	DemoPassword string

	// Cache
	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Housekeeping
	PruneSchedule     string
	CacheWarmSchedule string

	// Tracing
	TracingEnabled bool

	// Paths
	ConfigDir    string
	DatabaseFile string // $CONFIG_DIR/streambox.db
	SQLiteFile   string // $CONFIG_DIR/streambox.sqlite
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("STORE_OPEN_TIMEOUT_SECONDS", 1)
	v.SetDefault("STORE_OPEN_RETRIES", 5)
	v.SetDefault("EMBED_BASE_URL", "https://embed.warezcdn.link")
	v.SetDefault("DEMO_USERNAME", "demo")
	v.SetDefault("DEMO_PASSWORD", "demo")
	v.SetDefault("CACHE_BACKEND", CacheMemory)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PRUNE_SCHEDULE", "@hourly")
	v.SetDefault("CACHE_WARM_SCHEDULE", "*/30 * * * *")
	v.SetDefault("TRACING_ENABLED", false)
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	return LoadFrom(viper.GetViper())
}

// LoadFrom builds a Config from an already populated viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "streambox")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	config := &Config{
		ServerPort: v.GetString("SERVER_PORT"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		StoreBackend:     strings.ToLower(v.GetString("STORE_BACKEND")),
		StoreOpenTimeout: time.Duration(v.GetInt("STORE_OPEN_TIMEOUT_SECONDS")) * time.Second,
		StoreOpenRetries: v.GetInt("STORE_OPEN_RETRIES"),

		CatalogFile:  v.GetString("CATALOG_FILE"),
		EmbedBaseURL: v.GetString("EMBED_BASE_URL"),

		DemoUsername: v.GetString("DEMO_USERNAME"),
		DemoPassword: v.GetString("DEMO_PASSWORD"),

		CacheBackend:  strings.ToLower(v.GetString("CACHE_BACKEND")),
		CacheTTL:      time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		PruneSchedule:     v.GetString("PRUNE_SCHEDULE"),
		CacheWarmSchedule: v.GetString("CACHE_WARM_SCHEDULE"),

		TracingEnabled: v.GetBool("TRACING_ENABLED"),

		ConfigDir:    configDir,
		DatabaseFile: filepath.Join(configDir, "streambox.db"),
		SQLiteFile:   filepath.Join(configDir, "streambox.sqlite"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// File-backed stores need the config directory
	if config.StoreBackend != StoreMemory {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return config, nil
}

// Validate checks the values that cannot be defaulted sensibly
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	switch c.StoreBackend {
	case StoreMemory, StoreBolt, StoreSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, bolt, sqlite (got %q)", c.StoreBackend)
	}
	switch c.CacheBackend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of none, memory, redis (got %q)", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if c.StoreOpenTimeout <= 0 {
		return fmt.Errorf("STORE_OPEN_TIMEOUT_SECONDS must be positive")
	}
	if strings.TrimSpace(c.DemoUsername) == "" {
		return fmt.Errorf("DEMO_USERNAME is required")
	}
	return nil
}
