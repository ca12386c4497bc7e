package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.Set("CONFIG_DIR", t.TempDir())
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newViper(t)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, time.Second, cfg.StoreOpenTimeout)
	assert.Equal(t, 5, cfg.StoreOpenRetries)
	assert.Equal(t, "https://embed.warezcdn.link", cfg.EmbedBaseURL)
	assert.Equal(t, "demo", cfg.DemoUsername)
	assert.Equal(t, "demo", cfg.DemoPassword)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "@hourly", cfg.PruneSchedule)
	assert.Equal(t, "*/30 * * * *", cfg.CacheWarmSchedule)
	assert.False(t, cfg.TracingEnabled)
	assert.Empty(t, cfg.CatalogFile)
}

func TestLoadDerivedPaths(t *testing.T) {
	v := newViper(t)
	dir := v.GetString("CONFIG_DIR")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "streambox.db"), cfg.DatabaseFile)
	assert.Equal(t, filepath.Join(dir, "streambox.sqlite"), cfg.SQLiteFile)
}

func TestLoadOverrides(t *testing.T) {
	v := newViper(t)
	v.Set("SERVER_PORT", "9090")
	v.Set("STORE_BACKEND", "BOLT")
	v.Set("CACHE_BACKEND", "redis")
	v.Set("CACHE_TTL_SECONDS", 60)
	v.Set("REDIS_DB", 3)
	v.Set("TRACING_ENABLED", true)
	v.Set("LOG_FORMAT", "JSON")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, StoreBolt, cfg.StoreBackend)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.DirExists(t, cfg.ConfigDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"unknown store", "STORE_BACKEND", "postgres"},
		{"unknown cache", "CACHE_BACKEND", "memcached"},
		{"empty port", "SERVER_PORT", ""},
		{"zero ttl", "CACHE_TTL_SECONDS", 0},
		{"empty demo user", "DEMO_USERNAME", "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)

			_, err := LoadFrom(v)
			assert.Error(t, err)
		})
	}
}
