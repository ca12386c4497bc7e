package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amaumene/streambox/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, storeBackend, cacheBackend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ServerPort:        "0",
		StoreBackend:      storeBackend,
		StoreOpenTimeout:  100 * time.Millisecond,
		StoreOpenRetries:  1,
		EmbedBaseURL:      "https://embed.example",
		DemoUsername:      "demo",
		DemoPassword:      "demo",
		CacheBackend:      cacheBackend,
		CacheTTL:          time.Minute,
		PruneSchedule:     "@hourly",
		CacheWarmSchedule: "@hourly",
		ConfigDir:         dir,
		DatabaseFile:      filepath.Join(dir, "streambox.db"),
		SQLiteFile:        filepath.Join(dir, "streambox.sqlite"),
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestContainerBackends(t *testing.T) {
	tests := []struct {
		store string
		cache string
	}{
		{config.StoreMemory, config.CacheMemory},
		{config.StoreMemory, config.CacheNone},
		{config.StoreBolt, config.CacheMemory},
		{config.StoreSQLite, config.CacheNone},
	}

	for _, tt := range tests {
		t.Run(tt.store+"/"+tt.cache, func(t *testing.T) {
			ctx := context.Background()
			c, err := New(ctx, testConfig(t, tt.store, tt.cache), quietLogger())
			require.NoError(t, err)
			defer c.Close(ctx)

			items, err := c.Service.GetAllContent(ctx)
			require.NoError(t, err)
			assert.Len(t, items, 21)
			for _, item := range items {
				assert.NotEmpty(t, item.Embed, item.ID)
			}
		})
	}
}

func TestContainerWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cfg := testConfig(t, config.StoreMemory, config.CacheRedis)
	cfg.RedisAddr = mr.Addr()

	c, err := New(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer c.Close(ctx)

	require.NoError(t, c.Service.Warm(ctx))
	assert.True(t, mr.Exists(cachePrefix+"content:all"))
}

func TestContainerServesCatalog(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, testConfig(t, config.StoreMemory, config.CacheMemory), quietLogger())
	require.NoError(t, err)
	defer c.Close(ctx)

	rec := httptest.NewRecorder()
	c.NewServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/content?search=witcher", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.NotEmpty(t, items)
	assert.Equal(t, "The Witcher", items[0]["title"])
}

func TestContainerRejectsBadCatalogFile(t *testing.T) {
	cfg := testConfig(t, config.StoreMemory, config.CacheNone)
	cfg.CatalogFile = filepath.Join(cfg.ConfigDir, "missing.json")

	_, err := New(context.Background(), cfg, quietLogger())
	assert.Error(t, err)
}

func TestSchedulerPrunesThroughContainer(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, testConfig(t, config.StoreMemory, config.CacheNone), quietLogger())
	require.NoError(t, err)
	defer c.Close(ctx)

	user, err := c.Service.ResolveDemoUser(ctx)
	require.NoError(t, err)
	_, err = c.Service.AddToUserList(ctx, user.ID, "removed-title")
	require.NoError(t, err)

	c.NewScheduler().RunPrune()

	ids, err := c.Service.GetUserList(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
