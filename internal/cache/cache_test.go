package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string   `json:"id"`
	Names []string `json:"names"`
}

func exerciseCache(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	var got []item
	hit, err := c.Get(ctx, "content:all", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []item{{ID: "m1", Names: []string{"a", "b"}}, {ID: "s1"}}
	require.NoError(t, c.Set(ctx, "content:all", want))

	hit, err = c.Get(ctx, "content:all", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want, got)

	// Mutating a decoded value must not leak into the next hit
	got[0].Names[0] = "changed"
	var again []item
	_, err = c.Get(ctx, "content:all", &again)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Names[0])

	require.NoError(t, c.Flush(ctx))
	hit, err = c.Get(ctx, "content:all", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemory(time.Minute))
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemory(10 * time.Millisecond)
	require.NoError(t, c.Set(context.Background(), "k", item{ID: "x"}))

	time.Sleep(30 * time.Millisecond)

	var got item
	hit, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache(t *testing.T) {
	srv := miniredis.RunT(t)

	c, err := NewRedis(context.Background(), RedisOptions{Addr: srv.Addr()}, "streambox:", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	exerciseCache(t, c)
}

func TestRedisCacheUsesPrefixAndTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedis(ctx, RedisOptions{Addr: srv.Addr()}, "streambox:", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, srv.Set("other:key", "untouched"))
	require.NoError(t, c.Set(ctx, "content:featured", []item{{ID: "m1"}}))

	assert.True(t, srv.Exists("streambox:content:featured"))
	assert.Equal(t, time.Minute, srv.TTL("streambox:content:featured"))

	require.NoError(t, c.Flush(ctx))
	assert.False(t, srv.Exists("streambox:content:featured"))
	assert.True(t, srv.Exists("other:key"))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Options{Backend: "memcached"})
	assert.Error(t, err)

	c, err := New(context.Background(), Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)
}
