package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleCookies = []Cookie{
	{Name: "sessionid", Value: "abc", Domain: ".tiktok.com", Path: "/", Secure: true, HttpOnly: true, SameSite: "None"},
	{Name: "tt_csrf_token", Value: "xyz", Domain: "www.tiktok.com", Path: "/", Expires: 1893456000},
}

func TestFileCookieStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileCookieStore(filepath.Join(t.TempDir(), "state", "cookies.json"))

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoCookies)

	require.NoError(t, store.Save(ctx, sampleCookies))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCookies, loaded)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileCookieStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"half`), 0o600))

	_, err := NewFileCookieStore(path).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCookies)
}

func TestFileCookieStoreWritesJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, NewFileCookieStore(path).Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestRedisCookieStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := NewRedisCookieStore(client, "me@example.com", time.Hour)

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNoCookies)

	require.NoError(t, store.Save(ctx, sampleCookies))
	assert.True(t, mr.Exists("cookies:me@example.com"))
	assert.Equal(t, time.Hour, mr.TTL("cookies:me@example.com"))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleCookies, loaded)
}

func TestRedisCookieStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	store := NewRedisCookieStore(client, "me", time.Minute)

	require.NoError(t, store.Save(ctx, sampleCookies))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoCookies)
}

func TestRedisCookieStoreAccountsAreIsolated(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)

	require.NoError(t, NewRedisCookieStore(client, "alice", time.Hour).Save(ctx, sampleCookies[:1]))

	_, err := NewRedisCookieStore(client, "bob", time.Hour).Load(ctx)
	assert.ErrorIs(t, err, ErrNoCookies)
}

func TestRedisCookieStorePing(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisCookieStore(client, "me", time.Hour)

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, store.Ping(ctx))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisClient(ctx, addr, "", 0)
	assert.Error(t, err)
}
