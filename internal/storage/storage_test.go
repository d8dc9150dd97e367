package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every adapter must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "undhyu-cart")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "undhyu-cart", []byte(`[{"id":"a"}]`)))
	got, err := s.Get(ctx, "undhyu-cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, s.Set(ctx, "undhyu-cart", []byte(`[]`)))
	got, err = s.Get(ctx, "undhyu-cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Delete(ctx, "undhyu-cart"))
	_, err = s.Get(ctx, "undhyu-cart")
	require.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, s.Delete(ctx, "nonexistent"))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLite(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "undhyu.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.RunMigrations())

	exerciseStore(t, s)
}

func TestSQLite_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "undhyu.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	require.NoError(t, s.Set(context.Background(), "orders", []byte(`[1]`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.RunMigrations())

	got, err := reopened.Get(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func setupTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedis(t *testing.T) {
	s, _ := setupTestRedis(t, 0)
	exerciseStore(t, s)
}

func TestRedis_KeyPrefixAndTTL(t *testing.T) {
	s, mr := setupTestRedis(t, time.Hour)
	require.NoError(t, s.Set(context.Background(), "undhyu-cart", []byte(`[]`)))

	assert.True(t, mr.Exists("undhyu:undhyu-cart"))
	assert.Equal(t, time.Hour, mr.TTL("undhyu:undhyu-cart"))
}

func TestRedis_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t, 0)
	mr.Close()

	_, err := s.Get(context.Background(), "undhyu-cart")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "redis get failed")
}

func TestScoped(t *testing.T) {
	mem := NewMemory()
	exerciseStore(t, Scoped(mem, "shopper-1"))

	ctx := context.Background()
	a := Scoped(mem, "shopper-a")
	b := Scoped(mem, "shopper-b")
	require.NoError(t, a.Set(ctx, "undhyu-cart", []byte("A")))
	require.NoError(t, b.Set(ctx, "undhyu-cart", []byte("B")))

	got, err := a.Get(ctx, "undhyu-cart")
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))

	raw, err := mem.Get(ctx, "shopper-b:undhyu-cart")
	require.NoError(t, err)
	assert.Equal(t, "B", string(raw))
}
