package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirasaad/cashfake/pkg/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdempotencyCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemoryIdempotencyCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	owner := uuid.New()
	rec := cache.Record{EntryID: uuid.New(), CreatedAt: now}

	got, err := c.Get(ctx, owner, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, owner, "k", rec, time.Minute))
	got, err = c.Get(ctx, owner, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.EntryID, got.EntryID)

	other, err := c.Get(ctx, uuid.New(), "k")
	require.NoError(t, err)
	assert.Nil(t, other, "keys are scoped per owner")

	now = now.Add(2 * time.Minute)
	got, err = c.Get(ctx, owner, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisIdempotencyCache(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	ctx := context.Background()
	c := NewRedisIdempotencyCache(&redis.Options{Addr: mr.Addr()}, "cashfake:", slog.Default())
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	owner := uuid.New()
	rec := cache.Record{EntryID: uuid.New(), CreatedAt: time.Now().UTC().Truncate(time.Second)}

	got, err := c.Get(ctx, owner, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, owner, "k", rec, time.Hour))
	assert.True(t, mr.Exists("cashfake:idem:"+owner.String()+":k"))

	got, err = c.Get(ctx, owner, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.EntryID, got.EntryID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	mr.FastForward(2 * time.Hour)
	got, err = c.Get(ctx, owner, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisIdempotencyCache_FromURL(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	c, err := NewRedisIdempotencyCacheFromURL("redis://"+mr.Addr()+"/0", "", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))

	_, err = NewRedisIdempotencyCacheFromURL("::not a url", "", slog.Default())
	assert.Error(t, err)
}

func TestRedisIdempotencyCache_Unavailable(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	c := NewRedisIdempotencyCache(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}, "", slog.Default())
	t.Cleanup(func() { _ = c.Close() })
	mr.Close()

	_, err := c.Get(context.Background(), uuid.New(), "k")
	assert.Error(t, err)
}
