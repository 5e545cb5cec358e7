package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStore_CheckAndSetReturnsStoredResult(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, store.prefix+"fp", `{"id":"run-1"}`, time.Minute).Err())

	exists, resp, err := store.CheckAndSet(ctx, "fp", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, `{"id":"run-1"}`, string(resp))
}

func TestIdempotencyStore_CheckAndSetClaimsNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, resp, err := store.CheckAndSet(ctx, "pending", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, resp)

	val, err := mr.Get(store.prefix + "pending")
	require.NoError(t, err)
	assert.Equal(t, processingMarker, val)
	assert.Equal(t, time.Minute, mr.TTL(store.prefix+"pending"))

	exists, resp, err = store.CheckAndSet(ctx, "pending", nil, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, processingMarker, string(resp))
}

func TestIdempotencyStore_CheckAndSetWithResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "fp", []byte("done"), time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)

	val, err := mr.Get(store.prefix + "fp")
	require.NoError(t, err)
	assert.Equal(t, "done", val)
}

func TestIdempotencyStore_ClaimExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "fp", nil, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	exists, _, err := store.CheckAndSet(ctx, "fp", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdempotencyStore_Update(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "fp", nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, "fp", []byte("done"), time.Hour))

	val, err := mr.Get(store.prefix + "fp")
	require.NoError(t, err)
	assert.Equal(t, "done", val)
	assert.Equal(t, time.Hour, mr.TTL(store.prefix+"fp"))
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	_, _, err := store.CheckAndSet(ctx, "fp", nil, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "fp"))

	assert.False(t, mr.Exists(store.prefix+"fp"))

	exists, _, err := store.CheckAndSet(ctx, "fp", nil, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdempotencyStore_ServerDown(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer client.Close()
	mr.Close()

	store := NewIdempotencyStore(client)

	_, _, err := store.CheckAndSet(context.Background(), "fp", nil, time.Minute)
	assert.Error(t, err)
}

func TestIdempotencyStore_ReclaimReturnsWinnerValue(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	fullKey := store.prefix + "raced"
	require.NoError(t, client.Set(ctx, fullKey, processingMarker, time.Minute).Err())

	exists, resp, err := store.reclaim(ctx, fullKey, processingMarker, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, processingMarker, string(resp))

	require.NoError(t, client.Set(ctx, fullKey, `{"id":"run-2"}`, time.Minute).Err())

	exists, resp, err = store.reclaim(ctx, fullKey, processingMarker, time.Minute)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, `{"id":"run-2"}`, string(resp))
}

func TestIdempotencyStore_ReclaimClaimsFreeKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	fullKey := store.prefix + "free"
	exists, resp, err := store.reclaim(ctx, fullKey, processingMarker, time.Minute)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, resp)

	stored, err := client.Get(ctx, fullKey).Result()
	require.NoError(t, err)
	assert.Equal(t, processingMarker, stored)
}
