package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStateStore()

	val, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemoryStoreTake(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	val, err := store.Take(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	// consumed: second take finds nothing
	val, err = store.Take(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)
}
