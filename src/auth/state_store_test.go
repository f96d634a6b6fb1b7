package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStateStore(t *testing.T) (*StateStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return NewStateStore(client, 10*time.Minute), mr
}

func TestStateStore_GenerateState(t *testing.T) {
	store, mr := setupTestStateStore(t)
	defer mr.Close()

	first, err := store.GenerateState()
	require.NoError(t, err)
	second, err := store.GenerateState()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestStateStore_SaveAndConsume(t *testing.T) {
	store, mr := setupTestStateStore(t)
	defer mr.Close()

	ctx := context.Background()

	state, err := store.GenerateState()
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, state))

	valid, err := store.ConsumeState(ctx, state)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestStateStore_ConsumeIsSingleUse(t *testing.T) {
	store, mr := setupTestStateStore(t)
	defer mr.Close()

	ctx := context.Background()

	state, err := store.GenerateState()
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, state))

	valid, err := store.ConsumeState(ctx, state)
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = store.ConsumeState(ctx, state)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestStateStore_ConsumeUnknownState(t *testing.T) {
	store, mr := setupTestStateStore(t)
	defer mr.Close()

	valid, err := store.ConsumeState(context.Background(), "never-issued")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestStateStore_ConsumeExpiredState(t *testing.T) {
	store, mr := setupTestStateStore(t)
	defer mr.Close()

	ctx := context.Background()

	state, err := store.GenerateState()
	require.NoError(t, err)
	require.NoError(t, store.SaveState(ctx, state))

	mr.FastForward(11 * time.Minute)

	valid, err := store.ConsumeState(ctx, state)
	require.NoError(t, err)
	assert.False(t, valid)
}
