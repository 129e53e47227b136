package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsLedger/internal/storage"
)

func TestCursorStore_SaveLoad(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCursorStore(pool, "market")
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, 100))
	require.NoError(t, store.Save(ctx, 100))
	require.NoError(t, store.Save(ctx, 150))
	assert.ErrorIs(t, store.Save(ctx, 120), storage.ErrCursorRegression)

	block, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(150), block)

	other := NewCursorStore(pool, "other")
	_, ok, err = other.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
