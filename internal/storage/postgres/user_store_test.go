package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsLedger/internal/storage"
)

func TestUserStore_CreditPoints(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUserStore(pool)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.ErrorIs(t, store.CreditPoints(ctx, "0xabc", 1, at), storage.ErrNotFound)

	require.NoError(t, store.EnsureUser(ctx, "0xabc"))
	require.NoError(t, store.EnsureUser(ctx, "0xabc"))
	require.NoError(t, store.CreditPoints(ctx, "0xabc", 125, at))
	require.NoError(t, store.CreditPoints(ctx, "0xabc", 625, at))

	user, err := store.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(750), user.TotalPoints)
	require.NotNil(t, user.LastActivity)
	assert.True(t, user.LastActivity.Equal(at))

	assert.ErrorIs(t, store.CreditPoints(ctx, "0xabc", -1000, at), storage.ErrInvalidInput)
}

func TestUserStore_ConcurrentCredits(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUserStore(pool)
	ctx := context.Background()
	require.NoError(t, store.EnsureUser(ctx, "0xabc"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.CreditPoints(ctx, "0xabc", 10, time.Now()))
		}()
	}
	wg.Wait()

	user, err := store.Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.TotalPoints)
}

func TestUserStore_ListAndSetTotal(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUserStore(pool)
	ctx := context.Background()

	require.NoError(t, store.EnsureUser(ctx, "0xbbb"))
	require.NoError(t, store.EnsureUser(ctx, "0xaaa"))
	require.NoError(t, store.SetTotal(ctx, "0xbbb", 42))
	assert.ErrorIs(t, store.SetTotal(ctx, "0xccc", 1), storage.ErrNotFound)

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "0xaaa", users[0].Wallet)
	assert.Equal(t, int64(42), users[1].TotalPoints)
}
