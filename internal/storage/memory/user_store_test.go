package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pointsLedger/internal/storage"
)

func TestUserStore_EnsureAndCredit(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := store.CreditPoints(ctx, "0xabc", 10, at); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before EnsureUser, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.EnsureUser(ctx, "0xabc"); err != nil {
			t.Fatalf("EnsureUser failed: %v", err)
		}
	}
	if err := store.CreditPoints(ctx, "0xabc", 125, at); err != nil {
		t.Fatalf("CreditPoints failed: %v", err)
	}
	if err := store.CreditPoints(ctx, "0xabc", 625, at.Add(time.Minute)); err != nil {
		t.Fatalf("CreditPoints failed: %v", err)
	}

	user, err := store.Get(ctx, "0xabc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if user.TotalPoints != 750 {
		t.Errorf("TotalPoints: got %d, want 750", user.TotalPoints)
	}
	if user.LastActivity == nil || !user.LastActivity.Equal(at.Add(time.Minute)) {
		t.Errorf("LastActivity not stamped: %v", user.LastActivity)
	}
}

func TestUserStore_NegativeRejected(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	store.EnsureUser(ctx, "0xabc")
	if err := store.CreditPoints(ctx, "0xabc", -1, time.Now()); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := store.SetTotal(ctx, "0xabc", -5); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUserStore_ListAndSetTotal(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	store.EnsureUser(ctx, "0xbbb")
	store.EnsureUser(ctx, "0xaaa")
	if err := store.SetTotal(ctx, "0xbbb", 42); err != nil {
		t.Fatalf("SetTotal failed: %v", err)
	}
	if err := store.SetTotal(ctx, "0xccc", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	users, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(users) != 2 || users[0].Wallet != "0xaaa" || users[1].TotalPoints != 42 {
		t.Errorf("unexpected list: %+v %+v", users[0], users[1])
	}
}
