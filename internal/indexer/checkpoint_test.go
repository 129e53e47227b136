package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pointsLedger/internal/storage"
)

func TestCheckpointStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cursor.json")
	ctx := context.Background()

	store := NewCheckpointStore(path)
	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("fresh checkpoint: ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, 120); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	reopened := NewCheckpointStore(path)
	block, ok, err := reopened.Load(ctx)
	if err != nil || !ok || block != 120 {
		t.Fatalf("reload: block=%d ok=%v err=%v", block, ok, err)
	}
}

func TestCheckpointStoreRejectsRegression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	ctx := context.Background()

	if err := NewCheckpointStore(path).Save(ctx, 50); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A new handle must see the persisted value without an explicit Load.
	store := NewCheckpointStore(path)
	if err := store.Save(ctx, 49); !errors.Is(err, storage.ErrCursorRegression) {
		t.Fatalf("expected ErrCursorRegression, got %v", err)
	}
	if err := store.Save(ctx, 50); err != nil {
		t.Fatalf("same block must be accepted: %v", err)
	}
}

func TestCheckpointStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewCheckpointStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}
