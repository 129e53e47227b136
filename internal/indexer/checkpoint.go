package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pointsLedger/internal/storage"
)

// Checkpoint is the on-disk cursor document.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore is a storage.CursorStore backed by a JSON file.
// Writes go to a temp file first and are renamed into place.
type CheckpointStore struct {
	path string

	mu   sync.Mutex
	last *uint64
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

var _ storage.CursorStore = (*CheckpointStore)(nil)

func (c *CheckpointStore) Load(_ context.Context) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp, ok, err := c.read()
	if err != nil || !ok {
		return 0, ok, err
	}
	block := cp.LastProcessedBlock
	c.last = &block
	return block, true, nil
}

func (c *CheckpointStore) Save(_ context.Context, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil {
		cp, ok, err := c.read()
		if err != nil {
			return err
		}
		if ok {
			prev := cp.LastProcessedBlock
			c.last = &prev
		}
	}
	if c.last != nil && block < *c.last {
		return fmt.Errorf("%w: %d < %d", storage.ErrCursorRegression, block, *c.last)
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		LastProcessedBlock: block,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	c.last = &block
	return nil
}

func (c *CheckpointStore) read() (Checkpoint, bool, error) {
	if c.path == "" {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is required")
	}
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}
