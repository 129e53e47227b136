package memory

import (
	"context"
	"sync"

	"pointsLedger/internal/storage"
)

// CursorStore holds the cursor in process memory. It does not survive restarts.
type CursorStore struct {
	mu    sync.Mutex
	block uint64
	set   bool
}

func NewCursorStore() *CursorStore {
	return &CursorStore{}
}

var _ storage.CursorStore = (*CursorStore)(nil)

func (s *CursorStore) Load(_ context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.block, s.set, nil
}

func (s *CursorStore) Save(_ context.Context, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && block < s.block {
		return storage.ErrCursorRegression
	}
	s.block = block
	s.set = true
	return nil
}
