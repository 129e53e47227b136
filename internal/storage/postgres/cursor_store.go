package postgres

import (
	"context"
	"fmt"

	"pointsLedger/internal/storage"
)

// CursorStore keeps the last processed block in the indexer_state table.
type CursorStore struct {
	pool *Pool
	name string
}

func NewCursorStore(pool *Pool, name string) *CursorStore {
	return &CursorStore{pool: pool, name: name}
}

var _ storage.CursorStore = (*CursorStore)(nil)

// Load returns last_processed_block for the cursor name.
func (s *CursorStore) Load(ctx context.Context) (uint64, bool, error) {
	if s.name == "" {
		return 0, false, fmt.Errorf("cursor name required")
	}
	var block int64
	err := s.pool.QueryRow(ctx,
		`SELECT last_processed_block FROM indexer_state WHERE name = $1`, s.name,
	).Scan(&block)
	if err != nil {
		if isNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load cursor: %w", err)
	}
	return uint64(block), true, nil
}

// Save upserts the cursor. The WHERE guard refuses to move it backwards.
func (s *CursorStore) Save(ctx context.Context, block uint64) error {
	if s.name == "" {
		return fmt.Errorf("cursor name required")
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
		WHERE indexer_state.last_processed_block <= EXCLUDED.last_processed_block
	`, s.name, int64(block))
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCursorRegression
	}
	return nil
}
