package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pointsLedger/internal/model"
	"pointsLedger/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu      sync.RWMutex
	entries []*model.LedgerEntry
	keys    map[string]int64 // idempotency key -> entry id
	now     func() time.Time
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		keys: make(map[string]int64),
		now:  time.Now,
	}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

func entryKey(e *model.LedgerEntry) string {
	tx := ""
	if e.TxHash != nil {
		tx = *e.TxHash
	}
	return fmt.Sprintf("%s|%s|%d", e.Source, tx, e.LogIndex)
}

// Append inserts an entry. A replayed key returns created=false.
func (s *LedgerStore) Append(_ context.Context, entry *model.LedgerEntry) (int64, bool, error) {
	if entry == nil || entry.Wallet == "" || entry.Source == "" {
		return 0, false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries without a tx hash have no replay identity and are always new.
	key := entryKey(entry)
	if entry.TxHash != nil {
		if id, exists := s.keys[key]; exists {
			return id, false, nil
		}
	}

	stored := cloneEntry(entry)
	stored.ID = int64(len(s.entries) + 1)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.entries = append(s.entries, stored)
	if entry.TxHash != nil {
		s.keys[key] = stored.ID
	}
	return stored.ID, true, nil
}

// FindLatestBet returns the bet_volume entry with the highest id for wallet and market.
func (s *LedgerStore) FindLatestBet(_ context.Context, wallet string, marketID uint64) (*model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.Wallet == wallet && e.MarketID == marketID && e.Source == model.SourceBetVolume {
			return cloneEntry(e), nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListByWallet returns all entries for a wallet ordered by id.
func (s *LedgerStore) ListByWallet(_ context.Context, wallet string) ([]*model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.LedgerEntry
	for _, e := range s.entries {
		if e.Wallet == wallet {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

// SumByWallet returns the points sum per wallet.
func (s *LedgerStore) SumByWallet(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int64)
	for _, e := range s.entries {
		sums[e.Wallet] += e.PointsEarned
	}
	return sums, nil
}

// Len returns the number of entries.
func (s *LedgerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntry(e *model.LedgerEntry) *model.LedgerEntry {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.TxHash != nil {
		tx := *e.TxHash
		c.TxHash = &tx
	}
	if e.BetID != nil {
		id := *e.BetID
		c.BetID = &id
	}
	return &c
}
