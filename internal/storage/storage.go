package storage

import (
	"context"
	"time"

	"pointsLedger/internal/model"
)

// LedgerStore is the append-only record of points awards.
type LedgerStore interface {
	// Append inserts an entry keyed by (source, tx_hash, log_index).
	// A replayed entry returns created=false and a nil error.
	Append(ctx context.Context, entry *model.LedgerEntry) (id int64, created bool, err error)

	// FindLatestBet returns the most recent bet_volume entry for wallet and market.
	// Returns ErrNotFound if the wallet never bet on the market.
	FindLatestBet(ctx context.Context, wallet string, marketID uint64) (*model.LedgerEntry, error)

	// ListByWallet returns all entries for a wallet ordered by id ASC.
	ListByWallet(ctx context.Context, wallet string) ([]*model.LedgerEntry, error)

	// SumByWallet returns the points sum of every wallet present in the ledger.
	SumByWallet(ctx context.Context) (map[string]int64, error)
}

// AggregateStore holds the per-wallet totals derived from the ledger.
type AggregateStore interface {
	// EnsureUser creates a zero-balance row if absent. Safe to call repeatedly.
	EnsureUser(ctx context.Context, wallet string) error

	// CreditPoints adds delta to the wallet total and stamps last activity.
	// Returns ErrNotFound if the wallet row does not exist.
	CreditPoints(ctx context.Context, wallet string, delta int64, at time.Time) error

	// Get returns the aggregate for a wallet. Returns ErrNotFound if absent.
	Get(ctx context.Context, wallet string) (*model.UserAggregate, error)

	// List returns all aggregates ordered by wallet.
	List(ctx context.Context) ([]*model.UserAggregate, error)

	// SetTotal overwrites a wallet total. Only the ledger rebuild uses it.
	SetTotal(ctx context.Context, wallet string, total int64) error
}

// CursorStore persists the last fully processed block.
type CursorStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

// LogSink archives raw log records.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}
