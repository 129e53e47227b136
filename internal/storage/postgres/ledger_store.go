package postgres

import (
	"context"
	"fmt"

	"pointsLedger/internal/model"
	"pointsLedger/internal/storage"
)

// LedgerStore implements storage.LedgerStore on the points_ledger table.
type LedgerStore struct {
	pool *Pool
}

func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

const ledgerColumns = `id, wallet_address, points_earned, source, market_id, bet_id,
	tx_hash, log_index, block_number, metadata, created_at`

// Append inserts the entry unless (source, tx_hash, log_index) already exists.
func (s *LedgerStore) Append(ctx context.Context, entry *model.LedgerEntry) (int64, bool, error) {
	if entry == nil || entry.Wallet == "" || entry.Source == "" {
		return 0, false, storage.ErrInvalidInput
	}

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO points_ledger (
			wallet_address, points_earned, source, market_id, bet_id,
			tx_hash, log_index, block_number, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, tx_hash, log_index) DO NOTHING
		RETURNING id
	`,
		entry.Wallet,
		entry.PointsEarned,
		entry.Source,
		int64(entry.MarketID),
		entry.BetID,
		entry.TxHash,
		int64(entry.LogIndex),
		int64(entry.BlockNumber),
		entry.Metadata,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !isNotFoundError(err) && !isDuplicateKeyError(err) {
		return 0, false, fmt.Errorf("append ledger entry: %w", err)
	}

	// Conflict: report the existing row.
	err = s.pool.QueryRow(ctx, `
		SELECT id FROM points_ledger
		WHERE source = $1 AND tx_hash = $2 AND log_index = $3
	`, entry.Source, entry.TxHash, int64(entry.LogIndex)).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup duplicate ledger entry: %w", err)
	}
	return id, false, nil
}

func (s *LedgerStore) FindLatestBet(ctx context.Context, wallet string, marketID uint64) (*model.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM points_ledger
		WHERE wallet_address = $1 AND market_id = $2 AND source = $3
		ORDER BY id DESC
		LIMIT 1
	`, wallet, int64(marketID), model.SourceBetVolume)

	entry, err := scanEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find latest bet: %w", err)
	}
	return entry, nil
}

func (s *LedgerStore) ListByWallet(ctx context.Context, wallet string) ([]*model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM points_ledger
		WHERE wallet_address = $1
		ORDER BY id ASC
	`, wallet)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *LedgerStore) SumByWallet(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_address, COALESCE(SUM(points_earned), 0)
		FROM points_ledger
		GROUP BY wallet_address
	`)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]int64)
	for rows.Next() {
		var wallet string
		var total int64
		if err := rows.Scan(&wallet, &total); err != nil {
			return nil, fmt.Errorf("scan ledger sum: %w", err)
		}
		sums[wallet] = total
	}
	return sums, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	var marketID, logIndex, blockNumber int64
	if err := row.Scan(
		&e.ID,
		&e.Wallet,
		&e.PointsEarned,
		&e.Source,
		&marketID,
		&e.BetID,
		&e.TxHash,
		&logIndex,
		&blockNumber,
		&e.Metadata,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.MarketID = uint64(marketID)
	e.LogIndex = uint64(logIndex)
	e.BlockNumber = uint64(blockNumber)
	return &e, nil
}
