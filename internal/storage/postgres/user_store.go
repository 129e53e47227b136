package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pointsLedger/internal/model"
	"pointsLedger/internal/storage"
)

// UserStore implements storage.AggregateStore on the users table.
type UserStore struct {
	pool *Pool
}

func NewUserStore(pool *Pool) *UserStore {
	return &UserStore{pool: pool}
}

var _ storage.AggregateStore = (*UserStore)(nil)

func (s *UserStore) EnsureUser(ctx context.Context, wallet string) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (wallet_address, total_points, created_at, updated_at)
		VALUES ($1, 0, now(), now())
		ON CONFLICT (wallet_address) DO NOTHING
	`, wallet)
	if err != nil && !isDuplicateKeyError(err) {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// CreditPoints locks the row, reads the total and writes total+delta in one transaction.
func (s *UserStore) CreditPoints(ctx context.Context, wallet string, delta int64, at time.Time) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current int64
	err = tx.QueryRow(ctx,
		`SELECT total_points FROM users WHERE wallet_address = $1 FOR UPDATE`,
		wallet,
	).Scan(&current)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read user total: %w", err)
	}

	next := current + delta
	if next < 0 {
		return storage.ErrInvalidInput
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET total_points = $2, last_bet_timestamp = $3, updated_at = now()
		WHERE wallet_address = $1
	`, wallet, next, at.UTC()); err != nil {
		return fmt.Errorf("write user total: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit credit tx: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, wallet string) (*model.UserAggregate, error) {
	var u model.UserAggregate
	err := s.pool.QueryRow(ctx, `
		SELECT wallet_address, total_points, last_bet_timestamp
		FROM users WHERE wallet_address = $1
	`, wallet).Scan(&u.Wallet, &u.TotalPoints, &u.LastActivity)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]*model.UserAggregate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_address, total_points, last_bet_timestamp
		FROM users ORDER BY wallet_address
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.UserAggregate
	for rows.Next() {
		var u model.UserAggregate
		if err := rows.Scan(&u.Wallet, &u.TotalPoints, &u.LastActivity); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *UserStore) SetTotal(ctx context.Context, wallet string, total int64) error {
	if total < 0 {
		return storage.ErrInvalidInput
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET total_points = $2, updated_at = now()
		WHERE wallet_address = $1
	`, wallet, total)
	if err != nil {
		return fmt.Errorf("set user total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
