package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pointsLedger/internal/model"
	"pointsLedger/internal/storage"
)

// UserStore is an in-memory implementation of storage.AggregateStore.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*model.UserAggregate
}

// NewUserStore creates a new in-memory aggregate store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*model.UserAggregate)}
}

var _ storage.AggregateStore = (*UserStore)(nil)

// EnsureUser creates a zero-balance row if absent.
func (s *UserStore) EnsureUser(_ context.Context, wallet string) error {
	if wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[wallet]; !ok {
		s.users[wallet] = &model.UserAggregate{Wallet: wallet}
	}
	return nil
}

// CreditPoints reads the current total and writes total+delta.
func (s *UserStore) CreditPoints(_ context.Context, wallet string, delta int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[wallet]
	if !ok {
		return storage.ErrNotFound
	}
	next := user.TotalPoints + delta
	if next < 0 {
		return storage.ErrInvalidInput
	}
	user.TotalPoints = next
	ts := at.UTC()
	user.LastActivity = &ts
	return nil
}

// Get returns a copy of the wallet aggregate.
func (s *UserStore) Get(_ context.Context, wallet string) (*model.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *user
	return &c, nil
}

// List returns all aggregates ordered by wallet.
func (s *UserStore) List(_ context.Context) ([]*model.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.UserAggregate, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wallet < out[j].Wallet })
	return out, nil
}

// SetTotal overwrites a wallet total.
func (s *UserStore) SetTotal(_ context.Context, wallet string, total int64) error {
	if total < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[wallet]
	if !ok {
		return storage.ErrNotFound
	}
	user.TotalPoints = total
	return nil
}
