package points

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"pointsLedger/internal/storage"
)

// Drift is a wallet whose aggregate differs from its ledger sum.
type Drift struct {
	Wallet    string
	LedgerSum int64
	Aggregate int64
	Missing   bool // no aggregate row
}

// Report is the result of one reconciliation pass.
type Report struct {
	Wallets int
	Drifts  []Drift
	Fixed   int
}

// Reconciler compares aggregates against the ledger. Run it while no
// poller is writing.
type Reconciler struct {
	ledger storage.LedgerStore
	users  storage.AggregateStore
	logger *zap.Logger
}

func NewReconciler(ledger storage.LedgerStore, users storage.AggregateStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{ledger: ledger, users: users, logger: logger}
}

// Run reports drift. With fix, each drifting aggregate is set to its ledger sum.
func (r *Reconciler) Run(ctx context.Context, fix bool) (*Report, error) {
	sums, err := r.ledger.SumByWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	users, err := r.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}

	totals := make(map[string]int64, len(users))
	for _, u := range users {
		totals[u.Wallet] = u.TotalPoints
	}

	wallets := make(map[string]struct{}, len(sums)+len(totals))
	for w := range sums {
		wallets[w] = struct{}{}
	}
	for w := range totals {
		wallets[w] = struct{}{}
	}

	report := &Report{Wallets: len(wallets)}
	for w := range wallets {
		sum := sums[w]
		total, ok := totals[w]
		if ok && total == sum {
			continue
		}
		// A wallet with zero ledger points needs no aggregate row.
		if !ok && sum == 0 {
			continue
		}
		report.Drifts = append(report.Drifts, Drift{Wallet: w, LedgerSum: sum, Aggregate: total, Missing: !ok})
	}
	sort.Slice(report.Drifts, func(i, j int) bool { return report.Drifts[i].Wallet < report.Drifts[j].Wallet })

	for _, d := range report.Drifts {
		r.logger.Warn("aggregate drift",
			zap.String("wallet", d.Wallet),
			zap.Int64("ledger_sum", d.LedgerSum),
			zap.Int64("aggregate", d.Aggregate),
			zap.Bool("missing", d.Missing),
		)
		if !fix {
			continue
		}
		if err := r.rebuild(ctx, d); err != nil {
			return report, err
		}
		report.Fixed++
	}
	return report, nil
}

func (r *Reconciler) rebuild(ctx context.Context, d Drift) error {
	if err := r.users.EnsureUser(ctx, d.Wallet); err != nil {
		return fmt.Errorf("ensure user %s: %w", d.Wallet, err)
	}
	if err := r.users.SetTotal(ctx, d.Wallet, d.LedgerSum); err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			return fmt.Errorf("ledger sum for %s is negative (%d): %w", d.Wallet, d.LedgerSum, err)
		}
		return fmt.Errorf("set total for %s: %w", d.Wallet, err)
	}
	r.logger.Info("aggregate rebuilt", zap.String("wallet", d.Wallet), zap.Int64("total", d.LedgerSum))
	return nil
}
