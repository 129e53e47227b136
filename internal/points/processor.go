package points

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pointsLedger/internal/model"
	"pointsLedger/internal/observability"
	"pointsLedger/internal/storage"
)

// Outcome reports what Apply did with an event. None of them is an error.
type Outcome string

const (
	OutcomeAwarded    Outcome = "awarded"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeNoBet      Outcome = "no_bet"
	OutcomeZeroPayout Outcome = "zero_payout"
)

// Processor applies domain events to the ledger and the aggregates.
// It is not safe for concurrent use: callers serialize Apply.
type Processor struct {
	ledger  storage.LedgerStore
	users   storage.AggregateStore
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewProcessor(ledger storage.LedgerStore, users storage.AggregateStore, logger *zap.Logger, metrics *observability.Metrics) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		ledger:  ledger,
		users:   users,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// WalletKey is the canonical wallet form stored in the ledger and aggregates.
func WalletKey(event model.DomainEvent) string {
	return strings.ToLower(event.Wallet.Hex())
}

// Apply processes one event. Errors are retryable. When the append succeeded
// but the credit failed, a replay reports OutcomeDuplicate and the aggregate
// is repaired by Reconciler.
func (p *Processor) Apply(ctx context.Context, event model.DomainEvent) (Outcome, error) {
	var (
		outcome Outcome
		err     error
	)
	switch event.Kind {
	case model.EventBetPlaced:
		outcome, err = p.applyBet(ctx, event)
	case model.EventWinningsClaimed:
		outcome, err = p.applyWin(ctx, event)
	default:
		return "", fmt.Errorf("unknown event kind %q", event.Kind)
	}
	if err != nil {
		p.metrics.RecordProcessError(string(event.Kind))
		return "", err
	}
	p.metrics.RecordEvent(string(event.Kind), string(outcome))
	return outcome, nil
}

func (p *Processor) applyBet(ctx context.Context, event model.DomainEvent) (Outcome, error) {
	wallet := WalletKey(event)
	points := BetPoints(event.Amount)
	txHash := event.TxHash

	entry := &model.LedgerEntry{
		Wallet:       wallet,
		PointsEarned: points,
		Source:       model.SourceBetVolume,
		MarketID:     event.MarketID,
		TxHash:       &txHash,
		LogIndex:     uint64(event.LogIndex),
		BlockNumber:  event.BlockNumber,
		Metadata: map[string]any{
			model.MetaBetAmount: event.Amount.String(),
			model.MetaChoice:    int(event.Choice),
		},
	}
	return p.award(ctx, event, entry)
}

func (p *Processor) applyWin(ctx context.Context, event model.DomainEvent) (Outcome, error) {
	if event.Amount.IsZero() {
		p.logger.Debug("zero payout",
			zap.String("wallet", WalletKey(event)),
			zap.Uint64("market_id", event.MarketID),
			zap.String("tx_hash", event.TxHash),
		)
		return OutcomeZeroPayout, nil
	}

	wallet := WalletKey(event)
	bet, err := p.ledger.FindLatestBet(ctx, wallet, event.MarketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			p.logger.Info("win without bet; no bonus",
				zap.String("wallet", wallet),
				zap.Uint64("market_id", event.MarketID),
				zap.String("tx_hash", event.TxHash),
			)
			return OutcomeNoBet, nil
		}
		return "", fmt.Errorf("find bet for %s market %d: %w", wallet, event.MarketID, err)
	}

	betAmount, ok := bet.BetAmount()
	if !ok {
		p.logger.Warn("bet entry has no readable amount; no bonus",
			zap.Int64("bet_id", bet.ID),
			zap.String("wallet", wallet),
		)
		return OutcomeNoBet, nil
	}

	txHash := event.TxHash
	betID := bet.ID
	entry := &model.LedgerEntry{
		Wallet:       wallet,
		PointsEarned: WinBonus(betAmount),
		Source:       model.SourceWinBonus,
		MarketID:     event.MarketID,
		BetID:        &betID,
		TxHash:       &txHash,
		LogIndex:     uint64(event.LogIndex),
		BlockNumber:  event.BlockNumber,
		Metadata: map[string]any{
			model.MetaPayout:    event.Amount.String(),
			model.MetaBetAmount: betAmount.String(),
		},
	}
	return p.award(ctx, event, entry)
}

// award appends the entry, then credits the aggregate only if the append was new.
func (p *Processor) award(ctx context.Context, event model.DomainEvent, entry *model.LedgerEntry) (Outcome, error) {
	id, created, err := p.ledger.Append(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("append %s entry for %s: %w", entry.Source, event.Key(), err)
	}
	if !created {
		p.logger.Debug("duplicate event",
			zap.String("key", event.Key()),
			zap.String("source", string(entry.Source)),
			zap.Int64("ledger_id", id),
		)
		return OutcomeDuplicate, nil
	}

	if err := p.users.EnsureUser(ctx, entry.Wallet); err != nil {
		return "", fmt.Errorf("ensure user %s: %w", entry.Wallet, err)
	}
	if err := p.users.CreditPoints(ctx, entry.Wallet, entry.PointsEarned, p.now()); err != nil {
		return "", fmt.Errorf("credit %d points to %s: %w", entry.PointsEarned, entry.Wallet, err)
	}

	p.metrics.RecordPoints(string(entry.Source), entry.PointsEarned)
	p.logger.Info("points awarded",
		zap.String("wallet", entry.Wallet),
		zap.String("source", string(entry.Source)),
		zap.Int64("points", entry.PointsEarned),
		zap.Uint64("market_id", entry.MarketID),
		zap.Int64("ledger_id", id),
		zap.String("key", event.Key()),
	)
	return OutcomeAwarded, nil
}
