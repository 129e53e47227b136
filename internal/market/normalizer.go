package market

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pointsLedger/internal/model"
)

var (
	errMissingUser   = errors.New("missing user")
	errMissingAmount = errors.New("missing amount")
)

// Normalizer converts raw market contract logs into domain events.
type Normalizer struct {
	marketABI   abi.ABI
	topicToKind map[common.Hash]model.EventKind
	logger      *zap.Logger
}

// NewNormalizer builds a Normalizer for the market ABI.
func NewNormalizer(logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := MarketABI()
	if err != nil {
		return nil, fmt.Errorf("parse market abi: %w", err)
	}
	return &Normalizer{
		marketABI: parsed,
		topicToKind: map[common.Hash]model.EventKind{
			parsed.Events["BetPlaced"].ID:       model.EventBetPlaced,
			parsed.Events["WinningsClaimed"].ID: model.EventWinningsClaimed,
		},
		logger: logger,
	}, nil
}

// Normalize returns the domain event for a log, or false when the log must be skipped.
// Skips are diagnostics, never errors: a malformed log cannot stop a window.
func (n *Normalizer) Normalize(log types.Log) (model.DomainEvent, bool) {
	event, err := n.Decode(log)
	if err != nil {
		n.logger.Warn("skip market log",
			zap.Error(err),
			zap.String("tx_hash", log.TxHash.Hex()),
			zap.Uint("log_index", log.Index),
			zap.Uint64("block_number", log.BlockNumber),
		)
		return model.DomainEvent{}, false
	}
	return event, true
}

// Decode converts a log into a DomainEvent.
func (n *Normalizer) Decode(log types.Log) (model.DomainEvent, error) {
	if log.Removed {
		return model.DomainEvent{}, fmt.Errorf("log removed by reorg")
	}
	if len(log.Topics) == 0 {
		return model.DomainEvent{}, fmt.Errorf("missing topics")
	}
	kind, ok := n.topicToKind[log.Topics[0]]
	if !ok {
		return model.DomainEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	event := n.marketABI.Events[string(kind)]
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) < 2 {
		return model.DomainEvent{}, fmt.Errorf("missing market id")
	}
	if len(log.Topics) < len(indexed)+1 {
		return model.DomainEvent{}, errMissingUser
	}
	if len(log.Topics) > len(indexed)+1 {
		return model.DomainEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	var topics struct {
		MarketId *big.Int
		User     common.Address
	}
	if err := abi.ParseTopics(&topics, indexed, log.Topics[1:]); err != nil {
		return model.DomainEvent{}, fmt.Errorf("parse topics: %w", err)
	}
	if topics.User == (common.Address{}) {
		return model.DomainEvent{}, errMissingUser
	}
	if topics.MarketId == nil || !topics.MarketId.IsUint64() {
		return model.DomainEvent{}, fmt.Errorf("market id out of range")
	}

	if len(log.Data) == 0 {
		return model.DomainEvent{}, errMissingAmount
	}
	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.DomainEvent{}, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	out := model.DomainEvent{
		Kind:        kind,
		Wallet:      topics.User,
		MarketID:    topics.MarketId.Uint64(),
		TxHash:      log.TxHash.Hex(),
		LogIndex:    log.Index,
		BlockNumber: log.BlockNumber,
	}

	var rawAmount interface{}
	switch kind {
	case model.EventBetPlaced:
		if len(values) != 2 {
			return model.DomainEvent{}, fmt.Errorf("unexpected bet values: %d", len(values))
		}
		choice, ok := values[0].(uint8)
		if !ok {
			return model.DomainEvent{}, fmt.Errorf("unsupported choice type %T", values[0])
		}
		out.Choice = choice
		rawAmount = values[1]
	case model.EventWinningsClaimed:
		if len(values) != 1 {
			return model.DomainEvent{}, fmt.Errorf("unexpected claim values: %d", len(values))
		}
		rawAmount = values[0]
	}

	amount, ok := rawAmount.(*big.Int)
	if !ok || amount == nil {
		return model.DomainEvent{}, errMissingAmount
	}
	out.Amount = ToUSDC(amount)
	return out, nil
}

// ToUSDC converts a raw 6-decimal token amount into a decimal.
func ToUSDC(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -USDCDecimals)
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
