package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventKind identifies a market contract event.
type EventKind string

const (
	EventBetPlaced       EventKind = "BetPlaced"
	EventWinningsClaimed EventKind = "WinningsClaimed"
)

// DomainEvent is a market event normalized from a raw chain log.
type DomainEvent struct {
	Kind        EventKind
	Wallet      common.Address
	MarketID    uint64
	Amount      decimal.Decimal
	Choice      uint8
	TxHash      string
	LogIndex    uint
	BlockNumber uint64
}

// Key identifies the originating log; replays of the same log share it.
func (e DomainEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.TxHash, e.LogIndex)
}
