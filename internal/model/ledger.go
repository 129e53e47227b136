package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source tags why points were awarded.
type Source string

const (
	SourceBetVolume Source = "bet_volume"
	SourceWinBonus  Source = "win_bonus"
)

// Metadata keys written on ledger entries.
const (
	MetaBetAmount = "bet_amount"
	MetaChoice    = "choice"
	MetaPayout    = "payout"
)

// LedgerEntry is an append-only points award.
type LedgerEntry struct {
	ID           int64          `json:"id"`
	Wallet       string         `json:"wallet_address"`
	PointsEarned int64          `json:"points_earned"`
	Source       Source         `json:"source"`
	MarketID     uint64         `json:"market_id"`
	BetID        *int64         `json:"bet_id,omitempty"`
	TxHash       *string        `json:"tx_hash,omitempty"`
	LogIndex     uint64         `json:"log_index"`
	BlockNumber  uint64         `json:"block_number"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// BetAmount returns the USDC amount recorded on a bet entry.
func (e *LedgerEntry) BetAmount() (decimal.Decimal, bool) {
	if e == nil || e.Metadata == nil {
		return decimal.Zero, false
	}
	switch v := e.Metadata[MetaBetAmount].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Zero, false
	}
}
