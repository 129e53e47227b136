package model

import "time"

// UserAggregate is the running points total for a wallet, derived from the ledger.
type UserAggregate struct {
	Wallet       string     `json:"wallet_address"`
	TotalPoints  int64      `json:"total_points"`
	LastActivity *time.Time `json:"last_bet_timestamp,omitempty"`
}
