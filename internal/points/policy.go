// Package points turns market events into ledger awards and keeps the
// per-wallet aggregates consistent with the ledger.
package points

import "github.com/shopspring/decimal"

var (
	betMultiplier = decimal.NewFromInt(10)
	winMultiplier = decimal.NewFromInt(5)
)

// BetPoints awards floor(amount * 10) for a bet of amount USDC.
func BetPoints(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.Mul(betMultiplier).Floor().IntPart()
}

// WinBonus awards floor(originalBet * 10 * 5) for a claim on a market the wallet bet on.
func WinBonus(originalBet decimal.Decimal) int64 {
	if !originalBet.IsPositive() {
		return 0
	}
	return originalBet.Mul(betMultiplier).Mul(winMultiplier).Floor().IntPart()
}
