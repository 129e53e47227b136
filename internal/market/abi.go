package market

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// USDCDecimals is the fixed-point scale of on-chain bet and payout amounts.
const USDCDecimals = 6

const marketABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "marketId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint8", "name": "choice", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "BetPlaced",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "marketId", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "WinningsClaimed",
    "type": "event"
  }
]`

var (
	marketABI     abi.ABI
	marketABIOnce sync.Once
	marketABIErr  error
)

// MarketABI returns the parsed prediction market event ABI.
func MarketABI() (abi.ABI, error) {
	marketABIOnce.Do(func() {
		marketABI, marketABIErr = abi.JSON(strings.NewReader(marketABIJSON))
	})
	return marketABI, marketABIErr
}

// BetPlacedTopic returns topic0 of BetPlaced.
func BetPlacedTopic() common.Hash {
	parsed, err := MarketABI()
	if err != nil {
		panic(err)
	}
	return parsed.Events["BetPlaced"].ID
}

// WinningsClaimedTopic returns topic0 of WinningsClaimed.
func WinningsClaimedTopic() common.Hash {
	parsed, err := MarketABI()
	if err != nil {
		panic(err)
	}
	return parsed.Events["WinningsClaimed"].ID
}
