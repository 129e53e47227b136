package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pointsLedger/internal/model"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testUser     = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestNormalizeBetPlaced(t *testing.T) {
	n, err := NewNormalizer(zap.NewNop())
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	log := buildBetLog(t, 7, testUser, 1, big.NewInt(12_500_000))
	event, ok := n.Normalize(log)
	if !ok {
		t.Fatalf("expected bet to normalize")
	}

	if event.Kind != model.EventBetPlaced {
		t.Fatalf("kind mismatch: %s", event.Kind)
	}
	if event.Wallet != testUser {
		t.Fatalf("wallet mismatch: %s", event.Wallet.Hex())
	}
	if event.MarketID != 7 || event.Choice != 1 {
		t.Fatalf("market/choice mismatch: %+v", event)
	}
	if !event.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("amount mismatch: %s", event.Amount)
	}
	if event.BlockNumber != 100 || event.LogIndex != 3 {
		t.Fatalf("position mismatch: %+v", event)
	}
}

func TestNormalizeWinningsClaimed(t *testing.T) {
	n, err := NewNormalizer(nil)
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	log := buildClaimLog(t, 9, testUser, big.NewInt(25_000_000))
	event, ok := n.Normalize(log)
	if !ok {
		t.Fatalf("expected claim to normalize")
	}
	if event.Kind != model.EventWinningsClaimed {
		t.Fatalf("kind mismatch: %s", event.Kind)
	}
	if !event.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("amount mismatch: %s", event.Amount)
	}
}

func TestNormalizeSkipsMalformed(t *testing.T) {
	n, err := NewNormalizer(zap.NewNop())
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}

	missingUser := buildBetLog(t, 7, testUser, 1, big.NewInt(1_000_000))
	missingUser.Topics = missingUser.Topics[:2]

	zeroUser := buildBetLog(t, 7, common.Address{}, 1, big.NewInt(1_000_000))

	missingAmount := buildClaimLog(t, 7, testUser, big.NewInt(1))
	missingAmount.Data = nil

	unknown := buildClaimLog(t, 7, testUser, big.NewInt(1))
	unknown.Topics[0] = common.HexToHash("0xdeadbeef")

	removed := buildBetLog(t, 7, testUser, 1, big.NewInt(1_000_000))
	removed.Removed = true

	noTopics := types.Log{Address: testContract}

	hugeMarket := buildClaimLog(t, 7, testUser, big.NewInt(1))
	hugeMarket.Topics[1] = common.BigToHash(new(big.Int).Lsh(big.NewInt(1), 70))

	for name, log := range map[string]types.Log{
		"missing user":   missingUser,
		"zero user":      zeroUser,
		"missing amount": missingAmount,
		"unknown topic":  unknown,
		"removed":        removed,
		"no topics":      noTopics,
		"huge market":    hugeMarket,
	} {
		if _, ok := n.Normalize(log); ok {
			t.Fatalf("%s: expected skip", name)
		}
	}
}

func TestToUSDC(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		1:          "0.000001",
		12_500_000: "12.5",
		99_999_999: "99.999999",
	}
	for raw, want := range cases {
		if got := ToUSDC(big.NewInt(raw)); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("ToUSDC(%d) = %s, want %s", raw, got, want)
		}
	}
	if !ToUSDC(nil).IsZero() {
		t.Fatalf("nil amount should be zero")
	}
}

func buildBetLog(t *testing.T, marketID int64, user common.Address, choice uint8, amount *big.Int) types.Log {
	t.Helper()
	parsed, err := MarketABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := parsed.Events["BetPlaced"].Inputs.NonIndexed().Pack(choice, amount)
	if err != nil {
		t.Fatalf("pack bet: %v", err)
	}
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{BetPlacedTopic(), common.BigToHash(big.NewInt(marketID)), common.BytesToHash(user.Bytes())},
		Data:        data,
		BlockNumber: 100,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}
}

func buildClaimLog(t *testing.T, marketID int64, user common.Address, amount *big.Int) types.Log {
	t.Helper()
	parsed, err := MarketABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := parsed.Events["WinningsClaimed"].Inputs.NonIndexed().Pack(amount)
	if err != nil {
		t.Fatalf("pack claim: %v", err)
	}
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{WinningsClaimedTopic(), common.BigToHash(big.NewInt(marketID)), common.BytesToHash(user.Bytes())},
		Data:        data,
		BlockNumber: 101,
		TxHash:      common.HexToHash("0xdef"),
		Index:       0,
	}
}
