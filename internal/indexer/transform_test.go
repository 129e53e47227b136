package indexer

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"pointsLedger/internal/model"
)

func TestBuildLogRecord(t *testing.T) {
	log := types.Log{
		Address:     testContract,
		Topics:      []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")},
		Data:        []byte{0xca, 0xfe},
		BlockNumber: 77,
		BlockHash:   common.HexToHash("0xbb"),
		TxHash:      common.HexToHash("0xcc"),
		TxIndex:     3,
		Index:       9,
	}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.FixedZone("x", 3600))

	rec := buildLogRecord(8453, model.EventBetPlaced, log, at)
	if rec.ChainID != 8453 || rec.BlockNumber != 77 || rec.LogIndex != 9 || rec.TxIndex != 3 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Event != "BetPlaced" || rec.Data != "0xcafe" || len(rec.Topics) != 2 {
		t.Fatalf("unexpected payload: %+v", rec)
	}
	if rec.ArchivedAt != "2024-02-29T23:00:00Z" {
		t.Fatalf("archived_at not UTC: %s", rec.ArchivedAt)
	}
	if rec.Address != testContract.Hex() {
		t.Fatalf("address mismatch: %s", rec.Address)
	}
}
