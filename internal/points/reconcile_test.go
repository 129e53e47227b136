package points

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointsLedger/internal/model"
	"pointsLedger/internal/storage/memory"
)

func TestReconciler_ReportAndFix(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedgerStore()
	users := memory.NewUserStore()

	tx1, tx2 := "0x01", "0x02"
	_, _, err := ledger.Append(ctx, &model.LedgerEntry{Wallet: "0xaaa", PointsEarned: 125, Source: model.SourceBetVolume, TxHash: &tx1})
	require.NoError(t, err)
	_, _, err = ledger.Append(ctx, &model.LedgerEntry{Wallet: "0xbbb", PointsEarned: 40, Source: model.SourceBetVolume, TxHash: &tx2})
	require.NoError(t, err)

	// 0xaaa consistent, 0xbbb missing, 0xccc has points but no ledger rows.
	require.NoError(t, users.EnsureUser(ctx, "0xaaa"))
	require.NoError(t, users.SetTotal(ctx, "0xaaa", 125))
	require.NoError(t, users.EnsureUser(ctx, "0xccc"))
	require.NoError(t, users.SetTotal(ctx, "0xccc", 9))

	rec := NewReconciler(ledger, users, nil)

	report, err := rec.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Wallets)
	require.Len(t, report.Drifts, 2)
	assert.Equal(t, Drift{Wallet: "0xbbb", LedgerSum: 40, Missing: true}, report.Drifts[0])
	assert.Equal(t, Drift{Wallet: "0xccc", LedgerSum: 0, Aggregate: 9}, report.Drifts[1])
	assert.Zero(t, report.Fixed)

	report, err = rec.Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fixed)

	report, err = rec.Run(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Drifts)

	u, err := users.Get(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, int64(40), u.TotalPoints)
}
