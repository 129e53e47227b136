package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pointsLedger/internal/indexer"
	"pointsLedger/internal/storage"
)

func runBalance(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	input, _ := cmd.Flags().GetString("wallet")
	addr, err := indexer.ParseAddress(input)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	wallet := strings.ToLower(addr.Hex())

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	user, err := st.users.Get(ctx, wallet)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Fprintf(out, "%s has no points\n", wallet)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "%s total=%d", wallet, user.TotalPoints)
		if user.LastActivity != nil {
			fmt.Fprintf(out, " last_activity=%s", user.LastActivity.Format("2006-01-02T15:04:05Z07:00"))
		}
		fmt.Fprintln(out)
	}

	entries, err := st.ledger.ListByWallet(ctx, wallet)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tMARKET\tPOINTS\tBLOCK\tTX")
	for _, e := range entries {
		tx := "-"
		if e.TxHash != nil {
			tx = *e.TxHash
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n", e.ID, e.Source, e.MarketID, e.PointsEarned, e.BlockNumber, tx)
	}
	return tw.Flush()
}
