package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pointsLedger/internal/points"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
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
	fix, _ := cmd.Flags().GetBool("fix")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := points.NewReconciler(st.ledger, st.users, logger.Named("reconcile")).Run(ctx, fix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wallets: %d  drifting: %d  fixed: %d\n", report.Wallets, len(report.Drifts), report.Fixed)
	for _, d := range report.Drifts {
		state := "drift"
		if d.Missing {
			state = "missing"
		}
		fmt.Fprintf(out, "%s  %-7s ledger=%d aggregate=%d\n", d.Wallet, state, d.LedgerSum, d.Aggregate)
	}
	if len(report.Drifts) > 0 && !fix {
		return fmt.Errorf("%d wallets drift from the ledger; rerun with --fix", len(report.Drifts))
	}
	return nil
}
