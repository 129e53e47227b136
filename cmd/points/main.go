package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "points",
		Short:        "Prediction-market points ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the market contract and award points",
		RunE:  runPoller,
	}

	runCmd.Flags().String("rpc", "", "RPC URL (ws:// enables push notifications)")
	runCmd.Flags().String("contract", "", "market contract address")
	runCmd.Flags().Uint64("from-block", 0, "first block to process when no cursor is stored (default: current head)")
	runCmd.Flags().Uint64("confirmations", 0, "blocks to stay behind head")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per window")
	runCmd.Flags().Duration("poll-interval", 5*time.Second, "interval between scans")
	runCmd.Flags().Bool("subscribe", true, "use log subscriptions to trigger scans when the endpoint supports them")
	runCmd.Flags().String("cursor", "postgres", "cursor backend (postgres, file, memory)")
	runCmd.Flags().String("checkpoint", "./data/cursor.json", "cursor file path when cursor=file")
	runCmd.Flags().String("archive", "", "optional JSONL path for raw logs of committed windows")
	runCmd.Flags().String("metrics-addr", "", "listen address for /metrics (empty disables)")
	addStoreFlags(runCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare aggregates with the ledger and optionally rebuild them",
		Long:  "Sums the ledger per wallet and reports wallets whose aggregate differs. Do not run while a poller is writing.",
		RunE:  runReconcile,
	}
	reconcileCmd.Flags().Bool("fix", false, "set drifting aggregates to their ledger sum")
	addStoreFlags(reconcileCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Print a wallet's total and ledger entries",
		RunE:  runBalance,
	}
	balanceCmd.Flags().String("wallet", "", "wallet address")
	addStoreFlags(balanceCmd)

	root.AddCommand(runCmd, reconcileCmd, balanceCmd)
	return root
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "postgres", "ledger backend (postgres, memory)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
