package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointsLedger/internal/config"
	"pointsLedger/internal/storage"
	"pointsLedger/internal/storage/memory"
	"pointsLedger/internal/storage/migrations"
	"pointsLedger/internal/storage/postgres"
)

type stores struct {
	ledger storage.LedgerStore
	users  storage.AggregateStore
	pool   *postgres.Pool
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(cfgFile, envFile, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStores connects the configured backend. Postgres must answer a ping
// and have its schema applied before anything else runs.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("memory store selected; ledger is lost on exit")
		return &stores{ledger: memory.NewLedgerStore(), users: memory.NewUserStore()}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &stores{
		ledger: postgres.NewLedgerStore(pool),
		users:  postgres.NewUserStore(pool),
		pool:   pool,
	}, nil
}
