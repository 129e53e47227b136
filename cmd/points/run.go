package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pointsLedger/internal/chain"
	"pointsLedger/internal/config"
	"pointsLedger/internal/indexer"
	"pointsLedger/internal/market"
	"pointsLedger/internal/observability"
	"pointsLedger/internal/points"
	"pointsLedger/internal/storage"
	"pointsLedger/internal/storage/memory"
	"pointsLedger/internal/storage/postgres"
)

func runPoller(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.ValidateRun(); err != nil {
		return err
	}
	contract, err := indexer.ParseAddress(cfg.Contract)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	cursor, err := newCursorStore(cfg, st.pool)
	if err != nil {
		return err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	metrics := observability.NewMetrics("")

	normalizer, err := market.NewNormalizer(logger.Named("normalizer"))
	if err != nil {
		return err
	}
	processor := points.NewProcessor(st.ledger, st.users, logger.Named("processor"), metrics)

	opts := []indexer.PollerOption{indexer.WithMetrics(metrics), indexer.WithSubscriber(chainClient)}
	if cfg.Archive != "" {
		archive := storage.NewJsonlArchive(cfg.Archive)
		defer archive.Close()
		opts = append(opts, indexer.WithArchive(archive))
	}

	poller, err := indexer.NewPoller(indexer.PollerConfig{
		ChainID:       chainID.Uint64(),
		Contract:      contract,
		FromBlock:     cfg.FromBlock,
		HasFromBlock:  cfg.HasFromBlock,
		Confirmations: cfg.Confirmations,
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		Subscribe:     cfg.Subscribe,
	}, chainClient, normalizer, processor, cursor, logger.Named("poller"), opts...)
	if err != nil {
		return err
	}

	logger.Info("points ledger start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.String("contract", contract.Hex()),
		zap.String("store", cfg.Store),
		zap.String("cursor", cfg.Cursor),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Bool("subscribe", cfg.Subscribe),
		zap.String("archive", cfg.Archive),
	)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.MetricsAddr, logger) })
	}
	g.Go(func() error { return poller.Run(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("points ledger stopped")
	return nil
}

func newCursorStore(cfg config.Config, pool *postgres.Pool) (storage.CursorStore, error) {
	switch cfg.Cursor {
	case config.CursorPostgres:
		if pool == nil {
			return nil, fmt.Errorf("cursor=postgres requires a postgres store")
		}
		return postgres.NewCursorStore(pool, cfg.CursorName), nil
	case config.CursorFile:
		return indexer.NewCheckpointStore(cfg.Checkpoint), nil
	case config.CursorMemory:
		return memory.NewCursorStore(), nil
	default:
		return nil, fmt.Errorf("unknown cursor %q", cfg.Cursor)
	}
}
