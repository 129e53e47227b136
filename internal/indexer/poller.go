package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"pointsLedger/internal/market"
	"pointsLedger/internal/model"
	"pointsLedger/internal/observability"
	"pointsLedger/internal/points"
	"pointsLedger/internal/storage"
)

const defaultPollInterval = 5 * time.Second

// ErrScanInFlight is returned by Scan while another scan is running.
var ErrScanInFlight = errors.New("scan already in flight")

// LogSource is the pull side of the chain client.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// LogSubscriber is the optional push side of the chain client.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Normalizer turns raw logs into domain events.
type Normalizer interface {
	Normalize(log types.Log) (model.DomainEvent, bool)
}

// Applier applies domain events to the ledger.
type Applier interface {
	Apply(ctx context.Context, event model.DomainEvent) (points.Outcome, error)
}

// PollerConfig holds runtime settings for the poller.
type PollerConfig struct {
	ChainID  uint64
	Contract common.Address

	// FromBlock is used only when no cursor is persisted. HasFromBlock
	// false means start at the current head.
	FromBlock     uint64
	HasFromBlock  bool
	Confirmations uint64
	BatchSize     uint64
	PollInterval  time.Duration
	Subscribe     bool
}

// ScanResult summarises one scan.
type ScanResult struct {
	Head    uint64
	From    uint64
	To      uint64
	Windows int
	Events  int
	Skipped int
}

// Poller drives the cursor over the market contract's logs. All log
// processing happens on the goroutine that calls Scan.
type Poller struct {
	cfg        PollerConfig
	source     LogSource
	subscriber LogSubscriber
	normalizer Normalizer
	applier    Applier
	cursor     storage.CursorStore
	archive    storage.LogSink
	logger     *zap.Logger
	metrics    *observability.Metrics

	scanning   atomic.Bool
	position   atomic.Uint64
	positioned atomic.Bool
	now        func() time.Time
}

// PollerOption customises optional collaborators.
type PollerOption func(*Poller)

// WithSubscriber enables push-triggered scans.
func WithSubscriber(sub LogSubscriber) PollerOption {
	return func(p *Poller) { p.subscriber = sub }
}

// WithArchive stores the raw logs of every committed window.
func WithArchive(sink storage.LogSink) PollerOption {
	return func(p *Poller) { p.archive = sink }
}

// WithMetrics records poller metrics.
func WithMetrics(m *observability.Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller builds a Poller with its dependencies.
func NewPoller(cfg PollerConfig, source LogSource, normalizer Normalizer, applier Applier, cursor storage.CursorStore, logger *zap.Logger, opts ...PollerOption) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("log source is nil")
	}
	if normalizer == nil || applier == nil {
		return nil, fmt.Errorf("normalizer and applier are required")
	}
	if cursor == nil {
		return nil, fmt.Errorf("cursor store is nil")
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.Contract == (common.Address{}) {
		return nil, fmt.Errorf("contract address is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Poller{
		cfg:        cfg,
		source:     source,
		normalizer: normalizer,
		applier:    applier,
		cursor:     cursor,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run scans once immediately, then on every tick and push notification,
// until ctx is cancelled. A scan in progress at cancellation runs to
// completion. Scan failures are logged; the next trigger retries.
func (p *Poller) Run(ctx context.Context) error {
	push, release := p.subscribe(ctx)
	defer release()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.logger.Info("poller started",
		zap.String("contract", p.cfg.Contract.Hex()),
		zap.Duration("poll_interval", p.cfg.PollInterval),
		zap.Bool("push", push != nil),
	)
	p.trigger(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", zap.Uint64("cursor", p.position.Load()))
			return nil
		case <-ticker.C:
			p.trigger(ctx, "tick")
		case <-push:
			p.metrics.RecordPushTrigger()
			p.trigger(ctx, "push")
		}
	}
}

func (p *Poller) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	res, err := p.Scan(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, ErrScanInFlight):
		p.logger.Debug("scan skipped; previous scan in flight", zap.String("trigger", reason))
	case err != nil:
		p.logger.Warn("scan failed", zap.String("trigger", reason), zap.Error(err), zap.Uint64("cursor", p.position.Load()))
	case res.Windows > 0:
		p.logger.Info("scan complete",
			zap.String("trigger", reason),
			zap.Uint64("from", res.From),
			zap.Uint64("to", res.To),
			zap.Int("windows", res.Windows),
			zap.Int("events", res.Events),
			zap.Int("skipped", res.Skipped),
		)
	}
}

// Scan processes every confirmed block after the cursor. It refuses to
// start while another scan is running.
func (p *Poller) Scan(ctx context.Context) (ScanResult, error) {
	if !p.scanning.CompareAndSwap(false, true) {
		p.metrics.RecordScanRejected()
		return ScanResult{}, ErrScanInFlight
	}
	defer p.scanning.Store(false)

	started := p.now()
	defer func() { p.metrics.ObserveScan(p.now().Sub(started)) }()

	return p.scan(ctx)
}

// Cursor returns the last fully processed block known to this poller.
func (p *Poller) Cursor() (uint64, bool) {
	return p.position.Load(), p.positioned.Load()
}

func (p *Poller) scan(ctx context.Context) (ScanResult, error) {
	head, err := p.source.LatestBlockNumber(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("get latest block: %w", err)
	}
	p.metrics.SetHead(head)

	cursor, err := p.ensureCursor(ctx, head)
	if err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Head: head}
	if head < p.cfg.Confirmations {
		return res, nil
	}
	to := head - p.cfg.Confirmations
	if to <= cursor {
		return res, nil
	}

	ranges, err := SplitRange(cursor+1, to, p.cfg.BatchSize)
	if err != nil {
		return res, err
	}
	res.From = cursor + 1

	for _, window := range ranges {
		events, skipped, err := p.processWindow(ctx, window)
		res.Events += events
		res.Skipped += skipped
		if err != nil {
			p.metrics.RecordWindow("failed")
			return res, fmt.Errorf("window %d-%d: %w", window.From, window.To, err)
		}
		p.metrics.RecordWindow("ok")
		res.To = window.To
		res.Windows++
	}
	return res, nil
}

// ensureCursor resolves the starting position once per process.
func (p *Poller) ensureCursor(ctx context.Context, head uint64) (uint64, error) {
	if p.positioned.Load() {
		return p.position.Load(), nil
	}

	block, ok, err := p.cursor.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	source := "persisted"
	if !ok {
		switch {
		case p.cfg.HasFromBlock && p.cfg.FromBlock > 0:
			block = p.cfg.FromBlock - 1
			source = "from-block"
		case p.cfg.HasFromBlock:
			block = 0
			source = "from-block"
		default:
			block = head
			source = "head"
		}
		if err := p.cursor.Save(ctx, block); err != nil {
			return 0, fmt.Errorf("save initial cursor: %w", err)
		}
	}

	p.position.Store(block)
	p.positioned.Store(true)
	p.metrics.SetCursor(block)
	p.logger.Info("cursor initialised", zap.Uint64("cursor", block), zap.String("source", source))
	return block, nil
}

// processWindow applies every bet in the window, then every win, then
// archives the raw logs and commits the cursor to window.To.
func (p *Poller) processWindow(ctx context.Context, window BlockRange) (int, int, error) {
	p.logger.Debug("fetch logs", zap.Uint64("from", window.From), zap.Uint64("to", window.To), zap.Uint64("blocks", window.Blocks()))

	addresses := []common.Address{p.cfg.Contract}
	betLogs, err := p.source.FilterLogs(ctx, window.From, window.To, addresses, []common.Hash{market.BetPlacedTopic()})
	if err != nil {
		return 0, 0, fmt.Errorf("filter bet logs: %w", err)
	}
	winLogs, err := p.source.FilterLogs(ctx, window.From, window.To, addresses, []common.Hash{market.WinningsClaimedTopic()})
	if err != nil {
		return 0, 0, fmt.Errorf("filter win logs: %w", err)
	}

	bets, betSkipped := p.normalize(betLogs, model.EventBetPlaced)
	wins, winSkipped := p.normalize(winLogs, model.EventWinningsClaimed)
	skipped := betSkipped + winSkipped

	applied := 0
	for _, batch := range [][]model.DomainEvent{bets, wins} {
		for _, event := range batch {
			if _, err := p.applier.Apply(ctx, event); err != nil {
				return applied, skipped, fmt.Errorf("apply %s: %w", event.Key(), err)
			}
			applied++
		}
	}

	if p.archive != nil {
		if err := p.archive.PutLogBatch(p.records(betLogs, winLogs)); err != nil {
			return applied, skipped, fmt.Errorf("archive logs: %w", err)
		}
	}

	if err := p.cursor.Save(ctx, window.To); err != nil {
		return applied, skipped, fmt.Errorf("save cursor: %w", err)
	}
	p.position.Store(window.To)
	p.metrics.SetCursor(window.To)

	p.logger.Debug("window committed",
		zap.Uint64("from", window.From),
		zap.Uint64("to", window.To),
		zap.Int("bets", len(bets)),
		zap.Int("wins", len(wins)),
		zap.Int("skipped", skipped),
	)
	return applied, skipped, nil
}

// normalize drops logs the normalizer rejects or that carry the wrong kind,
// and orders the rest by (block, log index).
func (p *Poller) normalize(logs []types.Log, kind model.EventKind) ([]model.DomainEvent, int) {
	events := make([]model.DomainEvent, 0, len(logs))
	skipped := 0
	for _, log := range logs {
		event, ok := p.normalizer.Normalize(log)
		if !ok || event.Kind != kind {
			skipped++
			p.metrics.RecordSkipped()
			continue
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
	return events, skipped
}

func (p *Poller) records(betLogs, winLogs []types.Log) []model.LogRecord {
	archivedAt := p.now()
	out := make([]model.LogRecord, 0, len(betLogs)+len(winLogs))
	for _, log := range betLogs {
		out = append(out, buildLogRecord(p.cfg.ChainID, model.EventBetPlaced, log, archivedAt))
	}
	for _, log := range winLogs {
		out = append(out, buildLogRecord(p.cfg.ChainID, model.EventWinningsClaimed, log, archivedAt))
	}
	return out
}

// subscribe starts push notifications when enabled. The returned channel
// carries at most one pending notification; bursts collapse into one scan.
func (p *Poller) subscribe(ctx context.Context) (<-chan struct{}, func()) {
	noop := func() {}
	if !p.cfg.Subscribe || p.subscriber == nil {
		return nil, noop
	}

	logs := make(chan types.Log, 64)
	topics := []common.Hash{market.BetPlacedTopic(), market.WinningsClaimedTopic()}
	sub, err := p.subscriber.SubscribeLogs(ctx, []common.Address{p.cfg.Contract}, topics, logs)
	if err != nil {
		p.logger.Warn("push notifications unavailable; polling only", zap.Error(err))
		return nil, noop
	}

	notify := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					p.logger.Warn("log subscription ended; polling only", zap.Error(err))
				}
				return
			case <-logs:
				select {
				case notify <- struct{}{}:
				default:
				}
			}
		}
	}()

	return notify, func() {
		sub.Unsubscribe()
		<-done
	}
}
