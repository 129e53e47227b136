// Package observability provides Prometheus metrics for the points pipeline.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultNamespace = "points_ledger"

// Metrics holds the collectors of one process. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	// Processing
	EventsTotal   *prometheus.CounterVec
	EventsSkipped prometheus.Counter
	PointsAwarded *prometheus.CounterVec
	ProcessErrors *prometheus.CounterVec

	// Poller
	WindowsTotal  *prometheus.CounterVec
	CursorBlock   prometheus.Gauge
	HeadBlock     prometheus.Gauge
	ScanDuration  prometheus.Histogram
	ScansRejected prometheus.Counter
	PushTriggers  prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "events_total",
			Help:      "Domain events applied by kind and outcome",
		}, []string{"kind", "outcome"}),
		EventsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "events_skipped_total",
			Help:      "Raw logs dropped by the normalizer",
		}),
		PointsAwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "points_awarded_total",
			Help:      "Points written to the ledger by source",
		}, []string{"source"}),
		ProcessErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "errors_total",
			Help:      "Store failures while applying events by kind",
		}, []string{"kind"}),
		WindowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "windows_total",
			Help:      "Block windows scanned by status",
		}, []string{"status"}),
		CursorBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "cursor_block",
			Help:      "Last fully processed block",
		}),
		HeadBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "head_block",
			Help:      "Latest chain head seen",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "scan_duration_seconds",
			Help:      "Duration of one scan from head lookup to last window",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ScansRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "scans_rejected_total",
			Help:      "Scan triggers refused because a scan was in flight",
		}),
		PushTriggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "push_triggers_total",
			Help:      "Scans requested by log subscription notifications",
		}),
	}
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordSkipped() {
	if m == nil {
		return
	}
	m.EventsSkipped.Inc()
}

func (m *Metrics) RecordPoints(source string, points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.PointsAwarded.WithLabelValues(source).Add(float64(points))
}

func (m *Metrics) RecordProcessError(kind string) {
	if m == nil {
		return
	}
	m.ProcessErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordWindow(status string) {
	if m == nil {
		return
	}
	m.WindowsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SetCursor(block uint64) {
	if m == nil {
		return
	}
	m.CursorBlock.Set(float64(block))
}

func (m *Metrics) SetHead(block uint64) {
	if m == nil {
		return
	}
	m.HeadBlock.Set(float64(block))
}

func (m *Metrics) ObserveScan(d time.Duration) {
	if m == nil {
		return
	}
	m.ScanDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordScanRejected() {
	if m == nil {
		return
	}
	m.ScansRejected.Inc()
}

func (m *Metrics) RecordPushTrigger() {
	if m == nil {
		return
	}
	m.PushTriggers.Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
