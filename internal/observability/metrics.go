// Package observability provides Prometheus metrics and the health
// endpoints for monitoring the scanner.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	// Discovery metrics
	CandidatesDiscovered *prometheus.CounterVec
	QueueDrops           prometheus.Counter
	QueueDepth           prometheus.Gauge

	// Provider metrics
	ProviderOutcomes *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
	FetchLatency     prometheus.Histogram

	// Pipeline metrics
	TokensProcessed prometheus.Counter
	Decisions       *prometheus.CounterVec
	RugAlerts       prometheus.Counter
	RetriesActive   prometheus.Gauge

	// Publish metrics
	PublishOutcomes *prometheus.CounterVec
	OpenPositions   prometheus.Gauge

	// Memory metrics
	LiquidityHistorySize prometheus.Gauge
	BlacklistSize        prometheus.Gauge
	ResolvedSymbolsSize  prometheus.Gauge

	// Archive metrics
	ArchiveDrops *prometheus.CounterVec

	// Health metrics
	WSReconnects  prometheus.Counter
	UptimeSeconds prometheus.Counter
}

// NewMetrics registers the scanner metric set. A nil registerer uses
// the default registry; tests pass their own to avoid duplicate
// registration panics.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mintscan"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CandidatesDiscovered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Candidates observed by the producers",
		}, []string{"source"}),
		QueueDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "queue_drops_total",
			Help:      "Candidates dropped because the event queue was full",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "queue_depth",
			Help:      "Buffered candidates waiting for the consumer",
		}),

		ProviderOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "outcomes_total",
			Help:      "Per-provider call outcomes in the fallback chain",
		}, []string{"provider", "outcome"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		}, []string{"provider"}),
		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_duration_seconds",
			Help:      "End-to-end fallback chain latency per candidate",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),

		TokensProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tokens_processed_total",
			Help:      "Evaluation passes completed",
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Qualification decisions by outcome",
		}, []string{"decision"}),
		RugAlerts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rug_alerts_total",
			Help:      "Liquidity-drop alerts raised",
		}),
		RetriesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "retries_active",
			Help:      "Mints tracked by the retry worker",
		}),

		PublishOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "outcomes_total",
			Help:      "Dispatch outcomes at the publish sink",
		}, []string{"outcome"}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "open_positions",
			Help:      "Currently published tokens",
		}),

		LiquidityHistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "liquidity_history_size",
			Help:      "Mints with tracked liquidity history",
		}),
		BlacklistSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "blacklist_size",
			Help:      "Mints currently blacklisted",
		}),
		ResolvedSymbolsSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "resolved_symbols_size",
			Help:      "Entries in the resolved-symbol table",
		}),

		ArchiveDrops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "drops_total",
			Help:      "Records lost to archive buffer overflow",
		}, []string{"archive"}),

		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "ws_reconnects_total",
			Help:      "Websocket reconnect attempts",
		}),
		UptimeSeconds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Process uptime in seconds",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
