// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Backfill metrics
	PagesFetched         prometheus.Counter
	SignaturesProcessed  prometheus.Counter
	FailedTxSkipped      prometheus.Counter
	FetchErrorsSkipped   prometheus.Counter
	TransfersReconciled  *prometheus.CounterVec
	BackfillRunsTotal    *prometheus.CounterVec
	BackfillDuration     prometheus.Histogram

	// Watch metrics
	WatchNotifications prometheus.Counter
	WatchReconnects    prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Storage metrics
	TransfersStored    prometheus.Counter
	VolumePointsStored prometheus.Counter
	StoreErrors        *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_wallet_ledger"
	}

	return &Metrics{
		// Backfill metrics
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "pages_fetched_total",
			Help:      "Total number of signature pages fetched",
		}),
		SignaturesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "signatures_processed_total",
			Help:      "Total number of signature entries processed",
		}),
		FailedTxSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "failed_tx_skipped_total",
			Help:      "Total number of on-chain-failed transactions skipped",
		}),
		FetchErrorsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "fetch_errors_skipped_total",
			Help:      "Total number of transaction detail fetch failures skipped",
		}),
		TransfersReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "transfers_reconciled_total",
			Help:      "Total number of transfer events reconciled by direction",
		}, []string{"direction"}),
		BackfillRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "runs_total",
			Help:      "Total number of backfill runs by status",
		}, []string{"status"}),
		BackfillDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "duration_seconds",
			Help:      "Backfill run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Watch metrics
		WatchNotifications: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "notifications_total",
			Help:      "Total number of log notifications received",
		}),
		WatchReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Storage metrics
		TransfersStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "transfers_stored_total",
			Help:      "Total number of transfer events stored",
		}),
		VolumePointsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "volume_points_stored_total",
			Help:      "Total number of volume rollup points stored",
		}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by store",
		}, []string{"store"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backfill run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched increments the pages fetched counter.
func RecordPageFetched() {
	DefaultMetrics.PagesFetched.Inc()
}

// RecordSignaturesProcessed adds to the signatures processed counter.
func RecordSignaturesProcessed(n int) {
	DefaultMetrics.SignaturesProcessed.Add(float64(n))
}

// RecordFailedTxSkipped increments the failed transaction skip counter.
func RecordFailedTxSkipped() {
	DefaultMetrics.FailedTxSkipped.Inc()
}

// RecordFetchErrorSkipped increments the fetch error skip counter.
func RecordFetchErrorSkipped() {
	DefaultMetrics.FetchErrorsSkipped.Inc()
}

// RecordTransferReconciled increments the reconciled transfers counter.
func RecordTransferReconciled(direction string) {
	DefaultMetrics.TransfersReconciled.WithLabelValues(direction).Inc()
}

// RecordBackfillRun records a completed backfill run.
func RecordBackfillRun(status string, durationSeconds float64) {
	DefaultMetrics.BackfillRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BackfillDuration.Observe(durationSeconds)
}

// RecordWatchNotification increments the watch notifications counter.
func RecordWatchNotification() {
	DefaultMetrics.WatchNotifications.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordStoreError records a storage error.
func RecordStoreError(store string) {
	DefaultMetrics.StoreErrors.WithLabelValues(store).Inc()
}
