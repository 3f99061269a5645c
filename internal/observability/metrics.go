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
	// Copy-trade funnel
	FunnelEvents    *prometheus.CounterVec
	LastCycleAt     prometheus.Gauge
	MonitorRunning  prometheus.Gauge
	SnapshotsStored prometheus.Counter

	// Swap execution
	SwapAttempts     *prometheus.CounterVec
	SwapOutcomes     *prometheus.CounterVec
	SwapLatency      *prometheus.HistogramVec
	SafetyRejections *prometheus.CounterVec
	PlatformFees     *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	VenueCallLatency *prometheus.HistogramVec

	// Side effects
	NotificationErrors *prometheus.CounterVec
	DispatchDropped    prometheus.Counter
	EventsPublished    *prometheus.CounterVec

	// Bots
	BotRunning *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_swap_bot"
	}

	return &Metrics{
		FunnelEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "funnel_events_total",
			Help:      "Copy-trade pipeline funnel events by stage",
		}, []string{"stage"}),
		LastCycleAt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "last_cycle_timestamp",
			Help:      "Unix timestamp of the last completed poll cycle",
		}),
		MonitorRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "monitor_running",
			Help:      "1 while the copy-trade monitor is running",
		}),
		SnapshotsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "copytrade",
			Name:      "snapshots_stored_total",
			Help:      "Total number of pipeline snapshots persisted",
		}),

		SwapAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "swap_attempts_total",
			Help:      "Total number of swap attempts by venue",
		}, []string{"venue"}),
		SwapOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "swap_outcomes_total",
			Help:      "Final swap outcomes by venue, mode and status",
		}, []string{"venue", "mode", "status"}),
		SwapLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "swap_duration_seconds",
			Help:      "End-to-end swap execution duration including retries",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"venue"}),
		SafetyRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "safety_rejections_total",
			Help:      "Transactions rejected by the safety validator",
		}, []string{"venue", "code"}),
		PlatformFees: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "platform_fees_total",
			Help:      "Platform fee transfers by status",
		}, []string{"status"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		VenueCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "call_latency_seconds",
			Help:      "Venue API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"venue", "op"}),

		NotificationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "errors_total",
			Help:      "Failed notification deliveries by kind",
		}, []string{"kind"}),
		DispatchDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dispatch_dropped_total",
			Help:      "Detached jobs dropped because the queue was full or closed",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Events published on the bus by type",
		}, []string{"type"}),

		BotRunning: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "running",
			Help:      "1 while a bot of the given mode is running",
		}, []string{"mode"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFunnel increments the funnel counter for a stage.
func RecordFunnel(stage string, n int) {
	if n <= 0 {
		return
	}
	DefaultMetrics.FunnelEvents.WithLabelValues(stage).Add(float64(n))
}

// RecordCycle updates the last poll cycle timestamp (unix ms).
func RecordCycle(unixMs int64) {
	DefaultMetrics.LastCycleAt.Set(float64(unixMs) / 1000)
}

// SetMonitorRunning sets the monitor running gauge.
func SetMonitorRunning(running bool) {
	DefaultMetrics.MonitorRunning.Set(boolGauge(running))
}

// RecordSnapshotStored increments the persisted snapshot counter.
func RecordSnapshotStored() {
	DefaultMetrics.SnapshotsStored.Inc()
}

// RecordSwapAttempt increments the swap attempt counter.
func RecordSwapAttempt(venue string) {
	DefaultMetrics.SwapAttempts.WithLabelValues(venue).Inc()
}

// RecordSwapOutcome records a terminal swap outcome and its duration.
func RecordSwapOutcome(venue, mode, status string, seconds float64) {
	DefaultMetrics.SwapOutcomes.WithLabelValues(venue, mode, status).Inc()
	DefaultMetrics.SwapLatency.WithLabelValues(venue).Observe(seconds)
}

// RecordSafetyRejection increments the validator rejection counter.
func RecordSafetyRejection(venue, code string) {
	DefaultMetrics.SafetyRejections.WithLabelValues(venue, code).Inc()
}

// RecordPlatformFee records a platform fee transfer outcome.
func RecordPlatformFee(status string) {
	DefaultMetrics.PlatformFees.WithLabelValues(status).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordVenueLatency records venue API latency.
func RecordVenueLatency(venue, op string, seconds float64) {
	DefaultMetrics.VenueCallLatency.WithLabelValues(venue, op).Observe(seconds)
}

// RecordNotificationError increments the notification failure counter.
func RecordNotificationError(kind string) {
	DefaultMetrics.NotificationErrors.WithLabelValues(kind).Inc()
}

// RecordDispatchDropped increments the dropped job counter.
func RecordDispatchDropped() {
	DefaultMetrics.DispatchDropped.Inc()
}

// RecordEventPublished increments the published event counter.
func RecordEventPublished(eventType string) {
	DefaultMetrics.EventsPublished.WithLabelValues(eventType).Inc()
}

// SetBotRunning sets the bot running gauge for a mode.
func SetBotRunning(mode string, running bool) {
	DefaultMetrics.BotRunning.WithLabelValues(mode).Set(boolGauge(running))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
