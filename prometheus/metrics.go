package prometheus

import (
	"sync"
	"time"

	"github.com/suteetoe/leasedesk/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

const defaultPrefix = "leasedesk"

var (
	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthErrorsCounter   *prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Lease lifecycle metrics
	LeaseOperationsCounter *prometheus.CounterVec

	// Side effect metrics
	NotificationsCreatedCounter prometheus.Counter
	SideEffectFailuresCounter   *prometheus.CounterVec
	OutboxPendingGauge          prometheus.Gauge

	registerOnce sync.Once
)

func init() {
	build(defaultPrefix)
}

// build creates the collectors. They are only exported once InitMetrics
// registers them, so packages can record before startup and in tests.
func build(prefix string) {
	AuthAttemptsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors by reason",
		},
		[]string{"reason"},
	)

	DbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	LeaseOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_lease_operations_total",
			Help: "Total number of lease lifecycle operations by result",
		},
		[]string{"operation", "result"},
	)

	NotificationsCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_notifications_created_total",
			Help: "Total number of notification rows created",
		},
	)

	SideEffectFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_side_effect_failures_total",
			Help: "Total number of failed post-commit side effects by kind",
		},
		[]string{"kind"},
	)

	OutboxPendingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_outbox_pending",
			Help: "Number of undelivered outbox messages seen by the last relay pass",
		},
	)
}

// InitMetrics rebuilds the collectors with the configured prefix and
// registers them with the default registry
func InitMetrics(cfg *config.Config) {
	registerOnce.Do(func() {
		prefix := cfg.Metrics.Prefix
		if prefix == "" {
			prefix = defaultPrefix
		}
		build(prefix)

		prometheus.MustRegister(
			AuthAttemptsCounter,
			AuthErrorsCounter,
			DbOperationDuration,
			LeaseOperationsCounter,
			NotificationsCreatedCounter,
			SideEffectFailuresCounter,
			OutboxPendingGauge,
		)
	})
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordLeaseOperation counts a lease operation outcome
func RecordLeaseOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	LeaseOperationsCounter.WithLabelValues(operation, result).Inc()
}

// RecordAuthError counts a failed authentication by reason
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordSideEffectFailure counts a failed audit, notification or event delivery
func RecordSideEffectFailure(kind string) {
	SideEffectFailuresCounter.WithLabelValues(kind).Inc()
}
