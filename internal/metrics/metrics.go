// Package metrics defines Prometheus metrics for the sync service.
//
// Metric naming follows Prometheus conventions:
//   - oxisync_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SyncCyclesTotal counts reconciliation cycles by outcome.
	SyncCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxisync_sync_cycles_total",
			Help: "Total reconciliation cycles by result.",
		},
		[]string{"result"},
	)

	// SyncCycleDurationSeconds is a histogram of cycle wall time.
	SyncCycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oxisync_sync_cycle_duration_seconds",
			Help:    "Duration of reconciliation cycles in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Devices is the size of the last committed snapshot.
	Devices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oxisync_devices",
			Help: "Number of devices in the current snapshot.",
		},
	)

	// RecordsSkippedTotal counts source records left out of a snapshot.
	RecordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxisync_records_skipped_total",
			Help: "Total source records skipped by reason.",
		},
		[]string{"reason"},
	)

	// NotificationsTotal counts change notifications by notifier and result.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxisync_notifications_total",
			Help: "Total change notifications by notifier and result.",
		},
		[]string{"notifier", "result"},
	)

	// AccessDeniedTotal counts requests rejected by the allow-list.
	AccessDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oxisync_access_denied_total",
			Help: "Total requests rejected by the client allow-list.",
		},
	)
)

// Registry holds every metric served on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SyncCyclesTotal,
		SyncCycleDurationSeconds,
		Devices,
		RecordsSkippedTotal,
		NotificationsTotal,
		AccessDeniedTotal,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordCycle records the outcome of one reconciliation cycle.
func RecordCycle(result string, duration time.Duration) {
	SyncCyclesTotal.WithLabelValues(result).Inc()
	SyncCycleDurationSeconds.Observe(duration.Seconds())
}

// RecordSkipped adds n skipped records for reason.
func RecordSkipped(reason string, n int) {
	if n > 0 {
		RecordsSkippedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordNotification records one notification attempt.
func RecordNotification(notifier string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotificationsTotal.WithLabelValues(notifier, result).Inc()
}
