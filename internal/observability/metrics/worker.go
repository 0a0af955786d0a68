package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	syncTotal          *prometheus.CounterVec
	syncDuration       *prometheus.HistogramVec
	syncInFlight       prometheus.Gauge
	documentsCreated   *prometheus.CounterVec
	duplicatesSkipped  *prometheus.CounterVec
	attachmentFailures *prometheus.CounterVec
	pollRunsTotal      *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	syncTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "sync_total",
			Help:      "Total sync runs by channel and status.",
		},
		[]string{"service", "channel", "status"},
	)
	syncDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "sync_duration_seconds",
			Help:      "Sync run duration in seconds by channel.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "channel"},
	)
	syncInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "sync_in_flight",
			Help:      "Number of in-flight sync runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	documentsCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "documents_created_total",
			Help:      "Total documents created by ingestion channel.",
		},
		[]string{"service", "channel"},
	)
	duplicatesSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "duplicates_skipped_total",
			Help:      "Total candidates skipped as duplicates by channel.",
		},
		[]string{"service", "channel"},
	)
	attachmentFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "attachment_failures_total",
			Help:      "Total attachment downloads that failed during mailbox scans.",
		},
		[]string{"service"},
	)
	pollRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loandocs",
			Subsystem: "worker",
			Name:      "poll_runs_total",
			Help:      "Total periodic mailbox poll rounds by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		syncTotal,
		syncDuration,
		syncInFlight,
		documentsCreated,
		duplicatesSkipped,
		attachmentFailures,
		pollRunsTotal,
	)

	return &WorkerMetrics{
		registry:           registry,
		syncTotal:          syncTotal,
		syncDuration:       syncDuration,
		syncInFlight:       syncInFlight,
		documentsCreated:   documentsCreated,
		duplicatesSkipped:  duplicatesSkipped,
		attachmentFailures: attachmentFailures,
		pollRunsTotal:      pollRunsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSync() {
	m.syncInFlight.Inc()
}

// Sync run outcomes reported to FinishSync. A skipped run is a loan whose
// per-loan gate was already held, not a failure.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
	SyncStatusSkipped = "skipped"
)

func (m *WorkerMetrics) FinishSync(service, channel, status string, duration time.Duration) {
	m.syncInFlight.Dec()

	m.syncTotal.WithLabelValues(service, channel, status).Inc()
	m.syncDuration.WithLabelValues(service, channel).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordDocumentsCreated(service, channel string, count int) {
	if count <= 0 {
		return
	}
	m.documentsCreated.WithLabelValues(service, channel).Add(float64(count))
}

func (m *WorkerMetrics) RecordDuplicatesSkipped(service, channel string, count int) {
	if count <= 0 {
		return
	}
	m.duplicatesSkipped.WithLabelValues(service, channel).Add(float64(count))
}

func (m *WorkerMetrics) RecordAttachmentFailures(service string, count int) {
	if count <= 0 {
		return
	}
	m.attachmentFailures.WithLabelValues(service).Add(float64(count))
}

func (m *WorkerMetrics) RecordPollRun(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.pollRunsTotal.WithLabelValues(service, status).Inc()
}
