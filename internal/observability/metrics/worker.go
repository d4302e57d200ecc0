package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	indexTotal    *prometheus.CounterVec
	indexDuration *prometheus.HistogramVec
	indexInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "indexer",
			Name:      "snapshots_total",
			Help:      "Total indexed snapshots by status.",
		},
		[]string{"service", "source_type", "status"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsa",
			Subsystem: "indexer",
			Name:      "snapshot_duration_seconds",
			Help:      "Snapshot indexing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	indexInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wsa",
			Subsystem: "indexer",
			Name:      "snapshots_in_flight",
			Help:      "Number of snapshots currently being indexed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(indexTotal, indexDuration, indexInFlight)

	return &WorkerMetrics{
		registry:      registry,
		indexTotal:    indexTotal,
		indexDuration: indexDuration,
		indexInFlight: indexInFlight,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSnapshot() {
	m.indexInFlight.Inc()
}

func (m *WorkerMetrics) FinishSnapshot(sourceType, status string, duration time.Duration) {
	m.indexInFlight.Dec()
	m.indexTotal.WithLabelValues("worker", sourceType, status).Inc()
	m.indexDuration.WithLabelValues("worker", status).Observe(duration.Seconds())
}
