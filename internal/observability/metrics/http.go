package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal            *prometheus.CounterVec
	queryDuration         *prometheus.HistogramVec
	retrievalHitTotal     *prometheus.CounterVec
	noContextTotal        *prometheus.CounterVec
	retrievedSources      *prometheus.HistogramVec
	rerankDuration        *prometheus.HistogramVec
	toolCallsTotal        *prometheus.CounterVec
	guardrailRefusalTotal *prometheus.CounterVec
	orchestratorSteps     *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wsa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "assistant",
			Name:      "queries_total",
			Help:      "Total completed assistant queries by intent and status.",
		},
		[]string{"service", "intent", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsa",
			Subsystem: "assistant",
			Name:      "query_duration_seconds",
			Help:      "Assistant query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total queries with at least one retrieved source.",
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total queries without retrieved sources.",
		},
		[]string{"service"},
	)
	retrievedSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsa",
			Subsystem: "retrieval",
			Name:      "sources",
			Help:      "Distribution of sources returned per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	rerankDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsa",
			Subsystem: "retrieval",
			Name:      "rerank_duration_seconds",
			Help:      "Cross-encoder rerank duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	toolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total tool calls performed by the orchestrator.",
		},
		[]string{"service", "tool", "status"},
	)
	guardrailRefusalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wsa",
			Subsystem: "tools",
			Name:      "guardrail_refusals_total",
			Help:      "Total destructive tool calls refused for missing confirmation.",
		},
		[]string{"service", "tool"},
	)
	orchestratorSteps := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wsa",
			Subsystem: "tools",
			Name:      "orchestrator_iterations",
			Help:      "Distribution of orchestrator loop iterations per query.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		retrievalHitTotal,
		noContextTotal,
		retrievedSources,
		rerankDuration,
		toolCallsTotal,
		guardrailRefusalTotal,
		orchestratorSteps,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		queryTotal:            queryTotal,
		queryDuration:         queryDuration,
		retrievalHitTotal:     retrievalHitTotal,
		noContextTotal:        noContextTotal,
		retrievedSources:      retrievedSources,
		rerankDuration:        rerankDuration,
		toolCallsTotal:        toolCallsTotal,
		guardrailRefusalTotal: guardrailRefusalTotal,
		orchestratorSteps:     orchestratorSteps,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// AssistantObserver binds the assistant metric families to one service
// label so the usecases can record without knowing about prometheus.
type AssistantObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) AssistantObserver(service string) *AssistantObserver {
	return &AssistantObserver{metrics: m, service: service}
}

func (o *AssistantObserver) RecordQuery(intent, status string, sourceCount int, duration time.Duration) {
	o.metrics.RecordQuery(o.service, intent, status, sourceCount, duration)
}

func (o *AssistantObserver) RecordRerank(duration time.Duration) {
	o.metrics.RecordRerank(o.service, duration)
}

func (o *AssistantObserver) RecordToolCall(tool, status string) {
	o.metrics.RecordToolCall(o.service, tool, status)
}

func (o *AssistantObserver) RecordGuardrailRefusal(tool string) {
	o.metrics.RecordGuardrailRefusal(o.service, tool)
}

func (o *AssistantObserver) RecordOrchestratorRun(iterations int) {
	o.metrics.RecordOrchestratorRun(o.service, iterations)
}

func (m *HTTPServerMetrics) RecordQuery(service, intent, status string, sourceCount int, duration time.Duration) {
	m.queryTotal.WithLabelValues(service, intent, status).Inc()
	m.queryDuration.WithLabelValues(service, intent).Observe(duration.Seconds())
	m.retrievedSources.WithLabelValues(service).Observe(float64(sourceCount))
	if sourceCount > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
	} else {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRerank(service string, duration time.Duration) {
	m.rerankDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordToolCall(service, tool, status string) {
	m.toolCallsTotal.WithLabelValues(service, tool, status).Inc()
}

func (m *HTTPServerMetrics) RecordGuardrailRefusal(service, tool string) {
	m.guardrailRefusalTotal.WithLabelValues(service, tool).Inc()
}

func (m *HTTPServerMetrics) RecordOrchestratorRun(service string, iterations int) {
	m.orchestratorSteps.WithLabelValues(service).Observe(float64(iterations))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}
