package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the ingest pipeline.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	requestDuration   *prometheus.HistogramVec
	jobsSubmitted     prometheus.Counter
	jobsFinished      *prometheus.CounterVec
	activeJobs        prometheus.Gauge
	transcodeDuration prometheus.Histogram
	auditFindings     *prometheus.CounterVec
	auditSweeps       prometheus.Counter
	catalogRecords    prometheus.Gauge
}

// New creates and registers Prometheus metrics for the pipeline.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hls_request_duration_seconds",
		Help:    "HTTP request latency by method and chi route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	jobsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_jobs_submitted_total",
		Help: "Total number of transcode jobs accepted",
	})
	jobsFinished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_jobs_finished_total",
		Help: "Transcode jobs that reached a terminal state, by state and failure kind",
	}, []string{"state", "kind"})
	activeJobs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_active_jobs",
		Help: "Number of transcode jobs currently running",
	})
	transcodeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hls_transcode_duration_seconds",
		Help:    "Wall time of transcode jobs from start to terminal state",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600},
	})
	auditFindings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hls_audit_findings_total",
		Help: "Findings reported by consistency audits, by kind",
	}, []string{"kind"})
	auditSweeps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hls_audit_sweeps_total",
		Help: "Total number of completed audit sweeps",
	})
	catalogRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hls_catalog_records",
		Help: "Number of lines in the catalog",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		requestDuration,
		jobsSubmitted,
		jobsFinished,
		activeJobs,
		transcodeDuration,
		auditFindings,
		auditSweeps,
		catalogRecords,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		requestDuration:   requestDuration,
		jobsSubmitted:     jobsSubmitted,
		jobsFinished:      jobsFinished,
		activeJobs:        activeJobs,
		transcodeDuration: transcodeDuration,
		auditFindings:     auditFindings,
		auditSweeps:       auditSweeps,
		catalogRecords:    catalogRecords,
	}
}

// ObserveRequest records one served request. Statuses of 400 and above also
// count as errors.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestsTotal.Inc()
	if status >= http.StatusBadRequest {
		m.errorsTotal.Inc()
	}
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// IncJobsSubmitted increments the accepted jobs counter.
func (m *Metrics) IncJobsSubmitted() {
	m.jobsSubmitted.Inc()
}

// JobStarted marks one more job as running.
func (m *Metrics) JobStarted() {
	m.activeJobs.Inc()
}

// JobFinished records a terminal job. kind is empty for successful jobs.
func (m *Metrics) JobFinished(state, kind string, elapsed time.Duration) {
	m.activeJobs.Dec()
	m.jobsFinished.WithLabelValues(state, kind).Inc()
	m.transcodeDuration.Observe(elapsed.Seconds())
}

// AddAuditFindings adds n findings of the given kind.
func (m *Metrics) AddAuditFindings(kind string, n int) {
	m.auditFindings.WithLabelValues(kind).Add(float64(n))
}

// IncAuditSweeps increments the completed sweep counter.
func (m *Metrics) IncAuditSweeps() {
	m.auditSweeps.Inc()
}

// SetCatalogRecords sets the catalog size gauge.
func (m *Metrics) SetCatalogRecords(n int) {
	m.catalogRecords.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. catalog size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
