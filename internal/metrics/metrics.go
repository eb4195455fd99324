// Package metrics provides Prometheus metrics collection for every
// component named in spec.md §2, grounded on the teacher's
// infrastructure/metrics.Metrics (CounterVec/HistogramVec/Gauge
// registration shape), re-keyed from blockchain-transaction labels to the
// memory service's ingestion/retrieval/persistence/intent/maintenance
// operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the service registers.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ErrorsTotal *prometheus.CounterVec

	IngestionRunsTotal      *prometheus.CounterVec
	IngestionMemoriesTotal  *prometheus.CounterVec
	IngestionDuration       prometheus.Histogram

	RetrievalRequestsTotal *prometheus.CounterVec
	RetrievalDuration      prometheus.Histogram
	RetrievalDegradedTotal *prometheus.CounterVec
	RetrievalResultCount   prometheus.Histogram

	PersistenceAttemptsTotal *prometheus.CounterVec
	PersistenceDuration      *prometheus.HistogramVec

	IntentFiresTotal   *prometheus.CounterVec
	IntentPendingGauge prometheus.Gauge

	MaintenanceRunsTotal *prometheus.CounterVec
	MaintenanceDuration  *prometheus.HistogramVec

	StoreHealthUp *prometheus.GaugeVec

	ServiceInfo *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(serviceName, version string) *Metrics {
	return NewWithRegistry(serviceName, version, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// allowing tests to use a private registry instead of the global default.
func NewWithRegistry(serviceName, version string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "http_requests_in_flight", Help: "Current number of in-flight HTTP requests"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "errors_total", Help: "Total number of service errors by taxonomy code"},
			[]string{"code", "operation"},
		),

		IngestionRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ingestion_runs_total", Help: "Total extraction pipeline runs"},
			[]string{"worthy"},
		),
		IngestionMemoriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "ingestion_memories_total", Help: "Memories produced by the extraction pipeline"},
			[]string{"outcome"}, // created | duplicate | updated
		),
		IngestionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingestion_duration_seconds",
				Help:    "Extraction pipeline run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		RetrievalRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "retrieval_requests_total", Help: "Total hybrid retrieval calls"},
			[]string{"has_query"},
		),
		RetrievalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_duration_seconds",
				Help:    "Hybrid retrieval call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		RetrievalDegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "retrieval_degraded_branches_total", Help: "Retrieval branches that degraded to partial results"},
			[]string{"branch"},
		),
		RetrievalResultCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_result_count",
				Help:    "Number of memories returned per retrieval call",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),

		PersistenceAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "persistence_attempts_total", Help: "Persistence orchestrator write attempts by adapter and outcome"},
			[]string{"adapter", "ok"},
		),
		PersistenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "persistence_write_duration_seconds",
				Help:    "Per-adapter write duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
			},
			[]string{"adapter"},
		),

		IntentFiresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "intent_fires_total", Help: "Scheduled-intent fire callbacks by status"},
			[]string{"status"},
		),
		IntentPendingGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "intent_pending_count", Help: "Most recently observed count of due scheduled intents"},
		),

		MaintenanceRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "maintenance_runs_total", Help: "Maintenance engine runs by outcome"},
			[]string{"outcome"}, // ok | lock_conflict | error
		),
		MaintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maintenance_job_duration_seconds",
				Help:    "Maintenance job duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			},
			[]string{"job"},
		),

		StoreHealthUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "store_health_up", Help: "1 if the adapter's last health check succeeded, else 0"},
			[]string{"adapter"},
		),

		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "service_info", Help: "Service build information"},
			[]string{"service", "version"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal, m.RequestDuration, m.RequestsInFlight,
			m.ErrorsTotal,
			m.IngestionRunsTotal, m.IngestionMemoriesTotal, m.IngestionDuration,
			m.RetrievalRequestsTotal, m.RetrievalDuration, m.RetrievalDegradedTotal, m.RetrievalResultCount,
			m.PersistenceAttemptsTotal, m.PersistenceDuration,
			m.IntentFiresTotal, m.IntentPendingGauge,
			m.MaintenanceRunsTotal, m.MaintenanceDuration,
			m.StoreHealthUp,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, version).Set(1)
	return m
}

// RecordHTTPRequest records one completed HTTP request/response cycle.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments the error taxonomy counter for one failed operation.
func (m *Metrics) RecordError(code, operation string) {
	m.ErrorsTotal.WithLabelValues(code, operation).Inc()
}

// RecordIngestion records one extraction-pipeline run's outcome.
func (m *Metrics) RecordIngestion(worthy bool, created, duplicates, updates int, duration time.Duration) {
	m.IngestionRunsTotal.WithLabelValues(boolLabel(worthy)).Inc()
	m.IngestionMemoriesTotal.WithLabelValues("created").Add(float64(created))
	m.IngestionMemoriesTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	m.IngestionMemoriesTotal.WithLabelValues("updated").Add(float64(updates))
	m.IngestionDuration.Observe(duration.Seconds())
}

// RecordRetrieval records one hybrid retrieval call.
func (m *Metrics) RecordRetrieval(hasQuery bool, resultCount int, degraded []string, duration time.Duration) {
	m.RetrievalRequestsTotal.WithLabelValues(boolLabel(hasQuery)).Inc()
	m.RetrievalDuration.Observe(duration.Seconds())
	m.RetrievalResultCount.Observe(float64(resultCount))
	for _, branch := range degraded {
		m.RetrievalDegradedTotal.WithLabelValues(branch).Inc()
	}
}

// RecordPersistenceAttempt records one adapter write within a fan-out.
func (m *Metrics) RecordPersistenceAttempt(adapter string, ok bool, duration time.Duration) {
	m.PersistenceAttemptsTotal.WithLabelValues(adapter, boolLabel(ok)).Inc()
	m.PersistenceDuration.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordIntentFire records one scheduled-intent fire callback.
func (m *Metrics) RecordIntentFire(status string) {
	m.IntentFiresTotal.WithLabelValues(status).Inc()
}

// SetIntentPending records the most recent pending-intent count observed by
// the poll loop.
func (m *Metrics) SetIntentPending(n int) {
	m.IntentPendingGauge.Set(float64(n))
}

// RecordMaintenanceRun records one maintenance-engine invocation.
func (m *Metrics) RecordMaintenanceRun(outcome string, jobDurations map[string]time.Duration) {
	m.MaintenanceRunsTotal.WithLabelValues(outcome).Inc()
	for job, d := range jobDurations {
		m.MaintenanceDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}

// SetStoreHealth records the adapter's most recent health-check result.
func (m *Metrics) SetStoreHealth(adapter string, ok bool) {
	v := 0.0
	if ok {
		v = 1.0
	}
	m.StoreHealthUp.WithLabelValues(adapter).Set(v)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
