package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Task metrics
	TasksDispatched *prometheus.CounterVec
	TasksCompleted  *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec

	// Context metrics
	ContextsActive  prometheus.Gauge
	ContextsCreated prometheus.Counter

	// Snapshot metrics
	SnapshotsSaved    prometheus.Counter
	SnapshotsRestored prometheus.Counter

	// System metrics
	startTime time.Time
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics returns the process-wide metrics collector. Collectors
// register with the default Prometheus registry, which permits each
// name exactly once.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics()
	})
	return metrics
}

func newMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isolate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		TasksDispatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolate_tasks_dispatched_total",
				Help: "Tasks dispatched by completion mode",
			},
			[]string{"mode"},
		),
		TasksCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isolate_tasks_completed_total",
				Help: "Tasks completed by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		TaskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isolate_task_duration_seconds",
				Help:    "End-to-end task duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"mode"},
		),

		ContextsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "isolate_contexts_active",
				Help: "Number of live execution contexts",
			},
		),
		ContextsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "isolate_contexts_created_total",
				Help: "Total contexts created",
			},
		),

		SnapshotsSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "isolate_snapshots_saved_total",
				Help: "Total snapshots saved",
			},
		),
		SnapshotsRestored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "isolate_snapshots_restored_total",
				Help: "Total snapshots restored",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDispatch records a task dispatch
func (m *Metrics) RecordDispatch(mode string) {
	m.TasksDispatched.WithLabelValues(mode).Inc()
}

// RecordTask records a completed task
func (m *Metrics) RecordTask(mode, status string, duration time.Duration) {
	m.TasksCompleted.WithLabelValues(mode, status).Inc()
	m.TaskDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// ContextOpened records a new live context
func (m *Metrics) ContextOpened() {
	m.ContextsCreated.Inc()
	m.ContextsActive.Inc()
}

// ContextClosed records a context teardown
func (m *Metrics) ContextClosed() {
	m.ContextsActive.Dec()
}

// Uptime returns time since the collector was created
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
