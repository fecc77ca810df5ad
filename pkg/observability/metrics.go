package observability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a single tool run. Batch runs do
// not serve /metrics; WriteTextfile dumps them for the node-exporter textfile
// collector instead.
type Metrics struct {
	registry *prometheus.Registry

	// Harbor API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Provisioning metrics
	RowResultsTotal      *prometheus.CounterVec
	UsersCreatedTotal    prometheus.Counter
	ProjectsCreatedTotal prometheus.Counter

	// Run metrics
	RunDurationSeconds prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge
}

// NewMetrics creates and registers all metrics. A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harbor_usertools_api_requests_total",
				Help: "Total number of Harbor API requests",
			},
			[]string{"operation", "code"},
		),
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harbor_usertools_api_request_duration_seconds",
				Help:    "Harbor API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		RowResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harbor_usertools_row_results_total",
				Help: "Total number of provisioning results by status",
			},
			[]string{"status"},
		),
		UsersCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_usertools_users_created_total",
				Help: "Total number of users created",
			},
		),
		ProjectsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "harbor_usertools_projects_created_total",
				Help: "Total number of projects created",
			},
		),

		RunDurationSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "harbor_usertools_run_duration_seconds",
				Help: "Duration of the last provisioning run in seconds",
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "harbor_usertools_last_run_timestamp_seconds",
				Help: "Unix time the last provisioning run finished",
			},
		),
	}

	registry.MustRegister(
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.RowResultsTotal,
		m.UsersCreatedTotal,
		m.ProjectsCreatedTotal,
		m.RunDurationSeconds,
		m.LastRunTimestamp,
	)

	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAPICall records one Harbor API call. code 0 means the request never
// got a response.
func (m *Metrics) ObserveAPICall(operation string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.APIRequestsTotal.WithLabelValues(operation, label).Inc()
	m.APIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordResult counts one provisioning result
func (m *Metrics) RecordResult(status string) {
	if m == nil {
		return
	}
	m.RowResultsTotal.WithLabelValues(status).Inc()
}

// RecordUserCreated counts a created user
func (m *Metrics) RecordUserCreated() {
	if m == nil {
		return
	}
	m.UsersCreatedTotal.Inc()
}

// RecordProjectCreated counts a created project
func (m *Metrics) RecordProjectCreated() {
	if m == nil {
		return
	}
	m.ProjectsCreatedTotal.Inc()
}

// RecordRun records the duration and completion time of a run
func (m *Metrics) RecordRun(duration time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.RunDurationSeconds.Set(duration.Seconds())
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format to path
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
