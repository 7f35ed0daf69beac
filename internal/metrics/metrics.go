// Package metrics provides Prometheus metrics collection for netopshub.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors exposed on /metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Collector metrics
	CollectionsTotal   *prometheus.CounterVec
	CollectionDuration *prometheus.HistogramVec
	CollectorErrors    *prometheus.CounterVec

	// Domain metrics
	DevicesTracked      prometheus.Gauge
	AlertsActive        *prometheus.GaugeVec
	AnomaliesDetected   *prometheus.CounterVec
	ComplianceScore     *prometheus.GaugeVec
	SLAUptimeRatio      *prometheus.GaugeVec
	RemediationAttempts *prometheus.CounterVec

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a Metrics instance registered against the default registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against a custom
// registerer, so tests can avoid colliding with the global default.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		CollectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collection_runs_total",
				Help: "Total number of collector runs",
			},
			[]string{"collector", "status"},
		),
		CollectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collection_duration_seconds",
				Help:    "Collector run duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
			},
			[]string{"collector"},
		),
		CollectorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_errors_total",
				Help: "Total number of collector errors by kind",
			},
			[]string{"collector", "kind"},
		),

		DevicesTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "devices_tracked",
				Help: "Current number of devices known to the topology graph",
			},
		),
		AlertsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alerts_active",
				Help: "Current number of active alerts by severity",
			},
			[]string{"severity"},
		),
		AnomaliesDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anomalies_detected_total",
				Help: "Total number of anomalies detected by detector kind",
			},
			[]string{"detector", "metric"},
		),
		ComplianceScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "compliance_score",
				Help: "Current compliance score by framework",
			},
			[]string{"framework"},
		),
		SLAUptimeRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sla_uptime_ratio",
				Help: "Current rolling uptime ratio by device",
			},
			[]string{"device_id"},
		),
		RemediationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remediation_attempts_total",
				Help: "Total number of remediation actions attempted",
			},
			[]string{"action", "status"},
		),

		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service build information",
			},
			[]string{"service", "version"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.CollectionsTotal,
			m.CollectionDuration,
			m.CollectorErrors,
			m.DevicesTracked,
			m.AlertsActive,
			m.AnomaliesDetected,
			m.ComplianceScore,
			m.SLAUptimeRatio,
			m.RemediationAttempts,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0").Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request outcome.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordCollection records a collector run outcome.
func (m *Metrics) RecordCollection(collector, status string, duration time.Duration) {
	m.CollectionsTotal.WithLabelValues(collector, status).Inc()
	m.CollectionDuration.WithLabelValues(collector).Observe(duration.Seconds())
}

// RecordCollectorError increments the error counter for a collector/kind pair.
func (m *Metrics) RecordCollectorError(collector, kind string) {
	m.CollectorErrors.WithLabelValues(collector, kind).Inc()
}

// SetAlertsActive sets the current active-alert gauge for a severity.
func (m *Metrics) SetAlertsActive(severity string, count int) {
	m.AlertsActive.WithLabelValues(severity).Set(float64(count))
}

// RecordAnomaly increments the anomaly counter for a detector/metric pair.
func (m *Metrics) RecordAnomaly(detector, metric string) {
	m.AnomaliesDetected.WithLabelValues(detector, metric).Inc()
}

// SetComplianceScore sets the compliance gauge for a framework.
func (m *Metrics) SetComplianceScore(framework string, score float64) {
	m.ComplianceScore.WithLabelValues(framework).Set(score)
}

// SetSLAUptimeRatio sets the rolling uptime ratio gauge for a device.
func (m *Metrics) SetSLAUptimeRatio(deviceID string, ratio float64) {
	m.SLAUptimeRatio.WithLabelValues(deviceID).Set(ratio)
}

// RecordRemediation records a remediation attempt outcome.
func (m *Metrics) RecordRemediation(action, status string) {
	m.RemediationAttempts.WithLabelValues(action, status).Inc()
}

// UpdateUptime sets the service uptime gauge from a process start time.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight HTTP request gauge.
func (m *Metrics) IncrementInFlight() { m.RequestsInFlight.Inc() }

// DecrementInFlight decrements the in-flight HTTP request gauge.
func (m *Metrics) DecrementInFlight() { m.RequestsInFlight.Dec() }

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance, if not already initialized.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance, initializing a fallback one
// if Init was never called.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = New("netopshub")
	}
	return globalMetrics
}
