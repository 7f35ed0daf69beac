package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewWithRegistry("test-service", prometheus.NewRegistry())
}

func TestRecordHTTPRequestObserves(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordHTTPRequest("netopshub", "GET", "/alerts", "200", 15*time.Millisecond)
	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("netopshub", "GET", "/alerts", "200"))
	assert.Equal(t, float64(1), count)
}

func TestRecordCollectorError(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordCollectorError("poll", "timeout")
	count := testutil.ToFloat64(m.CollectorErrors.WithLabelValues("poll", "timeout"))
	assert.Equal(t, float64(1), count)
}

func TestSetAlertsActive(t *testing.T) {
	m := newTestMetrics(t)
	m.SetAlertsActive("critical", 3)
	val := testutil.ToFloat64(m.AlertsActive.WithLabelValues("critical"))
	assert.Equal(t, float64(3), val)
}

func TestInFlightIncrementDecrement(t *testing.T) {
	m := newTestMetrics(t)
	m.IncrementInFlight()
	m.IncrementInFlight()
	m.DecrementInFlight()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsInFlight))
}

func TestRecordAnomalyAndComplianceScore(t *testing.T) {
	m := newTestMetrics(t)
	m.RecordAnomaly("zscore", "latency_ms")
	m.SetComplianceScore("cis", 0.92)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AnomaliesDetected.WithLabelValues("zscore", "latency_ms")))
	assert.Equal(t, 0.92, testutil.ToFloat64(m.ComplianceScore.WithLabelValues("cis")))
}
