package health

import (
	"testing"
	"time"

	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricsAt(deviceID string, mt model.MetricType, values ...float64) []model.Metric {
	out := make([]model.Metric, 0, len(values))
	now := time.Now()
	for i, v := range values {
		out = append(out, model.Metric{
			DeviceID:  deviceID,
			Type:      mt,
			Value:     v,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}
	return out
}

func TestCPUSpikeProducesCriticalAlert(t *testing.T) {
	e := New(DefaultThresholds(), 1000, nil)

	var alerts []model.Alert
	for _, m := range metricsAt("d1", model.MetricCPU, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50) {
		alerts = append(alerts, e.ProcessMetrics([]model.Metric{m})...)
	}
	assert.Empty(t, alerts)

	spike := metricsAt("d1", model.MetricCPU, 90)
	alerts = e.ProcessMetrics(spike)

	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, 85.0, alerts[0].ThresholdValue)
	assert.Equal(t, "d1", alerts[0].DeviceID)
}

func TestSeriesLengthIncreasesByOnePerMetric(t *testing.T) {
	e := New(DefaultThresholds(), 1000, nil)
	e.ProcessMetrics(metricsAt("d2", model.MetricCPU, 10))
	health := e.DeviceHealth("d2")
	assert.Equal(t, 1, len(health.Metrics))
	summary := health.Metrics[model.MetricCPU]
	assert.Equal(t, 10.0, summary.Latest)
}

func TestEvaluationOrderPicksHighestTier(t *testing.T) {
	e := New(DefaultThresholds(), 1000, nil)
	alerts := e.ProcessMetrics(metricsAt("d3", model.MetricCPU, 97))
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityEmergency, alerts[0].Severity)
}

func TestDeviceHealthHealthyWithoutAlerts(t *testing.T) {
	e := New(DefaultThresholds(), 1000, nil)
	e.ProcessMetrics(metricsAt("d4", model.MetricCPU, 10, 20, 30))
	health := e.DeviceHealth("d4")
	assert.Equal(t, model.Severity("healthy"), health.Status)
}

func TestDeviceHealthTrendIncreasing(t *testing.T) {
	e := New(DefaultThresholds(), 1000, nil)
	values := []float64{10, 10, 10, 10, 10, 40, 42, 44, 46, 48}
	e.ProcessMetrics(metricsAt("d5", model.MetricMemory, values...))
	health := e.DeviceHealth("d5")
	assert.Equal(t, TrendIncreasing, health.Metrics[model.MetricMemory].Trend)
}

func TestUnknownMetricTypeNeverAlerts(t *testing.T) {
	e := New(DefaultThresholds(), 1000, nil)
	alerts := e.ProcessMetrics(metricsAt("d6", model.MetricBGPPrefixes, 99999))
	assert.Empty(t, alerts)
}

func TestDeviceHealthReflectsCurrentlyActiveAlertsOnly(t *testing.T) {
	mgr := alert.New(nil)
	e := New(DefaultThresholds(), 1000, mgr)
	e.ProcessMetrics(metricsAt("d7", model.MetricCPU, 10, 20, 30))
	require.Equal(t, model.Severity("healthy"), e.DeviceHealth("d7").Status)

	added := mgr.Add(model.Alert{DeviceID: "d7", Severity: model.SeverityCritical, MetricType: model.MetricCPU})
	assert.Equal(t, model.SeverityCritical, e.DeviceHealth("d7").Status)

	_, err := mgr.Resolve(added.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Severity("healthy"), e.DeviceHealth("d7").Status)
}
