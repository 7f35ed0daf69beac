package sla

import (
	"testing"

	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordValues(e *Evaluator, deviceID string, mt model.MetricType, values ...float64) {
	for _, v := range values {
		e.RecordMetric(model.Metric{DeviceID: deviceID, Type: mt, Value: v})
	}
}

func TestEvaluateUsesMeanOfLastTenSamples(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "uptime", MetricType: model.MetricUptime, TargetValue: 99.9, Comparison: model.ComparisonGreaterThan})

	values := make([]float64, 20)
	for i := range values {
		values[i] = 50
	}
	values[19] = 100
	recordValues(e, "d1", model.MetricUptime, values...)

	report, ok := e.Evaluate("uptime")
	require.True(t, ok)
	// last 10 samples: nine 50s and one 100 -> mean 55
	assert.InDelta(t, 55.0, report.CurrentValue, 0.001)
}

func TestEvaluateFewerThanTenSamplesUsesAllOfThem(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "lat", MetricType: model.MetricLatency, TargetValue: 50, Comparison: model.ComparisonLessThan})
	recordValues(e, "d1", model.MetricLatency, 10, 20, 30)

	report, ok := e.Evaluate("lat")
	require.True(t, ok)
	assert.InDelta(t, 20.0, report.CurrentValue, 0.001)
}

func TestEvaluateGreaterThanComparisonIsMet(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "uptime", MetricType: model.MetricUptime, TargetValue: 99.0, Comparison: model.ComparisonGreaterThan})
	recordValues(e, "d1", model.MetricUptime, 99.5, 99.6, 99.7)

	report, ok := e.Evaluate("uptime")
	require.True(t, ok)
	assert.True(t, report.IsMet)
	assert.Equal(t, 0, report.ViolationCount)
}

func TestEvaluateLessThanComparisonCountsViolations(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "lat", MetricType: model.MetricLatency, TargetValue: 100, Comparison: model.ComparisonLessThan})
	recordValues(e, "d1", model.MetricLatency, 50, 150, 80, 200)

	report, ok := e.Evaluate("lat")
	require.True(t, ok)
	assert.Equal(t, 2, report.ViolationCount)
	assert.Equal(t, 4, report.SampleCount)
	assert.InDelta(t, 50.0, report.CompliancePct, 0.001)
}

func TestEvaluateFiltersByDeviceWhenTargetScoped(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "d1-lat", MetricType: model.MetricLatency, DeviceID: "d1", TargetValue: 100, Comparison: model.ComparisonLessThan})
	recordValues(e, "d1", model.MetricLatency, 10, 20)
	recordValues(e, "d2", model.MetricLatency, 9000, 9000)

	report, ok := e.Evaluate("d1-lat")
	require.True(t, ok)
	assert.Equal(t, 2, report.SampleCount)
	assert.True(t, report.IsMet)
}

func TestEvaluateUnknownTargetReturnsFalse(t *testing.T) {
	e := New()
	_, ok := e.Evaluate("missing")
	assert.False(t, ok)
}

func TestEvaluateNoSamplesYetReturnsZeroSampleCount(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "lat", MetricType: model.MetricLatency, TargetValue: 100, Comparison: model.ComparisonLessThan})
	report, ok := e.Evaluate("lat")
	require.True(t, ok)
	assert.Equal(t, 0, report.SampleCount)
}

func TestSeriesTrimsToMaxSamples(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "lat", MetricType: model.MetricLatency, TargetValue: 100, Comparison: model.ComparisonLessThan})
	for i := 0; i < maxSeriesSamples+100; i++ {
		e.RecordMetric(model.Metric{DeviceID: "d1", Type: model.MetricLatency, Value: 1})
	}
	report, ok := e.Evaluate("lat")
	require.True(t, ok)
	assert.Equal(t, maxSeriesSamples, report.SampleCount)
}

func TestEvaluateAllReturnsReportPerTarget(t *testing.T) {
	e := New()
	e.SetTarget(model.SLATarget{ID: "a", MetricType: model.MetricLatency, TargetValue: 100, Comparison: model.ComparisonLessThan})
	e.SetTarget(model.SLATarget{ID: "b", MetricType: model.MetricUptime, TargetValue: 99, Comparison: model.ComparisonGreaterThan})
	recordValues(e, "d1", model.MetricLatency, 10)
	recordValues(e, "d1", model.MetricUptime, 99.9)

	reports := e.EvaluateAll()
	assert.Len(t, reports, 2)
}
