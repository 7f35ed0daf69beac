// Package health evaluates threshold crossings over the metric stream
// and aggregates per-device rolling statistics.
package health

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/model"
)

// Thresholds holds the warning/critical/emergency bars for one metric type.
// Crossings are evaluated ">=" in emergency -> critical -> warning order.
type Thresholds struct {
	Warning         float64
	Critical        float64
	HasEmergency    bool
	Emergency       float64
}

// DefaultThresholds returns the built-in threshold set used by the
// reference deployment and the end-to-end test scenarios.
func DefaultThresholds() map[model.MetricType]Thresholds {
	return map[model.MetricType]Thresholds{
		model.MetricCPU:         {Warning: 70, Critical: 85, HasEmergency: true, Emergency: 95},
		model.MetricMemory:      {Warning: 75, Critical: 90, HasEmergency: true, Emergency: 98},
		model.MetricErrorRate:   {Warning: 1, Critical: 5, HasEmergency: true, Emergency: 15},
		model.MetricTemperature: {Warning: 60, Critical: 75, HasEmergency: true, Emergency: 90},
		model.MetricPacketLoss:  {Warning: 1, Critical: 5, HasEmergency: true, Emergency: 20},
	}
}

// TrendLabel classifies a series' recent direction.
type TrendLabel string

const (
	TrendIncreasing TrendLabel = "increasing"
	TrendDecreasing TrendLabel = "decreasing"
	TrendStable     TrendLabel = "stable"
)

// MetricSummary is one metric type's aggregated state for a device.
type MetricSummary struct {
	Latest float64
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Trend  TrendLabel
}

// DeviceHealth is the aggregated health view for one device.
type DeviceHealth struct {
	DeviceID string
	Status   model.Severity
	Metrics  map[model.MetricType]MetricSummary
}

const maxRollingSamples = 60

type series struct {
	samples []float64
	cap     int
}

func (s *series) append(value float64) {
	s.samples = append(s.samples, value)
	if len(s.samples) > s.cap {
		s.samples = s.samples[len(s.samples)-s.cap:]
	}
}

// Engine evaluates thresholds and aggregates rolling statistics. A single
// Engine instance is a single-writer: callers serialize calls to
// ProcessMetrics, consistent with the concurrency model.
type Engine struct {
	mu         sync.Mutex
	thresholds map[model.MetricType]Thresholds
	maxHistory int
	history    map[string]*series
	// alerts is consulted by DeviceHealth to derive Status from the
	// device's currently active alerts, rather than from history of
	// alerts ever raised. May be nil, in which case Status only ever
	// reflects "healthy".
	alerts *alert.Manager
}

// New creates an Engine with the given thresholds and per-series cap.
// alerts may be nil if DeviceHealth.Status should not reflect active
// alerts (e.g. in isolated unit tests of the rolling statistics).
func New(thresholds map[model.MetricType]Thresholds, maxHistory int, alerts *alert.Manager) *Engine {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Engine{
		thresholds: thresholds,
		maxHistory: maxHistory,
		history:    make(map[string]*series),
		alerts:     alerts,
	}
}

// ProcessMetrics appends each metric to its series and evaluates
// thresholds, returning newly generated alerts (at most one per metric).
func (e *Engine) ProcessMetrics(batch []model.Metric) []model.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var alerts []model.Alert
	for _, m := range batch {
		key := m.SeriesKey()
		s, ok := e.history[key]
		if !ok {
			s = &series{cap: e.maxHistory}
			e.history[key] = s
		}
		s.append(m.Value)

		if a, ok := e.evaluate(m); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

func (e *Engine) evaluate(m model.Metric) (model.Alert, bool) {
	t, ok := e.thresholds[m.Type]
	if !ok {
		return model.Alert{}, false
	}

	severity, threshold, crossed := (model.Severity)(""), 0.0, false
	switch {
	case t.HasEmergency && m.Value >= t.Emergency:
		severity, threshold, crossed = model.SeverityEmergency, t.Emergency, true
	case m.Value >= t.Critical:
		severity, threshold, crossed = model.SeverityCritical, t.Critical, true
	case m.Value >= t.Warning:
		severity, threshold, crossed = model.SeverityWarning, t.Warning, true
	}
	if !crossed {
		return model.Alert{}, false
	}

	return model.Alert{
		ID:             uuid.NewString(),
		DeviceID:       m.DeviceID,
		InterfaceName:  m.InterfaceName,
		Severity:       severity,
		State:          model.AlertStateActive,
		Title:          fmt.Sprintf("%s threshold crossed", m.Type),
		Description:    fmt.Sprintf("%s reached %.2f (%s threshold %.2f)", m.Type, m.Value, severity, threshold),
		MetricType:     m.Type,
		MetricValue:    m.Value,
		ThresholdValue: threshold,
		Source:         string(m.Source),
		CreatedAt:      m.Timestamp,
	}, true
}

// DeviceHealth aggregates rolling statistics for every metric type
// observed for deviceID.
func (e *Engine) DeviceHealth(deviceID string) DeviceHealth {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := DeviceHealth{
		DeviceID: deviceID,
		Status:   model.SeverityInfo,
		Metrics:  make(map[model.MetricType]MetricSummary),
	}

	maxSeverity, hasAlerts := model.Severity(""), false
	if e.alerts != nil {
		for _, a := range e.alerts.List(deviceID, model.AlertStateActive) {
			maxSeverity, hasAlerts = model.MaxSeverity(maxSeverity, a.Severity), true
		}
	}

	prefix := deviceID + ":"
	keys := make([]string, 0)
	for key := range e.history {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		metricType := model.MetricType(key[len(prefix):])
		result.Metrics[metricType] = summarize(e.history[key].samples)
	}

	if hasAlerts {
		result.Status = maxSeverity
	} else {
		result.Status = "healthy"
	}
	return result
}

func summarize(samples []float64) MetricSummary {
	windowed := samples
	if len(windowed) > maxRollingSamples {
		windowed = windowed[len(windowed)-maxRollingSamples:]
	}
	if len(windowed) == 0 {
		return MetricSummary{}
	}

	min, max, sum := windowed[0], windowed[0], 0.0
	for _, v := range windowed {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(len(windowed))

	var variance float64
	for _, v := range windowed {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(windowed))
	stddev := math.Sqrt(variance)

	return MetricSummary{
		Latest: windowed[len(windowed)-1],
		Min:    min,
		Max:    max,
		Mean:   mean,
		StdDev: stddev,
		Trend:  trendOf(windowed),
	}
}

func trendOf(samples []float64) TrendLabel {
	if len(samples) < 10 {
		return TrendStable
	}
	older := average(samples[:5])
	latest := average(samples[len(samples)-5:])
	if older == 0 {
		return TrendStable
	}
	delta := math.Abs(latest-older) / math.Abs(older)
	if delta <= 0.1 {
		return TrendStable
	}
	if latest > older {
		return TrendIncreasing
	}
	return TrendDecreasing
}

func average(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
