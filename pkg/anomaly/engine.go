// Package anomaly runs statistical outlier detectors over the metric
// stream, gated by maintenance windows, with temporal correlation of
// the resulting anomalies into incident groups.
package anomaly

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/netopshub/netopshub/pkg/model"
)

const (
	maxSeriesHistory  = 2000
	defaultMinSamples = 10
	defaultZThreshold = 3.0
	defaultIQRFactor  = 1.5
	defaultEWMAAlpha  = 0.3
)

// DetectorKind names which statistical method flagged an AnomalyResult.
type DetectorKind string

const (
	DetectorZScore DetectorKind = "zscore"
	DetectorIQR    DetectorKind = "iqr"
	DetectorEWMA   DetectorKind = "ewma"
)

// AnomalyResult is one detector's independent finding for one sample.
type AnomalyResult struct {
	Detector  DetectorKind
	DeviceID  string
	Metric    model.MetricType
	Value     float64
	Score     float64
	Timestamp time.Time
}

type ewmaState struct {
	value     float64
	variance  float64
	primed    bool
}

type seriesState struct {
	samples []float64
	ewma    ewmaState
}

func (s *seriesState) append(value float64) {
	s.samples = append(s.samples, value)
	if len(s.samples) > maxSeriesHistory {
		s.samples = s.samples[len(s.samples)-maxSeriesHistory:]
	}
}

// Config tunes the detectors' sensitivity.
type Config struct {
	MinSamples  int
	ZThreshold  float64
	IQRFactor   float64
	EWMAAlpha   float64
}

// DefaultConfig returns the spec's default detector tuning.
func DefaultConfig() Config {
	return Config{
		MinSamples: defaultMinSamples,
		ZThreshold: defaultZThreshold,
		IQRFactor:  defaultIQRFactor,
		EWMAAlpha:  defaultEWMAAlpha,
	}
}

// Engine runs Z-score, IQR, and EWMA detectors per series, gated by
// maintenance windows.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	history map[string]*seriesState
	windows []model.MaintenanceWindow
}

// New creates an Engine with cfg.
func New(cfg Config) *Engine {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = defaultMinSamples
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = defaultZThreshold
	}
	if cfg.IQRFactor <= 0 {
		cfg.IQRFactor = defaultIQRFactor
	}
	if cfg.EWMAAlpha <= 0 {
		cfg.EWMAAlpha = defaultEWMAAlpha
	}
	return &Engine{cfg: cfg, history: make(map[string]*seriesState)}
}

// AddMaintenanceWindow registers a window that suppresses detection for
// matching devices while active.
func (e *Engine) AddMaintenanceWindow(w model.MaintenanceWindow) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.windows = append(e.windows, w)
}

func (e *Engine) underMaintenance(deviceID string, now time.Time) bool {
	for _, w := range e.windows {
		if w.Covers(deviceID, now) {
			return true
		}
	}
	return false
}

// Detect appends m to its series' history and runs all three detectors,
// returning any resulting anomalies. If the device is under an active
// maintenance window, the sample is still appended but no anomalies are
// returned.
func (e *Engine) Detect(m model.Metric) []AnomalyResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := m.SeriesKey()
	s, ok := e.history[key]
	if !ok {
		s = &seriesState{}
		e.history[key] = s
	}

	suppressed := e.underMaintenance(m.DeviceID, m.Timestamp)

	var results []AnomalyResult
	if !suppressed {
		if r, ok := e.zscore(m, s); ok {
			results = append(results, r)
		}
		if r, ok := e.iqr(m, s); ok {
			results = append(results, r)
		}
		if r, ok := e.ewma(m, s); ok {
			results = append(results, r)
		}
	} else {
		// Still advance EWMA state so detection resumes smoothly once the
		// window closes, but never emit anomalies while suppressed.
		e.updateEWMA(m.Value, s)
	}

	s.append(m.Value)
	if suppressed {
		return nil
	}
	return results
}

func (e *Engine) zscore(m model.Metric, s *seriesState) (AnomalyResult, bool) {
	if len(s.samples) < e.cfg.MinSamples {
		return AnomalyResult{}, false
	}
	mean, stddev := meanStdDev(s.samples)
	if stddev == 0 && m.Value == mean {
		return AnomalyResult{}, false
	}
	z := math.Abs(m.Value-mean) / stddev
	if z <= e.cfg.ZThreshold {
		return AnomalyResult{}, false
	}
	return AnomalyResult{Detector: DetectorZScore, DeviceID: m.DeviceID, Metric: m.Type, Value: m.Value, Score: z, Timestamp: m.Timestamp}, true
}

func (e *Engine) iqr(m model.Metric, s *seriesState) (AnomalyResult, bool) {
	if len(s.samples) < e.cfg.MinSamples {
		return AnomalyResult{}, false
	}
	sorted := append([]float64(nil), s.samples...)
	sort.Float64s(sorted)
	n := len(sorted)
	q1 := sorted[n/4]
	q3 := sorted[3*n/4]
	iqr := q3 - q1

	lower := q1 - e.cfg.IQRFactor*iqr
	upper := q3 + e.cfg.IQRFactor*iqr

	if m.Value >= lower && m.Value <= upper {
		return AnomalyResult{}, false
	}

	denom := iqr
	if denom < 1 {
		denom = 1
	}
	distLower := math.Abs(m.Value - lower)
	distUpper := math.Abs(m.Value - upper)
	score := math.Max(distLower, distUpper) / denom

	return AnomalyResult{Detector: DetectorIQR, DeviceID: m.DeviceID, Metric: m.Type, Value: m.Value, Score: score, Timestamp: m.Timestamp}, true
}

func (e *Engine) ewma(m model.Metric, s *seriesState) (AnomalyResult, bool) {
	if !s.ewma.primed {
		e.updateEWMA(m.Value, s)
		return AnomalyResult{}, false
	}

	prevEWMA := s.ewma.value
	prevVar := s.ewma.variance
	e.updateEWMA(m.Value, s)

	if prevVar <= 0 {
		return AnomalyResult{}, false
	}
	z := math.Abs(m.Value-prevEWMA) / math.Sqrt(prevVar)
	if z <= e.cfg.ZThreshold {
		return AnomalyResult{}, false
	}
	return AnomalyResult{Detector: DetectorEWMA, DeviceID: m.DeviceID, Metric: m.Type, Value: m.Value, Score: z, Timestamp: m.Timestamp}, true
}

func (e *Engine) updateEWMA(value float64, s *seriesState) {
	if !s.ewma.primed {
		s.ewma.value = value
		s.ewma.variance = 0
		s.ewma.primed = true
		return
	}
	alpha := e.cfg.EWMAAlpha
	prevValue := s.ewma.value
	s.ewma.variance = alpha*(value-prevValue)*(value-prevValue) + (1-alpha)*s.ewma.variance
	s.ewma.value = alpha*value + (1-alpha)*prevValue
}

func meanStdDev(samples []float64) (mean, stddev float64) {
	sum := 0.0
	for _, v := range samples {
		sum += v
	}
	mean = sum / float64(len(samples))

	var variance float64
	for _, v := range samples {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(samples))
	return mean, math.Sqrt(variance)
}

// CorrelationGroup is a set of anomalies temporally clustered together.
type CorrelationGroup struct {
	Size            int
	Devices         []string
	Metrics         []string
	TimeSpanSeconds float64
}

// CorrelateAnomalies groups anomalies such that each pair within a group
// lies within windowSeconds of at least one already-grouped member.
// Groups of size 1 are dropped.
func CorrelateAnomalies(anomalies []AnomalyResult, windowSeconds float64) []CorrelationGroup {
	sorted := append([]AnomalyResult(nil), anomalies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var groups [][]AnomalyResult
	window := time.Duration(windowSeconds * float64(time.Second))

	for _, a := range sorted {
		placed := false
		for i, group := range groups {
			for _, member := range group {
				if absDuration(a.Timestamp.Sub(member.Timestamp)) <= window {
					groups[i] = append(groups[i], a)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			groups = append(groups, []AnomalyResult{a})
		}
	}

	var out []CorrelationGroup
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		out = append(out, summarizeGroup(group))
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func summarizeGroup(group []AnomalyResult) CorrelationGroup {
	deviceSet := map[string]struct{}{}
	metricSet := map[string]struct{}{}
	earliest, latest := group[0].Timestamp, group[0].Timestamp

	for _, a := range group {
		deviceSet[a.DeviceID] = struct{}{}
		metricSet[string(a.Metric)] = struct{}{}
		if a.Timestamp.Before(earliest) {
			earliest = a.Timestamp
		}
		if a.Timestamp.After(latest) {
			latest = a.Timestamp
		}
	}

	return CorrelationGroup{
		Size:            len(group),
		Devices:         sortedSetKeys(deviceSet),
		Metrics:         sortedSetKeys(metricSet),
		TimeSpanSeconds: latest.Sub(earliest).Seconds(),
	}
}

func sortedSetKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
