// Package sla evaluates rolling compliance against per-target SLA
// definitions over recent metric history.
package sla

import (
	"sync"

	"github.com/netopshub/netopshub/pkg/model"
)

const maxSeriesSamples = 1440
const currentValueWindow = 10

type sample struct {
	deviceID string
	value    float64
}

// Evaluator holds per-series metric history and a set of SLA targets.
type Evaluator struct {
	mu      sync.Mutex
	targets map[string]model.SLATarget
	history map[model.MetricType][]sample
}

// New creates an empty Evaluator.
func New() *Evaluator {
	return &Evaluator{
		targets: make(map[string]model.SLATarget),
		history: make(map[model.MetricType][]sample),
	}
}

// SetTarget registers or replaces an SLA target by its ID.
func (e *Evaluator) SetTarget(t model.SLATarget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targets[t.ID] = t
}

// RemoveTarget deletes a target by ID.
func (e *Evaluator) RemoveTarget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.targets, id)
}

// Targets returns all registered SLA targets.
func (e *Evaluator) Targets() []model.SLATarget {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.SLATarget, 0, len(e.targets))
	for _, t := range e.targets {
		out = append(out, t)
	}
	return out
}

// RecordMetric appends a sample to its metric type's series, trimming
// to the most recent 1,440 samples.
func (e *Evaluator) RecordMetric(m model.Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.history[m.Type]
	s = append(s, sample{deviceID: m.DeviceID, value: m.Value})
	if len(s) > maxSeriesSamples {
		s = s[len(s)-maxSeriesSamples:]
	}
	e.history[m.Type] = s
}

// Evaluate computes a model.SLAReport for the target with the given ID.
func (e *Evaluator) Evaluate(targetID string) (model.SLAReport, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.targets[targetID]
	if !ok {
		return model.SLAReport{}, false
	}

	var matched []float64
	for _, s := range e.history[target.MetricType] {
		if target.DeviceID != "" && s.deviceID != target.DeviceID {
			continue
		}
		matched = append(matched, s.value)
	}

	if len(matched) == 0 {
		return model.SLAReport{TargetID: target.ID, SampleCount: 0}, true
	}

	windowStart := len(matched) - currentValueWindow
	if windowStart < 0 {
		windowStart = 0
	}
	current := average(matched[windowStart:])

	var isMet bool
	switch target.Comparison {
	case model.ComparisonLessThan:
		isMet = current < target.TargetValue
	case model.ComparisonGreaterThan:
		isMet = current > target.TargetValue
	}

	violations := 0
	for _, v := range matched {
		var ok bool
		switch target.Comparison {
		case model.ComparisonLessThan:
			ok = v < target.TargetValue
		case model.ComparisonGreaterThan:
			ok = v > target.TargetValue
		}
		if !ok {
			violations++
		}
	}

	compliance := 100.0 * float64(len(matched)-violations) / float64(len(matched))

	return model.SLAReport{
		TargetID:       target.ID,
		CurrentValue:   current,
		IsMet:          isMet,
		ViolationCount: violations,
		SampleCount:    len(matched),
		CompliancePct:  compliance,
	}, true
}

// EvaluateAll evaluates every registered target.
func (e *Evaluator) EvaluateAll() []model.SLAReport {
	e.mu.Lock()
	ids := make([]string, 0, len(e.targets))
	for id := range e.targets {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	out := make([]model.SLAReport, 0, len(ids))
	for _, id := range ids {
		if report, ok := e.Evaluate(id); ok {
			out = append(out, report)
		}
	}
	return out
}

func average(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
