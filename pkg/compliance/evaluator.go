// Package compliance evaluates a catalog of static configuration rules
// against captured device configurations.
package compliance

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/netopshub/netopshub/pkg/model"
)

// Evaluator holds the rule catalog and evaluates it against supplied
// device configuration text.
type Evaluator struct {
	mu    sync.Mutex
	rules map[string]model.ComplianceRule
}

// New creates an empty Evaluator.
func New() *Evaluator {
	return &Evaluator{rules: make(map[string]model.ComplianceRule)}
}

// AddRule registers or replaces a rule by its ID.
func (e *Evaluator) AddRule(r model.ComplianceRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[r.ID] = r
}

// RemoveRule deletes a rule by ID.
func (e *Evaluator) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rules, id)
}

// Rules returns the rule catalog, optionally filtered by framework.
// An empty framework returns every rule.
func (e *Evaluator) Rules(framework model.ComplianceFramework) []model.ComplianceRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.ComplianceRule, 0, len(ids))
	for _, id := range ids {
		r := e.rules[id]
		if framework != "" && r.Framework != framework {
			continue
		}
		out = append(out, r)
	}
	return out
}

func evaluateRule(rule model.ComplianceRule, config string) (model.ComplianceStatus, string) {
	if config == "" {
		return model.StatusNotAssessed, ""
	}

	switch rule.Check {
	case model.CheckContains:
		if strings.Contains(config, rule.Pattern) {
			return model.StatusCompliant, rule.Pattern
		}
		return model.StatusNonCompliant, ""
	case model.CheckNotContains:
		if !strings.Contains(config, rule.Pattern) {
			return model.StatusCompliant, ""
		}
		return model.StatusNonCompliant, rule.Pattern
	case model.CheckRegex:
		re, err := regexp.Compile("(?im)" + rule.Pattern)
		if err != nil {
			return model.StatusNotAssessed, ""
		}
		if match := re.FindString(config); match != "" {
			return model.StatusCompliant, match
		}
		return model.StatusNonCompliant, ""
	default:
		return model.StatusNotAssessed, ""
	}
}

// EvaluateDevice runs every rule in the (optionally framework-filtered)
// catalog against deviceID's configuration text, aggregating the result.
func (e *Evaluator) EvaluateDevice(deviceID, config string, framework model.ComplianceFramework) model.DeviceComplianceSummary {
	rules := e.Rules(framework)
	now := time.Now()

	summary := model.DeviceComplianceSummary{DeviceID: deviceID, Total: len(rules)}
	for _, rule := range rules {
		status, evidence := evaluateRule(rule, config)
		result := model.ComplianceResult{
			RuleID:    rule.ID,
			DeviceID:  deviceID,
			Status:    status,
			Evidence:  evidence,
			CheckedAt: now,
		}
		switch status {
		case model.StatusCompliant:
			summary.Compliant++
		case model.StatusNonCompliant:
			summary.NonCompliant++
			summary.Failures = append(summary.Failures, result)
		}
	}

	if summary.Total > 0 {
		summary.Score = 100 * float64(summary.Compliant) / float64(summary.Total)
	}
	return summary
}

// EvaluateFleet evaluates every device in configs (deviceID -> config
// text) and returns the per-device summaries plus an overall rollup.
func (e *Evaluator) EvaluateFleet(configs map[string]string, framework model.ComplianceFramework) ([]model.DeviceComplianceSummary, model.ComplianceSummary) {
	deviceIDs := make([]string, 0, len(configs))
	for id := range configs {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	perDevice := make([]model.DeviceComplianceSummary, 0, len(deviceIDs))
	overall := model.ComplianceSummary{}

	for _, id := range deviceIDs {
		summary := e.EvaluateDevice(id, configs[id], framework)
		perDevice = append(perDevice, summary)
		overall.TotalChecks += summary.Total
		overall.Compliant += summary.Compliant
		overall.NonCompliant += summary.NonCompliant
	}

	if overall.TotalChecks > 0 {
		overall.OverallScore = 100 * float64(overall.Compliant) / float64(overall.TotalChecks)
	}
	return perDevice, overall
}
