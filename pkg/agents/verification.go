package agents

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/health"
	"github.com/netopshub/netopshub/pkg/model"
)

// VerificationHandler validates that a remediation resolved the
// reported issue and watches for regressions afterward, using live
// alert state and rolling health metrics rather than canned checks.
type VerificationHandler struct {
	*agentBase
	alerts *alert.Manager
	health *health.Engine
}

// NewVerificationHandler creates a handler backed by alerts and health.
func NewVerificationHandler(alerts *alert.Manager, healthEngine *health.Engine) *VerificationHandler {
	return &VerificationHandler{
		agentBase: newAgentBase("verification", "Post-change validation and regression monitoring"),
		alerts:    alerts,
		health:    healthEngine,
	}
}

type verificationCheck struct {
	Check   string `json:"check"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

func (h *VerificationHandler) verifyChange(deviceID, changeType string) map[string]interface{} {
	active := h.alerts.List(deviceID, model.AlertStateActive)
	dh := h.health.DeviceHealth(deviceID)

	checks := []verificationCheck{
		{Check: "Active alerts", Status: passFail(len(active) == 0), Details: fmt.Sprintf("%d active alerts remain on device", len(active))},
		{Check: "Overall health status", Status: passFail(dh.Status == "healthy" || dh.Status == model.SeverityInfo), Details: fmt.Sprintf("device status is %s", dh.Status)},
	}
	for _, mt := range sortedMetricTypes(dh.Metrics) {
		summary := dh.Metrics[mt]
		regressed := summary.Trend == health.TrendIncreasing && summary.Latest > summary.Mean+summary.StdDev
		checks = append(checks, verificationCheck{
			Check:   fmt.Sprintf("%s trend", mt),
			Status:  passFail(!regressed),
			Details: fmt.Sprintf("latest=%.2f mean=%.2f trend=%s", summary.Latest, summary.Mean, summary.Trend),
		})
	}

	passed := 0
	for _, c := range checks {
		if c.Status == "pass" {
			passed++
		}
	}
	overall := "pass"
	if passed != len(checks) {
		overall = "fail"
	}

	return map[string]interface{}{
		"device_id":      deviceID,
		"change_type":    changeType,
		"verified_at":    time.Now().UTC().Format(time.RFC3339),
		"overall_status": overall,
		"checks":         checks,
		"passed":         passed,
		"total":          len(checks),
		"summary":        fmt.Sprintf("%d/%d checks passed", passed, len(checks)),
	}
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func sortedMetricTypes(metrics map[model.MetricType]health.MetricSummary) []model.MetricType {
	types := make([]model.MetricType, 0, len(metrics))
	for mt := range metrics {
		types = append(types, mt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (h *VerificationHandler) healthCheck(deviceID string) map[string]interface{} {
	dh := h.health.DeviceHealth(deviceID)
	metrics := make(map[string]interface{}, len(dh.Metrics))
	for _, mt := range sortedMetricTypes(dh.Metrics) {
		s := dh.Metrics[mt]
		metrics[string(mt)] = map[string]interface{}{
			"latest": s.Latest, "mean": s.Mean, "min": s.Min, "max": s.Max, "trend": s.Trend,
		}
	}
	return map[string]interface{}{
		"device_id": deviceID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"overall":   string(dh.Status),
		"metrics":   metrics,
	}
}

func (h *VerificationHandler) regressionCheck(deviceID string) map[string]interface{} {
	dh := h.health.DeviceHealth(deviceID)
	var monitored []map[string]interface{}
	regressed := false
	for _, mt := range sortedMetricTypes(dh.Metrics) {
		s := dh.Metrics[mt]
		status := "normal"
		if s.Trend == health.TrendIncreasing && s.Latest > s.Mean+s.StdDev {
			status = "regressed"
			regressed = true
		} else if s.Trend == health.TrendDecreasing {
			status = "improved"
		}
		monitored = append(monitored, map[string]interface{}{
			"metric": mt, "baseline": s.Mean, "current": s.Latest, "status": status,
		})
	}

	conclusion := "No regression detected. All metrics within baseline thresholds."
	if regressed {
		conclusion = "Regression detected on one or more metrics; review the flagged trend before closing the change."
	}

	return map[string]interface{}{
		"device_id":           deviceID,
		"monitoring_window":   "rolling 60-sample window",
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"regression_detected": regressed,
		"metrics_monitored":   monitored,
		"conclusion":          conclusion,
	}
}

// Process dispatches verify_change, health_check, and regression_check
// task kinds.
func (h *VerificationHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "verify_change":
		deviceID := stringInput(task.Input, "device_id", "")
		changeType := stringInput(task.Input, "change_type", "")
		return h.completeTask(task, h.verifyChange(deviceID, changeType))

	case "health_check":
		deviceID := stringInput(task.Input, "device_id", "")
		return h.completeTask(task, h.healthCheck(deviceID))

	case "regression_check":
		deviceID := stringInput(task.Input, "device_id", "")
		return h.completeTask(task, h.regressionCheck(deviceID))

	default:
		return h.failUnknownKind(task)
	}
}

// Chat answers verification queries about a device's post-change state.
func (h *VerificationHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	deviceID := extractDeviceID(message, "router-core-1")
	lower := strings.ToLower(message)

	var response string
	switch {
	case strings.Contains(lower, "regression"):
		result := h.regressionCheck(deviceID)
		response = fmt.Sprintf("Regression check on %s: %v", deviceID, result["conclusion"])
	case strings.Contains(lower, "health"):
		result := h.healthCheck(deviceID)
		response = fmt.Sprintf("Health check on %s: overall status %v", deviceID, result["overall"])
	case strings.Contains(lower, "verify") || strings.Contains(lower, "check"):
		result := h.verifyChange(deviceID, "unspecified")
		response = fmt.Sprintf("Verification on %s: %v (%v)", deviceID, result["overall_status"], result["summary"])
	default:
		response = "I verify that changes were applied correctly and monitor for regressions.\n\n" +
			"Try:\n- \"Verify the last change on router-core-1\"\n- \"Run a health check on switch-dist-1\"\n" +
			"- \"Check for regressions\""
	}

	h.logMessage(model.RoleAssistant, response)
	return response
}

func extractDeviceID(message, fallback string) string {
	lower := strings.ToLower(message)
	for _, marker := range []string{" on ", " for ", "device "} {
		if idx := strings.Index(lower, marker); idx != -1 {
			rest := strings.Fields(message[idx+len(marker):])
			if len(rest) > 0 {
				return strings.Trim(rest[0], ".,!?")
			}
		}
	}
	return fallback
}
