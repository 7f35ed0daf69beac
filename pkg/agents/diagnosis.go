package agents

import (
	"fmt"
	"math"
	"sort"

	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/netopshub/netopshub/pkg/topology"
)

// DiagnosisHandler performs root-cause analysis over active alerts,
// using the topology graph to estimate blast radius.
type DiagnosisHandler struct {
	*agentBase
	alerts *alert.Manager
	graph  *topology.Graph
}

// NewDiagnosisHandler creates a handler backed by alerts and graph.
func NewDiagnosisHandler(alerts *alert.Manager, graph *topology.Graph) *DiagnosisHandler {
	return &DiagnosisHandler{
		agentBase: newAgentBase("diagnosis", "Anomaly detection and root cause analysis"),
		alerts:    alerts,
		graph:     graph,
	}
}

// Process dispatches diagnose, correlate, and analyze_anomaly task kinds.
func (h *DiagnosisHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "diagnose":
		return h.completeTask(task, h.performRCA())
	case "correlate":
		return h.completeTask(task, map[string]interface{}{"correlations": h.correlateActiveAlerts()})
	case "analyze_anomaly":
		values, _ := task.Input["values"].([]float64)
		return h.completeTask(task, analyzeValues(values))
	default:
		return h.failUnknownKind(task)
	}
}

func (h *DiagnosisHandler) performRCA() map[string]interface{} {
	active := h.alerts.List("", model.AlertStateActive)
	if len(active) == 0 {
		return map[string]interface{}{
			"root_cause":       "No active alerts to analyze",
			"confidence":       0.0,
			"affected_devices": []string{},
		}
	}

	byDevice := make(map[string]int)
	for _, a := range active {
		byDevice[a.DeviceID]++
	}

	rootDevice, rootCount := "", 0
	devices := make([]string, 0, len(byDevice))
	for device, count := range byDevice {
		devices = append(devices, device)
		if count > rootCount {
			rootDevice, rootCount = device, count
		}
	}
	sort.Strings(devices)

	blastRadius := h.graph.BlastRadius(rootDevice, 2)

	return map[string]interface{}{
		"root_cause":        fmt.Sprintf("Primary failure concentration detected on device %s", rootDevice),
		"root_device":       rootDevice,
		"confidence":        0.85,
		"affected_devices":  devices,
		"correlation_count": len(active),
		"blast_radius":      blastRadius,
		"recommendation":    "Investigate the root device first, then verify downstream recovery",
	}
}

func (h *DiagnosisHandler) correlateActiveAlerts() []map[string]interface{} {
	active := h.alerts.List("", model.AlertStateActive)
	byMetric := make(map[model.MetricType][]model.Alert)
	for _, a := range active {
		byMetric[a.MetricType] = append(byMetric[a.MetricType], a)
	}

	var groups []map[string]interface{}
	var metricTypes []string
	for mt := range byMetric {
		metricTypes = append(metricTypes, string(mt))
	}
	sort.Strings(metricTypes)

	for _, mt := range metricTypes {
		group := byMetric[model.MetricType(mt)]
		if len(group) < 2 {
			continue
		}
		devices := make([]string, 0, len(group))
		for _, a := range group {
			devices = append(devices, a.DeviceID)
		}
		groups = append(groups, map[string]interface{}{
			"group_size":    len(group),
			"common_metric": mt,
			"devices":       devices,
		})
	}
	return groups
}

func analyzeValues(values []float64) map[string]interface{} {
	if len(values) == 0 {
		return map[string]interface{}{"anomalies": []interface{}{}, "status": "no_data"}
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	stddev := math.Sqrt(variance)

	var anomalies []map[string]interface{}
	if stddev > 0 {
		for _, v := range values {
			z := (v - mean) / stddev
			if math.Abs(z) > 2 {
				severity := "medium"
				if math.Abs(z) > 3 {
					severity = "high"
				}
				anomalies = append(anomalies, map[string]interface{}{
					"value":    v,
					"z_score":  z,
					"severity": severity,
				})
			}
		}
	}

	status := "normal"
	if len(anomalies) > 0 {
		status = "anomalies_detected"
	}

	return map[string]interface{}{
		"anomalies":     anomalies,
		"anomaly_count": len(anomalies),
		"mean":          mean,
		"std_dev":       stddev,
		"status":        status,
	}
}

// Chat answers diagnosis-related free-text queries by summarizing
// current active-alert concentration.
func (h *DiagnosisHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	rca := h.performRCA()
	response := fmt.Sprintf("%v (confidence %.0f%%)", rca["root_cause"], rca["confidence"].(float64)*100)

	h.logMessage(model.RoleAssistant, response)
	return response
}
