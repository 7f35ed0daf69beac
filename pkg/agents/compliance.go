package agents

import (
	"fmt"

	"github.com/netopshub/netopshub/pkg/compliance"
	"github.com/netopshub/netopshub/pkg/configstore"
	"github.com/netopshub/netopshub/pkg/model"
)

// ComplianceHandler audits device configurations against registered
// compliance rules, pulling the latest captured config from the
// configuration store for each target device.
type ComplianceHandler struct {
	*agentBase
	evaluator *compliance.Evaluator
	configs   *configstore.Store
}

// NewComplianceHandler creates a handler backed by evaluator and configs.
func NewComplianceHandler(evaluator *compliance.Evaluator, configs *configstore.Store) *ComplianceHandler {
	return &ComplianceHandler{
		agentBase: newAgentBase("compliance", "Configuration compliance auditing against policy frameworks"),
		evaluator: evaluator,
		configs:   configs,
	}
}

// Process dispatches audit and audit_all task kinds.
func (h *ComplianceHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "audit":
		deviceID := stringInput(task.Input, "device_id", "")
		framework := model.ComplianceFramework(stringInput(task.Input, "framework", ""))

		snap, err := h.configs.Latest(deviceID)
		if err != nil {
			return h.failTask(task, err.Error())
		}
		summary := h.evaluator.EvaluateDevice(deviceID, snap.RawConfig, framework)
		return h.completeTask(task, map[string]interface{}{
			"device_id":     summary.DeviceID,
			"compliant":     summary.Compliant,
			"non_compliant": summary.NonCompliant,
			"total":         summary.Total,
			"score":         summary.Score,
			"failures":      summary.Failures,
		})

	case "audit_all":
		framework := model.ComplianceFramework(stringInput(task.Input, "framework", ""))
		configs := make(map[string]string)
		for _, device := range h.configs.Devices() {
			if snap, err := h.configs.Latest(device); err == nil {
				configs[device] = snap.RawConfig
			}
		}
		devices, overall := h.evaluator.EvaluateFleet(configs, framework)
		return h.completeTask(task, map[string]interface{}{
			"devices":       devices,
			"total_checks":  overall.TotalChecks,
			"compliant":     overall.Compliant,
			"non_compliant": overall.NonCompliant,
			"overall_score": overall.OverallScore,
		})

	default:
		return h.failUnknownKind(task)
	}
}

// Chat answers compliance-related free-text queries with a fleet-wide
// score summary across every device with a captured configuration.
func (h *ComplianceHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	configs := make(map[string]string)
	for _, device := range h.configs.Devices() {
		if snap, err := h.configs.Latest(device); err == nil {
			configs[device] = snap.RawConfig
		}
	}

	var response string
	if len(configs) == 0 {
		response = "No device configurations have been captured yet, nothing to audit."
	} else {
		_, overall := h.evaluator.EvaluateFleet(configs, "")
		response = fmt.Sprintf(
			"Fleet compliance score is %.1f%% across %d devices (%d compliant, %d non-compliant checks).",
			overall.OverallScore, len(configs), overall.Compliant, overall.NonCompliant,
		)
	}

	h.logMessage(model.RoleAssistant, response)
	return response
}
