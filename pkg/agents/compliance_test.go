package agents

import (
	"testing"

	"github.com/netopshub/netopshub/pkg/compliance"
	"github.com/netopshub/netopshub/pkg/configstore"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComplianceFixture() (*ComplianceHandler, *compliance.Evaluator, *configstore.Store) {
	evaluator := compliance.New()
	configs := configstore.New()
	evaluator.AddRule(model.ComplianceRule{
		ID: "r1", Name: "no telnet", Framework: "cis", Severity: model.SeverityCritical,
		Check: model.CheckNotContains, Pattern: "transport input telnet",
	})
	return NewComplianceHandler(evaluator, configs), evaluator, configs
}

func TestAuditDeviceUsesLatestConfig(t *testing.T) {
	h, _, configs := newComplianceFixture()
	configs.BackupConfig("r1", "interface Gi0/1\n transport input ssh\n")

	task := h.Process(newTask("compliance", "audit", map[string]interface{}{"device_id": "r1"}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, 100.0, task.Output["score"])
}

func TestAuditMissingDeviceFails(t *testing.T) {
	h, _, _ := newComplianceFixture()
	task := h.Process(newTask("compliance", "audit", map[string]interface{}{"device_id": "ghost"}))
	assert.Equal(t, model.TaskFailed, task.Status)
}

func TestAuditAllAggregatesAcrossCapturedDevices(t *testing.T) {
	h, _, configs := newComplianceFixture()
	configs.BackupConfig("r1", "transport input ssh\n")
	configs.BackupConfig("r2", "transport input telnet\n")

	task := h.Process(newTask("compliance", "audit_all", nil))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, 2, task.Output["total_checks"])
	assert.Equal(t, 1, task.Output["compliant"])
	assert.Equal(t, 1, task.Output["non_compliant"])
}

func TestComplianceUnknownTaskKindFails(t *testing.T) {
	h, _, _ := newComplianceFixture()
	task := h.Process(newTask("compliance", "bogus", nil))
	assert.Equal(t, model.TaskFailed, task.Status)
}

func TestComplianceChatWithNoConfigsReportsNothingToAudit(t *testing.T) {
	h, _, _ := newComplianceFixture()
	response := h.Chat("how compliant is the fleet", nil)
	assert.Contains(t, response, "nothing to audit")
}

func TestComplianceChatReportsFleetScore(t *testing.T) {
	h, _, configs := newComplianceFixture()
	configs.BackupConfig("r1", "transport input ssh\n")

	response := h.Chat("how compliant is the fleet", nil)
	assert.Contains(t, response, "100.0%")
}
