package agents

import (
	"testing"

	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/health"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerificationFixture() (*VerificationHandler, *alert.Manager, *health.Engine) {
	mgr := alert.New(nil)
	engine := health.New(health.DefaultThresholds(), 60, mgr)
	return NewVerificationHandler(mgr, engine), mgr, engine
}

func TestVerifyChangePassesWithNoActiveAlerts(t *testing.T) {
	h, _, engine := newVerificationFixture()
	for i := 0; i < 5; i++ {
		engine.ProcessMetrics([]model.Metric{{DeviceID: "r1", Type: model.MetricCPU, Value: 20}})
	}

	task := h.Process(newTask("verification", "verify_change", map[string]interface{}{"device_id": "r1"}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "pass", task.Output["overall_status"])
}

func TestVerifyChangeFailsWithActiveAlerts(t *testing.T) {
	h, mgr, _ := newVerificationFixture()
	mgr.Add(model.Alert{DeviceID: "r1", MetricType: model.MetricCPU, Severity: model.SeverityCritical})

	task := h.Process(newTask("verification", "verify_change", map[string]interface{}{"device_id": "r1"}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "fail", task.Output["overall_status"])
}

func TestHealthCheckReportsPerMetricSummary(t *testing.T) {
	h, _, engine := newVerificationFixture()
	engine.ProcessMetrics([]model.Metric{{DeviceID: "r1", Type: model.MetricCPU, Value: 30}})

	task := h.Process(newTask("verification", "health_check", map[string]interface{}{"device_id": "r1"}))
	require.Equal(t, model.TaskCompleted, task.Status)
	metrics := task.Output["metrics"].(map[string]interface{})
	assert.Contains(t, metrics, "CPU")
}

func TestRegressionCheckReportsNoRegressionOnStableMetrics(t *testing.T) {
	h, _, engine := newVerificationFixture()
	for i := 0; i < 10; i++ {
		engine.ProcessMetrics([]model.Metric{{DeviceID: "r1", Type: model.MetricCPU, Value: 30}})
	}

	task := h.Process(newTask("verification", "regression_check", map[string]interface{}{"device_id": "r1"}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, false, task.Output["regression_detected"])
}

func TestVerificationUnknownTaskKindFails(t *testing.T) {
	h, _, _ := newVerificationFixture()
	task := h.Process(newTask("verification", "bogus", nil))
	assert.Equal(t, model.TaskFailed, task.Status)
}

func TestExtractDeviceIDFromMessage(t *testing.T) {
	assert.Equal(t, "switch-dist-1", extractDeviceID("run a health check on switch-dist-1", "fallback"))
	assert.Equal(t, "fallback", extractDeviceID("how are things", "fallback"))
}

func TestVerificationChatRunsHealthCheck(t *testing.T) {
	h, _, _ := newVerificationFixture()
	response := h.Chat("run a health check on router-core-1", nil)
	assert.Contains(t, response, "Health check")
}
