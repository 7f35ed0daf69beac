package agents

import (
	"testing"

	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/netopshub/netopshub/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiagnosisFixture() (*DiagnosisHandler, *alert.Manager, *topology.Graph) {
	mgr := alert.New(nil)
	graph := topology.New()
	graph.AddDevices([]model.Device{{ID: "r1"}, {ID: "r2"}, {ID: "sw1"}})
	graph.AddNeighbor(model.Neighbor{LocalDeviceID: "r1", RemoteDeviceID: "sw1"})
	graph.AddNeighbor(model.Neighbor{LocalDeviceID: "sw1", RemoteDeviceID: "r2"})
	return NewDiagnosisHandler(mgr, graph), mgr, graph
}

func TestDiagnoseReturnsNoAlertsWhenNoneActive(t *testing.T) {
	h, _, _ := newDiagnosisFixture()
	task := h.Process(newTask("diagnosis", "diagnose", nil))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "No active alerts to analyze", task.Output["root_cause"])
}

func TestDiagnosePicksDeviceWithMostAlertsAsRoot(t *testing.T) {
	h, mgr, _ := newDiagnosisFixture()
	mgr.Add(model.Alert{DeviceID: "r1", MetricType: model.MetricCPU, Severity: model.SeverityWarning})
	mgr.Add(model.Alert{DeviceID: "r1", MetricType: model.MetricMemory, Severity: model.SeverityWarning})
	mgr.Add(model.Alert{DeviceID: "r2", MetricType: model.MetricCPU, Severity: model.SeverityWarning})

	task := h.Process(newTask("diagnosis", "diagnose", nil))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "r1", task.Output["root_device"])
	assert.Equal(t, 0.85, task.Output["confidence"])
}

func TestCorrelateGroupsAlertsBySharedMetricType(t *testing.T) {
	h, mgr, _ := newDiagnosisFixture()
	mgr.Add(model.Alert{DeviceID: "r1", MetricType: model.MetricCPU, Severity: model.SeverityWarning})
	mgr.Add(model.Alert{DeviceID: "r2", MetricType: model.MetricCPU, Severity: model.SeverityWarning})
	mgr.Add(model.Alert{DeviceID: "sw1", MetricType: model.MetricLatency, Severity: model.SeverityWarning})

	task := h.Process(newTask("diagnosis", "correlate", nil))
	require.Equal(t, model.TaskCompleted, task.Status)
	groups := task.Output["correlations"].([]map[string]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0]["group_size"])
}

func TestAnalyzeAnomalyFlagsValuesBeyondTwoSigma(t *testing.T) {
	h, _, _ := newDiagnosisFixture()
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 100}
	task := h.Process(newTask("diagnosis", "analyze_anomaly", map[string]interface{}{"values": values}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "anomalies_detected", task.Output["status"])
	assert.GreaterOrEqual(t, task.Output["anomaly_count"].(int), 1)
}

func TestAnalyzeAnomalyNoDataReturnsNoDataStatus(t *testing.T) {
	h, _, _ := newDiagnosisFixture()
	task := h.Process(newTask("diagnosis", "analyze_anomaly", nil))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "no_data", task.Output["status"])
}

func TestDiagnosisUnknownTaskKindFails(t *testing.T) {
	h, _, _ := newDiagnosisFixture()
	task := h.Process(newTask("diagnosis", "bogus", nil))
	assert.Equal(t, model.TaskFailed, task.Status)
}

func TestDiagnosisChatSummarizesRootCause(t *testing.T) {
	h, mgr, _ := newDiagnosisFixture()
	mgr.Add(model.Alert{DeviceID: "r1", MetricType: model.MetricCPU, Severity: model.SeverityCritical})

	response := h.Chat("diagnose the network", nil)
	assert.Contains(t, response, "r1")
	require.Len(t, h.MessageHistory(0), 2)
}
