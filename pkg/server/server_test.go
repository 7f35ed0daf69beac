package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/netopshub/netopshub/internal/config"
	"github.com/netopshub/netopshub/internal/crypto"
	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/internal/ratelimit"
	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/anomaly"
	"github.com/netopshub/netopshub/pkg/collectors/httpapi"
	"github.com/netopshub/netopshub/pkg/collectors/poll"
	"github.com/netopshub/netopshub/pkg/collectors/unified"
	"github.com/netopshub/netopshub/pkg/compliance"
	"github.com/netopshub/netopshub/pkg/configstore"
	"github.com/netopshub/netopshub/pkg/health"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/netopshub/netopshub/pkg/sla"
	"github.com/netopshub/netopshub/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := logging.New("netopshub-test", "error", "text")
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewSealer(key)
	require.NoError(t, err)

	limits := ratelimit.NewRegistry(ratelimit.Config{RequestsPerSecond: 1000, Burst: 1000})
	pollCollector := poll.New(sealer, limits, log)
	httpCollector := httpapi.New(log)
	unifiedCollector := unified.New(12055, 10514, pollCollector, httpCollector, log)

	alertMgr := alert.New(nil)
	deps := Deps{
		Config:        config.Config{DefaultSubnet: "10.0.0.0/24", ListenAddr: ":0"},
		Log:           log,
		Graph:         topology.New(),
		Health:        health.New(health.DefaultThresholds(), 500, alertMgr),
		Anomaly:       anomaly.New(anomaly.DefaultConfig()),
		Alerts:        alertMgr,
		SLA:           sla.New(),
		ConfigStore:   configstore.New(),
		Compliance:    compliance.New(),
		PollCollector: pollCollector,
		HTTPCollector: httpCollector,
		Unified:       unifiedCollector,
	}
	return New(deps)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthReturnsOK(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestListDevicesAutoScansWhenEmpty(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/devices", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]model.Device
	decodeBody(t, rec, &body)
	assert.NotEmpty(t, body["devices"])
}

func TestScanDevicesReturnsDiscoveredCount(t *testing.T) {
	s := newTestServer(t)
	payload := bytes.NewBufferString(`{"subnet":"192.168.1.0/24","community":"public"}`)
	req := httptest.NewRequest(http.MethodPost, "/devices/scan", payload)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	decodeBody(t, rec, &body)
	assert.Equal(t, 4, body["discovered"])
}

func TestAcknowledgeUnknownAlertReturns404(t *testing.T) {
	s := newTestServer(t)
	payload := bytes.NewBufferString(`{"acknowledged_by":"tester"}`)
	req := httptest.NewRequest(http.MethodPost, "/alerts/ghost/acknowledge", payload)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcknowledgeAndResolveAlertTransitionsState(t *testing.T) {
	s := newTestServer(t)
	added := s.alerts.Add(model.Alert{DeviceID: "r1", Severity: model.SeverityWarning, Title: "high cpu", MetricType: model.MetricCPU})

	ackBody := bytes.NewBufferString(`{"acknowledged_by":"tester"}`)
	req := httptest.NewRequest(http.MethodPost, "/alerts/"+added.ID+"/acknowledge", ackBody)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/alerts/"+added.ID+"/resolve", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resolved model.Alert
	decodeBody(t, rec, &resolved)
	assert.Equal(t, model.AlertStateResolved, resolved.State)
}

func TestChatRoutesToDiscoveryHandler(t *testing.T) {
	s := newTestServer(t)
	payload := bytes.NewBufferString(`{"message":"can you discover my topology?"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat", payload)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Contains(t, body["response"], "Discovery Agent")
}

func TestChatHistoryReflectsPriorTurns(t *testing.T) {
	s := newTestServer(t)
	s.router.Chat("discover my network", nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/history?limit=10", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]model.AgentMessage
	decodeBody(t, rec, &body)
	assert.NotEmpty(t, body["history"])
}

func TestComplianceAuditWithNoConfigsReturnsEmptyResults(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/compliance/audit", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Empty(t, body["results"])
}

func TestAgentsListsAllSevenHandlers(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/agents", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Len(t, body["agents"], 7)
}

func TestSLAReturnsAllReports(t *testing.T) {
	s := newTestServer(t)
	s.slaEval.SetTarget(model.SLATarget{ID: "t1", Name: "cpu", MetricType: model.MetricCPU, TargetValue: 90, Comparison: model.ComparisonLessThan, WindowSamples: 5})

	req := httptest.NewRequest(http.MethodGet, "/sla", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTopologyReturnsSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.graph.AddDevice(model.Device{ID: "d1", Hostname: "d1"})

	req := httptest.NewRequest(http.MethodGet, "/topology", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var topo model.Topology
	decodeBody(t, rec, &topo)
	assert.Len(t, topo.Devices, 1)
}
