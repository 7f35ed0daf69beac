package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaxSeverityEscalates(t *testing.T) {
	assert.Equal(t, SeverityEmergency, MaxSeverity(SeverityCritical, SeverityEmergency))
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityCritical, SeverityWarning))
}

func TestSeverityLess(t *testing.T) {
	assert.True(t, SeverityInfo.Less(SeverityCritical))
	assert.False(t, SeverityEmergency.Less(SeverityWarning))
}

func TestAlertDedupKey(t *testing.T) {
	a := Alert{DeviceID: "d1", MetricType: MetricCPU}
	assert.Equal(t, "d1:CPU", a.DedupKey())
}

func TestMaintenanceWindowCoversDeviceAndTime(t *testing.T) {
	now := time.Now()
	w := MaintenanceWindow{
		Devices: []string{"d1"},
		Start:   now.Add(-time.Hour),
		End:     now.Add(time.Hour),
	}
	assert.True(t, w.Covers("d1", now))
	assert.False(t, w.Covers("d2", now))
	assert.False(t, w.Covers("d1", now.Add(2*time.Hour)))
}

func TestMaintenanceWindowEmptyDevicesCoversAll(t *testing.T) {
	now := time.Now()
	w := MaintenanceWindow{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	assert.True(t, w.Covers("any-device", now))
}

func TestSuppressionRuleMatches(t *testing.T) {
	r := SuppressionRule{DeviceID: "d1", MetricType: MetricCPU}
	assert.True(t, r.Matches(Alert{DeviceID: "d1", MetricType: MetricCPU}, time.Now()))
	assert.False(t, r.Matches(Alert{DeviceID: "d2", MetricType: MetricCPU}, time.Now()))
}

func TestDecomposePriority(t *testing.T) {
	facility, severity := DecomposePriority(165)
	assert.Equal(t, 20, facility)
	assert.Equal(t, 5, severity)
}

func TestProtocolNameKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "TCP", ProtocolName(6))
	assert.Equal(t, "UDP", ProtocolName(17))
	assert.Equal(t, "proto-99", ProtocolName(99))
}

func TestTopologyLinkCanonicalKeyOrderIndependent(t *testing.T) {
	l1 := TopologyLink{A: Endpoint{DeviceID: "b", Interface: "eth0"}, B: Endpoint{DeviceID: "a", Interface: "eth1"}}
	l2 := TopologyLink{A: Endpoint{DeviceID: "a", Interface: "eth1"}, B: Endpoint{DeviceID: "b", Interface: "eth0"}}
	assert.Equal(t, l1.CanonicalKey(), l2.CanonicalKey())
}

func TestMetricSeriesKey(t *testing.T) {
	m := Metric{DeviceID: "d1", Type: MetricMemory}
	assert.Equal(t, "d1:MEMORY", m.SeriesKey())
}

func TestSecretIsSet(t *testing.T) {
	var s Secret
	assert.False(t, s.IsSet())
	s = Secret("sealed-bytes")
	assert.True(t, s.IsSet())
}

func TestSyslogCategoryEmptyWhenUnset(t *testing.T) {
	m := SyslogMessage{}
	assert.Empty(t, m.Category())
	m.StructuredData = map[string]string{"category": "bgp_adjacency_change"}
	assert.Equal(t, "bgp_adjacency_change", m.Category())
}
