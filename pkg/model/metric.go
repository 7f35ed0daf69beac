package model

import "time"

// MetricType enumerates the kinds of time-series samples the core ingests.
type MetricType string

const (
	MetricCPU            MetricType = "CPU"
	MetricMemory         MetricType = "MEMORY"
	MetricBandwidthIn    MetricType = "BANDWIDTH_IN"
	MetricBandwidthOut   MetricType = "BANDWIDTH_OUT"
	MetricErrorRate      MetricType = "ERROR_RATE"
	MetricDiscardRate    MetricType = "DISCARD_RATE"
	MetricLatency        MetricType = "LATENCY"
	MetricJitter         MetricType = "JITTER"
	MetricPacketLoss     MetricType = "PACKET_LOSS"
	MetricTemperature    MetricType = "TEMPERATURE"
	MetricPower          MetricType = "POWER"
	MetricFanSpeed       MetricType = "FAN_SPEED"
	MetricUptime         MetricType = "UPTIME"
	MetricBGPPrefixes    MetricType = "BGP_PREFIXES"
	MetricOSPFNeighbors  MetricType = "OSPF_NEIGHBORS"
	MetricCustom         MetricType = "CUSTOM"
)

// MetricSource identifies the collector protocol that produced a Metric.
type MetricSource string

const (
	SourceSNMP    MetricSource = "snmp"
	SourceNetflow MetricSource = "netflow"
	SourceSyslog  MetricSource = "syslog"
	SourceRESTAPI MetricSource = "rest_api"
)

// Metric is one immutable telemetry sample emitted by a collector.
type Metric struct {
	ID            string            `json:"id"`
	DeviceID      string            `json:"device_id"`
	InterfaceName string            `json:"interface_name,omitempty"`
	Type          MetricType        `json:"type"`
	Value         float64           `json:"value"`
	Unit          string            `json:"unit,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        MetricSource      `json:"source"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// SeriesKey returns the per-series identity used to key health/anomaly
// engine state: "<device>:<metric-type>".
func (m Metric) SeriesKey() string {
	return m.DeviceID + ":" + string(m.Type)
}
