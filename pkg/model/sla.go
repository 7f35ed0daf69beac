package model

// Comparison is the direction an SLATarget's value must satisfy.
type Comparison string

const (
	ComparisonLessThan    Comparison = "lt"
	ComparisonGreaterThan Comparison = "gt"
)

// SLATarget defines an SLA expectation for a metric type, optionally
// scoped to one device.
type SLATarget struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	MetricType       MetricType `json:"metric_type"`
	DeviceID         string     `json:"device_id,omitempty"`
	TargetValue      float64    `json:"target_value"`
	Comparison       Comparison `json:"comparison"`
	WindowSamples    int        `json:"window_samples"`
}

// SLAReport is the evaluated compliance state of one SLATarget.
type SLAReport struct {
	TargetID        string  `json:"target_id"`
	CurrentValue    float64 `json:"current_value"`
	IsMet           bool    `json:"is_met"`
	CompliancePct   float64 `json:"compliance_percentage"`
	ViolationCount  int     `json:"violation_count"`
	SampleCount     int     `json:"sample_count"`
}
