package agents

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/netopshub/netopshub/pkg/model"
)

const seasonalityMinPeriod = 10

// ForecastHandler predicts threshold breaches and trend direction from
// a supplied metric history using ordinary least squares regression.
type ForecastHandler struct {
	*agentBase
}

// NewForecastHandler creates a handler with no external dependencies;
// callers supply metric history directly in each task's input.
func NewForecastHandler() *ForecastHandler {
	return &ForecastHandler{agentBase: newAgentBase("forecast", "Capacity planning and failure prediction")}
}

// Process dispatches predict_capacity and trend_analysis task kinds.
func (h *ForecastHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "predict_capacity":
		values := floatSliceInput(task.Input, "metric_history")
		threshold := floatInput(task.Input, "threshold", 90.0)
		intervalSeconds := floatInput(task.Input, "interval_seconds", 60)
		return h.completeTask(task, predictThresholdBreach(values, threshold, intervalSeconds))

	case "trend_analysis":
		values := floatSliceInput(task.Input, "metric_history")
		return h.completeTask(task, analyzeTrend(values))

	default:
		return h.failUnknownKind(task)
	}
}

func floatSliceInput(input map[string]interface{}, key string) []float64 {
	raw, ok := input[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []float64:
		return v
	case []interface{}:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			if f, ok := item.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}

func linearRegression(x, y []float64) (slope, intercept float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumX2 float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
	}
	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func rSquaredConfidence(x, y []float64, slope, intercept float64) float64 {
	mean := meanOf(y)
	var ssTot, ssRes float64
	for i := range y {
		ssTot += (y[i] - mean) * (y[i] - mean)
		fitted := slope*x[i] + intercept
		ssRes += (y[i] - fitted) * (y[i] - fitted)
	}
	if ssTot == 0 {
		return 1.0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	}
	return r2
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

func predictThresholdBreach(values []float64, threshold, intervalSeconds float64) map[string]interface{} {
	if len(values) < 3 {
		return map[string]interface{}{
			"prediction": "insufficient_data",
			"message":    "need at least 3 data points for prediction",
		}
	}

	n := len(values)
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	slope, intercept := linearRegression(x, values)
	current := values[n-1]

	if slope <= 0 {
		trend := "stable"
		if slope < 0 {
			trend = "decreasing"
		}
		return map[string]interface{}{
			"prediction":    "no_breach",
			"slope":         slope,
			"current_value": current,
			"threshold":     threshold,
			"trend":         trend,
			"message":       fmt.Sprintf("metric is %s, no breach predicted", trend),
		}
	}

	stepsToBreach := (threshold - current) / slope
	if stepsToBreach < 0 {
		stepsToBreach = 0
	}
	secondsToBreach := stepsToBreach * intervalSeconds
	breachTime := time.Now().UTC().Add(time.Duration(secondsToBreach) * time.Second)
	confidence := rSquaredConfidence(x, values, slope, intercept)

	return map[string]interface{}{
		"prediction":             "breach_predicted",
		"current_value":          current,
		"threshold":              threshold,
		"slope_per_interval":     slope,
		"estimated_breach_time":  breachTime.Format(time.RFC3339),
		"time_to_breach_hours":   secondsToBreach / 3600,
		"confidence":             confidence,
		"message": fmt.Sprintf("threshold of %.1f predicted to be reached in %.1f hours",
			threshold, secondsToBreach/3600),
	}
}

func analyzeTrend(values []float64) map[string]interface{} {
	if len(values) < 3 {
		return map[string]interface{}{"trend": "unknown", "message": "insufficient data"}
	}

	n := len(values)
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	slope, _ := linearRegression(x, values)
	mean := meanOf(values)
	stddev := stdDevOf(values, mean)
	hasSeasonality := detectSeasonality(values, mean)

	trend := "stable"
	if math.Abs(slope) >= stddev*0.01 {
		if slope > 0 {
			trend = "increasing"
		} else if slope < 0 {
			trend = "decreasing"
		}
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	return map[string]interface{}{
		"trend":           trend,
		"slope":           slope,
		"mean":            mean,
		"std_dev":         stddev,
		"min":             min,
		"max":             max,
		"has_seasonality": hasSeasonality,
		"data_points":     n,
	}
}

func detectSeasonality(values []float64, mean float64) bool {
	n := len(values)
	if n < seasonalityMinPeriod*2 {
		return false
	}

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)
	if variance == 0 {
		return false
	}

	for lag := seasonalityMinPeriod; lag < n/2; lag++ {
		var autocorr float64
		for i := 0; i < n-lag; i++ {
			autocorr += (values[i] - mean) * (values[i+lag] - mean)
		}
		autocorr /= float64(n-lag) * variance
		if autocorr > 0.5 {
			return true
		}
	}
	return false
}

// Chat answers capacity-planning questions, directing the caller to the
// predict_capacity task when no metric history is embedded in context.
func (h *ForecastHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	lower := strings.ToLower(message)
	var response string
	if values := floatSliceInput(context, "metric_history"); len(values) >= 3 {
		threshold := floatInput(context, "threshold", 90.0)
		forecast := predictThresholdBreach(values, threshold, 60)
		response = fmt.Sprintf("%v", forecast["message"])
	} else if strings.Contains(lower, "bandwidth") || strings.Contains(lower, "capacity") || strings.Contains(lower, "cpu") || strings.Contains(lower, "memory") || strings.Contains(lower, "predict") || strings.Contains(lower, "forecast") {
		response = "I can predict capacity exhaustion and potential failures from a metric history. " +
			"Submit a predict_capacity task with metric_history and threshold to get a breach estimate."
	} else {
		response = "I can predict capacity exhaustion and potential failures.\n\n" +
			"Try asking about bandwidth, CPU, or memory trends, or submit a predict_capacity task."
	}

	h.logMessage(model.RoleAssistant, response)
	return response
}
