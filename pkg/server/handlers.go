package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	nerrors "github.com/netopshub/netopshub/internal/errors"
	"github.com/netopshub/netopshub/internal/httputil"
	"github.com/netopshub/netopshub/pkg/collectors/unified"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const apiVersion = "1.0.0"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": apiVersion,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	devices := s.graph.Snapshot().Devices
	summary := s.alerts.GetSummary()

	handlerStatuses := make(map[string]map[string]interface{}, len(s.handlers))
	for _, h := range s.handlers {
		handlerStatuses[h.Name()] = map[string]interface{}{
			"description": h.Description(),
			"task_count":  h.TaskCount(),
		}
	}

	metricsCount := 0
	if s.unified != nil {
		metricsCount = len(s.unified.GetMetrics(unified.MetricFilter{}))
	}

	status := map[string]interface{}{
		"collector_running": s.unified != nil,
		"total_metrics":     metricsCount,
		"device_count":      len(devices),
		"alert_summary":     summary,
		"handlers":          handlerStatuses,
		"uptime_seconds":    time.Since(s.startTime).Seconds(),
		"self":              selfStats(),
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// selfStats reports, under the "self" namespace, the host's CPU percent
// and used memory as seen by gopsutil, and the process's goroutine count.
func selfStats() map[string]interface{} {
	out := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		out["cpu_percent"] = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out["memory_bytes"] = vm.Used
	}
	return out
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.graph.Snapshot().Devices
	if len(devices) == 0 {
		_, _ = s.ScanSubnet(s.cfg.DefaultSubnet, "")
		devices = s.graph.Snapshot().Devices
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

type scanDevicesRequest struct {
	Subnet    string `json:"subnet"`
	Community string `json:"community"`
}

func (s *Server) handleScanDevices(w http.ResponseWriter, r *http.Request) {
	var req scanDevicesRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	subnet := req.Subnet
	if subnet == "" {
		subnet = s.cfg.DefaultSubnet
	}
	count, err := s.ScanSubnet(subnet, req.Community)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"discovered": count})
}

func (s *Server) handleListMetrics(w http.ResponseWriter, r *http.Request) {
	deviceID := httputil.QueryString(r, "device_id", "")
	metricType := httputil.QueryString(r, "metric_type", "")
	limit := httputil.QueryInt(r, "limit", 100)

	var metrics []model.Metric
	if s.unified != nil {
		metrics = s.unified.GetMetrics(unified.MetricFilter{
			DeviceID: deviceID,
			Type:     model.MetricType(metricType),
			Limit:    limit,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"metrics": metrics, "limit": limit})
}

func (s *Server) handleCollectMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var metrics []model.Metric
	if s.unified != nil {
		metrics = s.unified.CollectAll(ctx)
	}

	alertCount := 0
	anomalyCount := 0
	if s.healthEng != nil {
		for _, a := range s.healthEng.ProcessMetrics(metrics) {
			s.alerts.Add(a)
			alertCount++
		}
	}
	if s.anomalyEng != nil {
		for _, m := range metrics {
			anomalyCount += len(s.anomalyEng.Detect(m))
		}
	}
	if s.slaEval != nil {
		for _, m := range metrics {
			s.slaEval.RecordMetric(m)
		}
	}
	if s.metrics != nil {
		s.metrics.RecordCollection("unified", "success", time.Since(s.startTime))
		s.metrics.SetAlertsActive("all", alertCount)
	}

	s.hub.publish(streamMessage{Kind: "metrics.collected", Data: map[string]interface{}{
		"metrics": len(metrics), "alerts": alertCount, "anomalies": anomalyCount,
	}})

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"metrics_collected":  len(metrics),
		"alerts_generated":   alertCount,
		"anomalies_detected": anomalyCount,
	})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	deviceID := httputil.QueryString(r, "device_id", "")
	state := model.AlertState(httputil.QueryString(r, "state", ""))
	severity := httputil.QueryString(r, "severity", "")
	limit := httputil.QueryInt(r, "limit", 100)

	alerts := s.alerts.List(deviceID, state)
	if severity != "" {
		filtered := alerts[:0]
		for _, a := range alerts {
			if string(a.Severity) == severity {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}
	if limit > 0 && limit < len(alerts) {
		alerts = alerts[len(alerts)-limit:]
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":  alerts,
		"summary": s.alerts.GetSummary(),
	})
}

type acknowledgeAlertRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req acknowledgeAlertRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	alert, err := s.alerts.Acknowledge(id, req.AcknowledgedBy)
	if err != nil {
		writeDomainError(w, r, s, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alert)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	alert, err := s.alerts.Resolve(id)
	if err != nil {
		writeDomainError(w, r, s, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alert)
}

func writeDomainError(w http.ResponseWriter, r *http.Request, s *Server, err error) {
	if domainErr, ok := err.(*nerrors.Error); ok {
		httputil.WriteErrorResponse(w, r, domainErr.HTTPStatus, string(domainErr.Code), domainErr.Message, domainErr.Details)
		return
	}
	httputil.WriteErrorResponse(w, r, http.StatusBadRequest, "", err.Error(), nil)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.graph.Snapshot())
}

type chatRequest struct {
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		httputil.BadRequest(w, "message is required")
		return
	}
	response := s.router.Chat(req.Message, req.Context)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"response": response})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", 50)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": s.router.History(limit)})
}

type complianceAuditRequest struct {
	Framework string `json:"framework"`
	DeviceID  string `json:"device_id"`
}

func (s *Server) handleComplianceAudit(w http.ResponseWriter, r *http.Request) {
	var req complianceAuditRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	framework := model.ComplianceFramework(req.Framework)
	if framework == "" {
		framework = model.FrameworkCIS
	}

	configs := s.configsFor(req.DeviceID)
	if len(configs) == 0 {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": []model.DeviceComplianceSummary{}, "summary": model.ComplianceSummary{}})
		return
	}

	results, summary := s.complEval.EvaluateFleet(configs, framework)
	if s.metrics != nil {
		s.metrics.SetComplianceScore(string(framework), summary.OverallScore)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results, "summary": summary})
}

func (s *Server) handleComplianceStatus(w http.ResponseWriter, r *http.Request) {
	configs := s.configsFor("")
	if len(configs) == 0 {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": []model.DeviceComplianceSummary{}, "summary": model.ComplianceSummary{}})
		return
	}
	results, summary := s.complEval.EvaluateFleet(configs, model.FrameworkCIS)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results, "summary": summary})
}

// configsFor returns the latest backed-up config text per device, or
// just deviceID's if non-empty.
func (s *Server) configsFor(deviceID string) map[string]string {
	out := make(map[string]string)
	devices := s.configStore.Devices()
	for _, d := range devices {
		if deviceID != "" && d != deviceID {
			continue
		}
		snap, err := s.configStore.Latest(d)
		if err != nil {
			continue
		}
		out[d] = snap.RawConfig
	}
	return out
}

func (s *Server) handleSLA(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"reports": s.slaEval.EvaluateAll()})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]interface{}, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, map[string]interface{}{
			"name":        h.Name(),
			"description": h.Description(),
			"task_count":  h.TaskCount(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"agents": out})
}
