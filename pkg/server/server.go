// Package server wires the engines, collectors, and domain handlers
// into the HTTP/JSON query-command API described in spec.md §6.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/netopshub/netopshub/internal/config"
	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/internal/metrics"
	"github.com/netopshub/netopshub/pkg/agents"
	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/anomaly"
	"github.com/netopshub/netopshub/pkg/collectors/httpapi"
	"github.com/netopshub/netopshub/pkg/collectors/poll"
	"github.com/netopshub/netopshub/pkg/collectors/unified"
	"github.com/netopshub/netopshub/pkg/compliance"
	"github.com/netopshub/netopshub/pkg/configstore"
	"github.com/netopshub/netopshub/pkg/health"
	"github.com/netopshub/netopshub/pkg/intent"
	"github.com/netopshub/netopshub/pkg/sla"
	"github.com/netopshub/netopshub/pkg/topology"
)

// handlerInfo is the subset of pkg/agents.agentBase's promoted methods
// the status endpoints need; every concrete handler in pkg/agents
// satisfies it by embedding agentBase.
type handlerInfo interface {
	Name() string
	Description() string
	TaskCount() int
}

// Server holds every engine, collector, and domain handler the API
// surface is a view over.
type Server struct {
	cfg     config.Config
	log     *logging.Logger
	metrics *metrics.Metrics

	graph       *topology.Graph
	healthEng   *health.Engine
	anomalyEng  *anomaly.Engine
	alerts      *alert.Manager
	slaEval     *sla.Evaluator
	configStore *configstore.Store
	complEval   *compliance.Evaluator

	pollCollector *poll.Collector
	httpCollector *httpapi.Collector
	unified       *unified.Collector

	router   *intent.Router
	handlers []handlerInfo

	hub *streamHub

	startTime time.Time
}

// Deps carries the engines, collectors, and handlers a Server is built
// from, so tests can assemble a Server without cmd/netopshub's
// full process wiring.
type Deps struct {
	Config        config.Config
	Log           *logging.Logger
	Metrics       *metrics.Metrics
	Graph         *topology.Graph
	Health        *health.Engine
	Anomaly       *anomaly.Engine
	Alerts        *alert.Manager
	SLA           *sla.Evaluator
	ConfigStore   *configstore.Store
	Compliance    *compliance.Evaluator
	PollCollector *poll.Collector
	HTTPCollector *httpapi.Collector
	Unified       *unified.Collector
}

// New assembles a Server, registering the seven domain handlers into a
// fresh intent.Router.
func New(d Deps) *Server {
	s := &Server{
		cfg:           d.Config,
		log:           d.Log,
		metrics:       d.Metrics,
		graph:         d.Graph,
		healthEng:     d.Health,
		anomalyEng:    d.Anomaly,
		alerts:        d.Alerts,
		slaEval:       d.SLA,
		configStore:   d.ConfigStore,
		complEval:     d.Compliance,
		pollCollector: d.PollCollector,
		httpCollector: d.HTTPCollector,
		unified:       d.Unified,
		router:        intent.New(),
		hub:           newStreamHub(),
		startTime:     time.Now(),
	}

	discovery := agents.NewDiscoveryHandler(s.graph)
	diagnosis := agents.NewDiagnosisHandler(s.alerts, s.graph)
	knowledge := agents.NewKnowledgeHandler()
	complianceHandler := agents.NewComplianceHandler(s.complEval, s.configStore)
	forecast := agents.NewForecastHandler()
	remediation := agents.NewRemediationHandler()
	verification := agents.NewVerificationHandler(s.alerts, s.healthEng)

	s.router.Register("discovery", discovery)
	s.router.Register("diagnosis", diagnosis)
	s.router.Register("knowledge", knowledge)
	s.router.Register("compliance", complianceHandler)
	s.router.Register("forecast", forecast)
	s.router.Register("remediation", remediation)
	s.router.Register("verification", verification)

	s.handlers = []handlerInfo{discovery, diagnosis, knowledge, complianceHandler, forecast, remediation, verification}

	return s
}

// Chat routes message to a domain handler the same way POST /chat
// does, for callers (the CLI's chat subcommand) that want the response
// without going through HTTP.
func (s *Server) Chat(message string, context map[string]interface{}) string {
	return s.router.Chat(message, context)
}

// Router builds the mux.Router exposing every path from spec.md §6
// plus the additive GET /ws/stream endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices/scan", s.handleScanDevices).Methods(http.MethodPost)

	r.HandleFunc("/metrics", s.handleListMetrics).Methods(http.MethodGet)
	r.HandleFunc("/metrics/collect", s.handleCollectMetrics).Methods(http.MethodPost)

	r.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	r.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledgeAlert).Methods(http.MethodPost)
	r.HandleFunc("/alerts/{id}/resolve", s.handleResolveAlert).Methods(http.MethodPost)

	r.HandleFunc("/topology", s.handleTopology).Methods(http.MethodGet)

	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/chat/history", s.handleChatHistory).Methods(http.MethodGet)

	r.HandleFunc("/compliance/audit", s.handleComplianceAudit).Methods(http.MethodPost)
	r.HandleFunc("/compliance/status", s.handleComplianceStatus).Methods(http.MethodGet)

	r.HandleFunc("/sla", s.handleSLA).Methods(http.MethodGet)
	r.HandleFunc("/agents", s.handleAgents).Methods(http.MethodGet)

	r.HandleFunc("/ws/stream", s.handleStream).Methods(http.MethodGet)

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest("netopshub", r.Method, r.URL.Path, "200", time.Since(start))
		}
	})
}

// Serve starts an HTTP server bound to addr, running until ctx is
// cancelled, then gracefully shuts down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
