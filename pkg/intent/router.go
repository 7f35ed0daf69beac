// Package intent routes free-text messages and named workflows to
// domain handlers, and keeps a bounded conversation log.
package intent

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/netopshub/netopshub/pkg/model"
)

// Handler is the capability every domain handler in pkg/agents exposes
// to the router. Handlers are looked up by name, never inherited from.
type Handler interface {
	Process(task model.AgentTask) model.AgentTask
	Chat(message string, context map[string]interface{}) string
}

// routingPattern pairs a case-insensitive regex with the handler name
// it routes to, in priority order for tie-breaking.
type routingPattern struct {
	pattern *regexp.Regexp
	handler string
}

var defaultPatterns = []routingPattern{
	{regexp.MustCompile(`discover|scan|topology|neighbor|lldp|cdp`), "discovery"},
	{regexp.MustCompile(`why|diagnos|root.?cause|rca|anomal|flap|down|error|fail`), "diagnosis"},
	{regexp.MustCompile(`what.*(mean|is)|document|vendor|knowledge|explain|how.*(work|config)`), "knowledge"},
	{regexp.MustCompile(`complian|audit|nist|cis|pci|security.*(check|scan)|baseline`), "compliance"},
	{regexp.MustCompile(`predict|forecast|capacity|trend|when.*will|exhaustion|growth`), "forecast"},
	{regexp.MustCompile(`fix|remedia|change|config|propose|rollback|patch`), "remediation"},
	{regexp.MustCompile(`verif|check|regression|health|post.?change|validate`), "verification"},
}

const defaultHelpResponse = "I'm NetOpsHub's assistant. I can help with discovery, diagnosis, knowledge, compliance, forecasting, remediation, and verification. What would you like to investigate?"

const maxConversationLog = 500

// Router dispatches chat messages and workflows to registered handlers.
type Router struct {
	mu           sync.Mutex
	handlers     map[string]Handler
	patterns     []routingPattern
	conversation []model.AgentMessage
}

// New creates a Router with the default routing patterns.
func New() *Router {
	return &Router{
		handlers: make(map[string]Handler),
		patterns: defaultPatterns,
	}
}

// Register wires a handler under name.
func (r *Router) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// route picks the handler with the highest match count across its
// regex, breaking ties by earlier position in the pattern list.
func (r *Router) route(message string) string {
	lower := strings.ToLower(message)
	bestHandler := ""
	bestScore := 0

	for _, p := range r.patterns {
		matches := p.pattern.FindAllString(lower, -1)
		if len(matches) > bestScore {
			bestScore = len(matches)
			bestHandler = p.handler
		}
	}
	return bestHandler
}

func (r *Router) appendMessage(msg model.AgentMessage) {
	r.conversation = append(r.conversation, msg)
	if len(r.conversation) > maxConversationLog {
		r.conversation = r.conversation[len(r.conversation)-maxConversationLog:]
	}
}

// Chat routes message to the best-matching handler, falling back to a
// default help response when no pattern matches. Every call appends
// both turns to the bounded conversation log.
func (r *Router) Chat(message string, context map[string]interface{}) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.appendMessage(model.AgentMessage{Role: model.RoleUser, Content: message, AgentName: "router", Timestamp: now})

	handlerName := r.route(message)
	handler, ok := r.handlers[handlerName]

	var response string
	if ok {
		response = "*[" + capitalize(handlerName) + " Agent]*\n\n" + handler.Chat(message, context)
	} else {
		response = defaultHelpResponse
		handlerName = "router"
	}

	r.appendMessage(model.AgentMessage{Role: model.RoleAssistant, Content: response, AgentName: handlerName, Timestamp: time.Now()})
	return response
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// History returns the last limit conversation turns, oldest first.
func (r *Router) History(limit int) []model.AgentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.conversation) {
		limit = len(r.conversation)
	}
	out := make([]model.AgentMessage, limit)
	copy(out, r.conversation[len(r.conversation)-limit:])
	return out
}

// workflowStepSpec is one step in a named workflow's declared chain.
type workflowStepSpec struct {
	handler string
	kind    string
	input   func(workflowInput map[string]interface{}, prior []model.WorkflowStep) map[string]interface{}
}

var namedWorkflows = map[string][]workflowStepSpec{
	"diagnose_and_fix": {
		{handler: "diagnosis", kind: "diagnose", input: func(in map[string]interface{}, _ []model.WorkflowStep) map[string]interface{} {
			return in
		}},
		{handler: "remediation", kind: "propose_fix", input: func(in map[string]interface{}, _ []model.WorkflowStep) map[string]interface{} {
			return map[string]interface{}{"issue": in["issue"], "device_id": in["device"]}
		}},
		{handler: "verification", kind: "verify_change", input: func(in map[string]interface{}, _ []model.WorkflowStep) map[string]interface{} {
			return map[string]interface{}{"device_id": in["device"], "change_type": in["issue"]}
		}},
	},
	"full_audit": {
		{handler: "discovery", kind: "scan_subnet", input: func(in map[string]interface{}, _ []model.WorkflowStep) map[string]interface{} {
			return map[string]interface{}{"subnet": in["subnet"]}
		}},
		{handler: "compliance", kind: "audit_all", input: func(in map[string]interface{}, _ []model.WorkflowStep) map[string]interface{} {
			return map[string]interface{}{"framework": in["framework"]}
		}},
	},
}

// RunWorkflow chains a named workflow's handlers sequentially, passing
// each step its declared input mapping. A step's failure is recorded
// but does not abort subsequent steps.
func (r *Router) RunWorkflow(name string, input map[string]interface{}) model.WorkflowRun {
	r.mu.Lock()
	specs, known := namedWorkflows[name]
	handlers := r.handlers
	r.mu.Unlock()

	run := model.WorkflowRun{Name: name, Status: model.TaskCompleted, StartedAt: time.Now()}
	if !known {
		run.Status = model.TaskFailed
		run.Steps = append(run.Steps, model.WorkflowStep{Error: "unknown workflow: " + name})
		return run
	}

	for _, spec := range specs {
		handler, ok := handlers[spec.handler]
		if !ok {
			run.Steps = append(run.Steps, model.WorkflowStep{Handler: spec.handler, Error: "handler not registered: " + spec.handler})
			continue
		}

		task := model.AgentTask{Handler: spec.handler, Kind: spec.kind, Input: spec.input(input, run.Steps), Status: model.TaskPending}
		result := handler.Process(task)

		step := model.WorkflowStep{Handler: spec.handler, Result: result.Output}
		if result.Status == model.TaskFailed {
			step.Error = result.Error
		}
		run.Steps = append(run.Steps, step)
	}

	return run
}
