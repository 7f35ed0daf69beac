// Package agents implements the seven domain handlers dispatched by
// the intent router: discovery, knowledge, diagnosis, compliance,
// forecast, remediation, and verification. Each embeds agentBase,
// composed rather than inherited, for bounded task/message history.
package agents

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netopshub/netopshub/internal/errors"
	"github.com/netopshub/netopshub/pkg/model"
)

const maxHandlerHistory = 200

// agentBase is the shared bookkeeping every handler composes: bounded
// task and message history plus the completed/failed task helpers.
// Grounded on the reference platform's BaseAgent, reimplemented as a
// plain struct with no inheritance.
type agentBase struct {
	mu             sync.Mutex
	name           string
	description    string
	taskHistory    []model.AgentTask
	messageHistory []model.AgentMessage
}

func newAgentBase(name, description string) *agentBase {
	return &agentBase{name: name, description: description}
}

func (a *agentBase) logMessage(role model.MessageRole, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messageHistory = append(a.messageHistory, model.AgentMessage{
		Role: role, Content: content, AgentName: a.name, Timestamp: time.Now(),
	})
	if len(a.messageHistory) > maxHandlerHistory {
		a.messageHistory = a.messageHistory[len(a.messageHistory)-maxHandlerHistory:]
	}
}

func (a *agentBase) completeTask(task model.AgentTask, output map[string]interface{}) model.AgentTask {
	now := time.Now()
	task.Status = model.TaskCompleted
	task.Output = output
	task.CompletedAt = &now
	a.recordTask(task)
	return task
}

func (a *agentBase) failTask(task model.AgentTask, errMsg string) model.AgentTask {
	now := time.Now()
	task.Status = model.TaskFailed
	task.Error = errMsg
	task.CompletedAt = &now
	a.recordTask(task)
	return task
}

// failUnknownKind fails task with the handler's standard "does not
// implement this task kind" error.
func (a *agentBase) failUnknownKind(task model.AgentTask) model.AgentTask {
	return a.failTask(task, errors.InvalidTaskKind(a.name, task.Kind).Message)
}

func (a *agentBase) recordTask(task model.AgentTask) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.taskHistory = append(a.taskHistory, task)
	if len(a.taskHistory) > maxHandlerHistory {
		a.taskHistory = a.taskHistory[len(a.taskHistory)-maxHandlerHistory:]
	}
}

// Name returns the handler's registered name.
func (a *agentBase) Name() string { return a.name }

// Description returns the handler's human-readable capability summary.
func (a *agentBase) Description() string { return a.description }

// TaskCount reports how many tasks are retained in history.
func (a *agentBase) TaskCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.taskHistory)
}

// TaskHistory returns the last limit tasks processed, oldest first.
func (a *agentBase) TaskHistory(limit int) []model.AgentTask {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.taskHistory) {
		limit = len(a.taskHistory)
	}
	out := make([]model.AgentTask, limit)
	copy(out, a.taskHistory[len(a.taskHistory)-limit:])
	return out
}

// MessageHistory returns the last limit chat turns, oldest first.
func (a *agentBase) MessageHistory(limit int) []model.AgentMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.messageHistory) {
		limit = len(a.messageHistory)
	}
	out := make([]model.AgentMessage, limit)
	copy(out, a.messageHistory[len(a.messageHistory)-limit:])
	return out
}

func newTask(handler, kind string, input map[string]interface{}) model.AgentTask {
	return model.AgentTask{
		ID:        uuid.NewString(),
		Handler:   handler,
		Kind:      kind,
		Input:     input,
		Status:    model.TaskRunning,
		CreatedAt: time.Now(),
	}
}

func stringInput(input map[string]interface{}, key, fallback string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func floatInput(input map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := input[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return fallback
}
