package model

import "time"

// TaskStatus is a node in the AgentTask lifecycle. Completed and Failed
// are absorbing.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// AgentTask is one unit of work dispatched to a domain handler.
type AgentTask struct {
	ID          string                 `json:"id"`
	Handler     string                 `json:"handler"`
	Kind        string                 `json:"kind"`
	Input       map[string]interface{} `json:"input,omitempty"`
	Output      map[string]interface{} `json:"output,omitempty"`
	Status      TaskStatus             `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// MessageRole distinguishes a conversational turn's speaker.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// AgentMessage is one turn in the intent router's conversation log.
type AgentMessage struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	AgentName string      `json:"agent_name,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WorkflowStep records one handler invocation within a named workflow run.
type WorkflowStep struct {
	Handler string                 `json:"handler"`
	Result  map[string]interface{} `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// WorkflowRun is the accumulated result of a chained multi-handler workflow.
type WorkflowRun struct {
	Name      string         `json:"name"`
	Status    TaskStatus     `json:"status"`
	Steps     []WorkflowStep `json:"steps"`
	StartedAt time.Time      `json:"started_at"`
}
