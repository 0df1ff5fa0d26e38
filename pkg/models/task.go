package models

import "time"

// TaskStatus represents the current state of a Task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been created but not launched.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates a Subagent is actively working the task.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task's Subagent reported success.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task's Subagent reported failure, or
	// was force-completed without ever reporting.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once the task can no longer be mutated.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ContextBootstrap names a sandbox file to read and inline into a
// Subagent's launch prompt, along with why it's relevant.
type ContextBootstrap struct {
	Path   string `yaml:"path" json:"path"`
	Reason string `yaml:"reason" json:"reason"`
}

// Task is a unit of delegated work created by the Orchestrator and carried
// out by exactly one Subagent invocation.
type Task struct {
	ID string `json:"id"`
	// AgentType selects which Subagent variant (Explorer/Coder) will run
	// this task.
	AgentType AgentType `json:"agent_type"`
	// Title is a short (<=7 word) label for the task.
	Title string `json:"title"`
	// Description is the full task brief handed to the Subagent.
	Description string `json:"description"`
	// ContextRefs are Context ids resolved and inlined at launch time, in
	// order.
	ContextRefs []string `json:"context_refs,omitempty"`
	// ContextBootstrap are sandbox files read at launch time and inlined
	// into the prompt, in order.
	ContextBootstrap []ContextBootstrap `json:"context_bootstrap,omitempty"`

	Status TaskStatus `json:"status"`
	// Result holds the Subagent's Report once the task reaches a terminal
	// status.
	Result *Report `json:"result,omitempty"`
	// FailureReason is set when Status is failed, independent of whether a
	// Report was ever produced.
	FailureReason string `json:"failure_reason,omitempty"`
	// Warnings accumulates non-fatal issues encountered ingesting this
	// task's Report (e.g. a duplicate context id).
	Warnings []string `json:"warnings,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	LaunchedAt  *time.Time `json:"launched_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReadOnly reports whether the task has reached a terminal status and can
// no longer be mutated by the hub.
func (t *Task) ReadOnly() bool {
	return t.Status.Terminal()
}

// FinalStatus is the outcome a Subagent's Report declares for itself.
type FinalStatus string

const (
	// FinalStatusCompleted indicates the Subagent believes it succeeded.
	FinalStatusCompleted FinalStatus = "completed"
	// FinalStatusFailed indicates the Subagent believes it could not
	// complete the task.
	FinalStatusFailed FinalStatus = "failed"
	// FinalStatusForced indicates the runtime synthesized this Report
	// after the Subagent exhausted its turn budget without reporting.
	FinalStatusForced FinalStatus = "forced"
)

// Valid returns true if the final status is a known value.
func (f FinalStatus) Valid() bool {
	switch f {
	case FinalStatusCompleted, FinalStatusFailed, FinalStatusForced:
		return true
	default:
		return false
	}
}

// ReportContext is one Context emitted inline on a Report, before it is
// assigned a creation timestamp and ingested into the Context Store.
type ReportContext struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Report is the single structured output of a Subagent invocation.
type Report struct {
	TaskID       string          `json:"task_id"`
	Contexts     []ReportContext `json:"contexts,omitempty"`
	Comments     string          `json:"comments,omitempty"`
	FinalStatus  FinalStatus     `json:"final_status"`
}

// Context is an immutable, id-addressed knowledge artifact stored in the
// Hub's Context Store for the lifetime of a top-level task.
type Context struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskSpec is the validated input to Hub.CreateTask.
type TaskSpec struct {
	AgentType        AgentType
	Title            string
	Description      string
	ContextRefs      []string
	ContextBootstrap []ContextBootstrap
}
