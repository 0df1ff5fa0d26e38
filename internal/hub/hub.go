// Package hub implements the Orchestrator Hub: the Task registry and
// Context Store shared by the Orchestrator Runtime across its entire
// top-level run. Every mutation goes through a single coarse mutex; the
// control plane is not latency-critical enough to warrant per-task
// fine-grained locking.
package hub

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// Hub owns every Task and Context created during one top-level run.
type Hub struct {
	mu       sync.Mutex
	tasks    map[string]*models.Task
	contexts map[string]*models.Context
	order    []string // task ids in creation order, for Snapshot
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		tasks:    make(map[string]*models.Task),
		contexts: make(map[string]*models.Context),
	}
}

// CreateTask validates spec and registers a new pending Task, returning its
// id. Every entry in ContextRefs must already resolve in the Context Store;
// an unresolved ref is a ValidationError and the task is not created.
func (h *Hub) CreateTask(spec models.TaskSpec) (string, models.ExecutionResult) {
	if !spec.AgentType.Valid() {
		return "", models.Err(models.ErrorKindValidationError, fmt.Sprintf("unknown agent_type %q", spec.AgentType))
	}
	if spec.Title == "" {
		return "", models.Err(models.ErrorKindValidationError, "task_create.title is required")
	}
	if spec.Description == "" {
		return "", models.Err(models.ErrorKindValidationError, "task_create.description is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ref := range spec.ContextRefs {
		if _, ok := h.contexts[ref]; !ok {
			return "", models.Err(models.ErrorKindValidationError, fmt.Sprintf("context_refs entry %q does not resolve", ref))
		}
	}

	id := "task_" + uuid.NewString()
	task := &models.Task{
		ID:               id,
		AgentType:        spec.AgentType,
		Title:            spec.Title,
		Description:      spec.Description,
		ContextRefs:      append([]string(nil), spec.ContextRefs...),
		ContextBootstrap: append([]models.ContextBootstrap(nil), spec.ContextBootstrap...),
		Status:           models.TaskStatusPending,
		CreatedAt:        time.Now(),
	}
	h.tasks[id] = task
	h.order = append(h.order, id)

	return id, models.Ok(fmt.Sprintf("created %s", id))
}

// AddContext registers an orchestrator-authored Context. A duplicate id is
// rejected, matching the uniqueness rule applied to Report-sourced contexts.
func (h *Hub) AddContext(id, content string) models.ExecutionResult {
	if id == "" {
		return models.Err(models.ErrorKindValidationError, "add_context.id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.contexts[id]; exists {
		return models.Err(models.ErrorKindValidationError, fmt.Sprintf("context id %q already exists", id))
	}

	h.contexts[id] = &models.Context{
		ID:        id,
		Content:   content,
		CreatedBy: "orchestrator",
		CreatedAt: time.Now(),
	}
	return models.Ok(fmt.Sprintf("added context %s", id))
}

// Task looks up a task by id.
func (h *Hub) Task(id string) (*models.Task, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tasks[id]
	if !ok {
		return nil, false
	}
	clone := *t
	return &clone, true
}

// Tasks returns a copy of every task in creation order, for end-of-run
// stats and trajectory checks.
func (h *Hub) Tasks() []models.Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Task, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, *h.tasks[id])
	}
	return out
}

// ResolveContexts expands refs into their stored content, in order. An
// unresolved ref fails the whole resolution with NotFound, since a task
// should never have been created with a dangling reference.
func (h *Hub) ResolveContexts(refs []string) ([]models.Context, models.ExecutionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.Context, 0, len(refs))
	for _, ref := range refs {
		ctx, ok := h.contexts[ref]
		if !ok {
			return nil, models.Err(models.ErrorKindNotFound, fmt.Sprintf("context %q not found", ref))
		}
		out = append(out, *ctx)
	}
	return out, models.Ok("")
}

// MarkLaunched transitions a pending task to running. Launching a task not
// in pending status is a ValidationError, since a task can only be launched
// once.
func (h *Hub) MarkLaunched(id string) models.ExecutionResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.tasks[id]
	if !ok {
		return models.Err(models.ErrorKindNotFound, fmt.Sprintf("task %q not found", id))
	}
	if task.Status != models.TaskStatusPending {
		return models.Err(models.ErrorKindValidationError, fmt.Sprintf("task %q is not pending (status=%s)", id, task.Status))
	}

	now := time.Now()
	task.Status = models.TaskStatusRunning
	task.LaunchedAt = &now
	return models.Ok("launched")
}

// IngestReport applies a Subagent's Report to its task: stores each
// Context in report order (a duplicate id aborts only that context,
// recording a warning rather than failing the whole report), then sets the
// task's terminal status from report.FinalStatus.
func (h *Hub) IngestReport(report models.Report) models.ExecutionResult {
	h.mu.Lock()
	defer h.mu.Unlock()

	task, ok := h.tasks[report.TaskID]
	if !ok {
		return models.Err(models.ErrorKindNotFound, fmt.Sprintf("task %q not found", report.TaskID))
	}
	if task.ReadOnly() {
		return models.Err(models.ErrorKindValidationError, fmt.Sprintf("task %q already reached a terminal status", report.TaskID))
	}

	for _, rc := range report.Contexts {
		if rc.ID == "" {
			task.Warnings = append(task.Warnings, "report context skipped: empty id")
			continue
		}
		if _, exists := h.contexts[rc.ID]; exists {
			task.Warnings = append(task.Warnings, fmt.Sprintf("report context %q skipped: id already exists", rc.ID))
			continue
		}
		h.contexts[rc.ID] = &models.Context{
			ID:        rc.ID,
			Content:   rc.Content,
			CreatedBy: report.TaskID,
			CreatedAt: time.Now(),
		}
	}

	now := time.Now()
	task.CompletedAt = &now
	task.Result = &models.Report{
		TaskID:      report.TaskID,
		Contexts:    report.Contexts,
		Comments:    report.Comments,
		FinalStatus: report.FinalStatus,
	}

	switch report.FinalStatus {
	case models.FinalStatusCompleted:
		task.Status = models.TaskStatusCompleted
	case models.FinalStatusFailed:
		task.Status = models.TaskStatusFailed
		task.FailureReason = report.Comments
	case models.FinalStatusForced:
		task.Status = models.TaskStatusFailed
		task.FailureReason = "turn budget exhausted without a report"
	default:
		task.Status = models.TaskStatusFailed
		task.FailureReason = fmt.Sprintf("unknown final_status %q", report.FinalStatus)
	}

	return models.Ok("report ingested")
}

// TaskSnapshot is one row of Hub.Snapshot's task listing.
type TaskSnapshot struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	AgentType models.AgentType  `json:"agent_type"`
	Status    models.TaskStatus `json:"status"`
}

// ContextSnapshot is one row of Hub.Snapshot's context listing.
type ContextSnapshot struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Snapshot renders the Hub's current state for inclusion in the
// Orchestrator's next prompt: tasks in creation order, contexts sorted by
// id for stable output.
func (h *Hub) Snapshot() ([]TaskSnapshot, []ContextSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tasks := make([]TaskSnapshot, 0, len(h.order))
	for _, id := range h.order {
		t := h.tasks[id]
		tasks = append(tasks, TaskSnapshot{ID: t.ID, Title: t.Title, AgentType: t.AgentType, Status: t.Status})
	}

	ids := make([]string, 0, len(h.contexts))
	for id := range h.contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	contexts := make([]ContextSnapshot, 0, len(ids))
	for _, id := range ids {
		contexts = append(contexts, ContextSnapshot{ID: id, Content: h.contexts[id].Content})
	}

	return tasks, contexts
}
