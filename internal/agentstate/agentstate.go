// Package agentstate implements the Per-agent State component:
// an append-only scratchpad and a todo list, private to the
// owning agent and serialized back into its next prompt.
package agentstate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ShayCichocki/foreman/pkg/models"
)

// TodoItem is one entry in an agent's todo list.
type TodoItem struct {
	ID        string
	Text      string
	Completed bool
}

// State is the private scratchpad+todo store for one agent.
type State struct {
	mu         sync.Mutex
	scratchpad []string
	todos      []*TodoItem
	nextTodoID int
}

// New creates an empty per-agent State.
func New() *State {
	return &State{}
}

// AppendNote adds a scratchpad note.
func (s *State) AppendNote(note string) models.ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scratchpad = append(s.scratchpad, note)
	return models.Ok("note recorded")
}

// Scratchpad returns all notes in append order.
func (s *State) Scratchpad() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.scratchpad))
	copy(out, s.scratchpad)
	return out
}

// AddTodo appends a pending todo and returns its id.
func (s *State) AddTodo(text string) (string, models.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTodoID++
	id := fmt.Sprintf("todo-%d", s.nextTodoID)
	s.todos = append(s.todos, &TodoItem{ID: id, Text: text})
	return id, models.Ok(fmt.Sprintf("added %s", id))
}

// CompleteTodo marks id completed. Completing an already-completed todo is
// idempotent; an unknown id fails with UnknownTodo.
func (s *State) CompleteTodo(id string) models.ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.todos {
		if item.ID == id {
			item.Completed = true
			return models.Ok(fmt.Sprintf("completed %s", id))
		}
	}
	return models.Err(models.ErrorKindUnknownTodo, fmt.Sprintf("unknown todo: %s", id))
}

// DeleteTodo removes id. Deleting an unknown id fails with UnknownTodo;
// repeated deletion of the same unknown id yields the same error kind.
func (s *State) DeleteTodo(id string) models.ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.todos {
		if item.ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			return models.Ok(fmt.Sprintf("deleted %s", id))
		}
	}
	return models.Err(models.ErrorKindUnknownTodo, fmt.Sprintf("unknown todo: %s", id))
}

// ViewAll returns a copy of the current todo list.
func (s *State) ViewAll() []TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TodoItem, len(s.todos))
	for i, item := range s.todos {
		out[i] = *item
	}
	return out
}

// Render formats the scratchpad and todo list for injection into the
// agent's next prompt.
func (s *State) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if len(s.scratchpad) > 0 {
		b.WriteString("## Scratchpad\n")
		for _, note := range s.scratchpad {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}
	if len(s.todos) > 0 {
		b.WriteString("## Todos\n")
		for _, item := range s.todos {
			mark := " "
			if item.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", mark, item.ID, item.Text)
		}
	}
	return b.String()
}
