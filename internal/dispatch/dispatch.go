// Package dispatch implements the Action Dispatcher: it
// routes one already-validated Action to the component that executes it,
// enforcing the acting agent's Capabilities before anything reaches disk or
// the sandbox shell.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/foreman/internal/agentstate"
	"github.com/ShayCichocki/foreman/internal/fileops"
	"github.com/ShayCichocki/foreman/internal/sandbox"
	"github.com/ShayCichocki/foreman/internal/search"
	"github.com/ShayCichocki/foreman/pkg/models"
)

// Dispatcher owns the per-agent components an action may target. It holds
// no orchestrator/hub state; task_create, launch_subagent, add_context, and
// finish are routed by the caller directly against the Hub, since those
// actions have no Capabilities gate and no per-agent component to reach.
type Dispatcher struct {
	Sandbox *sandbox.Executor
	Files   *fileops.Manager
	Search  *search.Manager
	State   *agentstate.State
	Caps    models.Capabilities
}

// New creates a Dispatcher scoped to one Subagent invocation.
func New(sb *sandbox.Executor, files *fileops.Manager, srch *search.Manager, state *agentstate.State, caps models.Capabilities) *Dispatcher {
	return &Dispatcher{Sandbox: sb, Files: files, Search: srch, State: state, Caps: caps}
}

// Dispatch executes a single Action and returns its uniform result. Actions
// reserved for the Orchestrator (task_create, launch_subagent, add_context,
// finish) are rejected here with CapabilityViolation; the Orchestrator
// Runtime handles those directly against the Hub instead of going through a
// Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.Action) models.ExecutionResult {
	if action.Tag.IsOrchestratorOnly() {
		return models.Err(models.ErrorKindCapabilityViolation,
			fmt.Sprintf("%s may only be emitted by the orchestrator", action.Tag))
	}

	switch action.Tag {
	case models.TagReasoning:
		return models.Ok("")
	case models.TagFile:
		return d.dispatchFile(action.File)
	case models.TagSearch:
		return d.dispatchSearch(action.Search)
	case models.TagBash:
		return d.dispatchBash(ctx, action.Bash)
	case models.TagTodo:
		return d.dispatchTodo(action.Todo)
	case models.TagScratchpad:
		return d.State.AppendNote(action.Scratchpad.Note)
	case models.TagReport:
		// Reports are collected by the Subagent Runtime's turn loop, not
		// executed here; reaching Dispatch means the runtime forwarded it
		// by mistake.
		return models.Ok("report recorded")
	case models.TagWriteTempScript:
		return d.dispatchWriteTempScript(action.WriteTempScript)
	default:
		return models.Err(models.ErrorKindFatal, fmt.Sprintf("no dispatch route for tag %q", action.Tag))
	}
}

func (d *Dispatcher) dispatchFile(a *models.FileAction) models.ExecutionResult {
	switch a.Op {
	case models.FileOpRead, models.FileOpMetadata:
		// read-only, permitted regardless of Capabilities.
	case models.FileOpWrite, models.FileOpEdit, models.FileOpMultiEdit:
		if !d.Caps.CanWrite {
			return models.Err(models.ErrorKindCapabilityViolation,
				fmt.Sprintf("this agent cannot perform file.%s", a.Op))
		}
	}

	switch a.Op {
	case models.FileOpRead:
		return d.Files.Read(a.Path, a.Offset, a.Limit)
	case models.FileOpWrite:
		return d.Files.Write(a.Path, a.Content)
	case models.FileOpEdit:
		return d.Files.Edit(a.Path, a.OldString, a.NewString, a.ReplaceAll)
	case models.FileOpMultiEdit:
		return d.Files.MultiEdit(a.Path, a.Edits)
	case models.FileOpMetadata:
		stats, res := d.Files.Metadata(a.Paths)
		if res.ErrorKind != "" {
			return res
		}
		payload, err := json.Marshal(stats)
		if err != nil {
			return models.Err(models.ErrorKindFatal, err.Error())
		}
		return models.Ok(string(payload))
	default:
		return models.Err(models.ErrorKindValidationError, fmt.Sprintf("unknown file op %q", a.Op))
	}
}

func (d *Dispatcher) dispatchSearch(a *models.SearchAction) models.ExecutionResult {
	switch a.Op {
	case models.SearchOpGrep:
		rows, res := d.Search.Grep(a.Pattern, a.Path, a.Include)
		if res.ErrorKind != "" {
			return res
		}
		payload, err := json.Marshal(rows)
		if err != nil {
			return models.Err(models.ErrorKindFatal, err.Error())
		}
		res.Payload = string(payload)
		return res
	case models.SearchOpGlob:
		matches, res := d.Search.Glob(a.Pattern, a.Path)
		if res.ErrorKind != "" {
			return res
		}
		payload, err := json.Marshal(matches)
		if err != nil {
			return models.Err(models.ErrorKindFatal, err.Error())
		}
		res.Payload = string(payload)
		return res
	default:
		return models.Err(models.ErrorKindValidationError, fmt.Sprintf("unknown search op %q", a.Op))
	}
}

func (d *Dispatcher) dispatchBash(ctx context.Context, a *models.BashAction) models.ExecutionResult {
	res, err := d.Sandbox.Exec(ctx, a.Command, a.Block, a.TimeoutSecs, a.Cwd)
	if err != nil {
		return models.Err(models.ErrorKindTimeout, err.Error())
	}
	if !a.Block {
		return models.Ok(fmt.Sprintf("handle=%s", res.Handle))
	}

	payload, err := json.Marshal(struct {
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exit_code"`
	}{res.Stdout, res.Stderr, res.ExitCode})
	if err != nil {
		return models.Err(models.ErrorKindFatal, err.Error())
	}

	if res.TimedOut {
		return models.Err(models.ErrorKindTimeout, fmt.Sprintf("command timed out: %s", a.Command))
	}
	if res.ExitCode != 0 {
		result := models.Err(models.ErrorKindNonZeroExit, string(payload))
		result.Truncated = res.Truncated
		return result
	}
	return models.ExecutionResult{OK: true, Payload: string(payload), Truncated: res.Truncated}
}

func (d *Dispatcher) dispatchTodo(a *models.TodoAction) models.ExecutionResult {
	switch a.Op {
	case models.TodoOpAdd:
		id, res := d.State.AddTodo(a.Text)
		if res.ErrorKind != "" {
			return res
		}
		res.Payload = id
		return res
	case models.TodoOpComplete:
		return d.State.CompleteTodo(a.ID)
	case models.TodoOpDelete:
		return d.State.DeleteTodo(a.ID)
	case models.TodoOpViewAll:
		payload, err := json.Marshal(d.State.ViewAll())
		if err != nil {
			return models.Err(models.ErrorKindFatal, err.Error())
		}
		return models.Ok(string(payload))
	default:
		return models.Err(models.ErrorKindValidationError, fmt.Sprintf("unknown todo op %q", a.Op))
	}
}

func (d *Dispatcher) dispatchWriteTempScript(a *models.WriteTempScriptAction) models.ExecutionResult {
	if !d.Caps.AllowsTempScript {
		return models.Err(models.ErrorKindCapabilityViolation, "this agent cannot write temp scripts")
	}

	tempRoot := d.Caps.TempRoot
	if tempRoot == "" {
		tempRoot = "/tmp"
	}
	if !underRoot(tempRoot, a.Path) {
		return models.Err(models.ErrorKindCapabilityViolation,
			fmt.Sprintf("write_temp_script.path must be under %s, got %q", tempRoot, a.Path))
	}

	return d.Files.Write(a.Path, a.Content)
}

func underRoot(root, path string) bool {
	if len(path) < len(root) {
		return false
	}
	if path[:len(root)] != root {
		return false
	}
	return len(path) == len(root) || path[len(root)] == '/'
}
