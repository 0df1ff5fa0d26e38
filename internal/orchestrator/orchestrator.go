// Package orchestrator implements the Orchestrator Runtime: the
// long-lived top-level loop that plans work by creating and
// launching Tasks against the Hub, never touching the sandbox filesystem
// directly. Every filesystem or shell action it emits is rejected before
// it reaches a Subagent.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/foreman/internal/actionparse"
	"github.com/ShayCichocki/foreman/internal/history"
	"github.com/ShayCichocki/foreman/internal/hub"
	"github.com/ShayCichocki/foreman/internal/llm"
	"github.com/ShayCichocki/foreman/pkg/models"
)

// Launcher runs one Subagent invocation to completion and returns its
// Report. The concrete implementation (wired in internal/task) owns
// constructing a fresh sandbox, dispatcher, and per-agent state for each
// launch; the Orchestrator Runtime only needs the Report it produces.
type Launcher interface {
	Launch(ctx context.Context, task models.Task, contexts []models.Context) (models.Report, error)
}

// Runtime drives the Orchestrator's top-level turn loop.
type Runtime struct {
	LLM      llm.Caller
	Hub      *hub.Hub
	Launcher Launcher
	History  *history.History
	Logger   *history.TurnLogger
	Debug    *DebugLogger
	MaxTurns int
}

// New creates an Orchestrator Runtime.
func New(client llm.Caller, h *hub.Hub, launcher Launcher, hist *history.History, turnLogger *history.TurnLogger, debug *DebugLogger, maxTurns int) *Runtime {
	if debug == nil {
		debug = NopLogger()
	}
	return &Runtime{LLM: client, Hub: h, Launcher: launcher, History: hist, Logger: turnLogger, Debug: debug, MaxTurns: maxTurns}
}

// Run drives the loop until a finish action is emitted or the turn budget
// is exhausted, returning the final message presented to the caller.
func (rt *Runtime) Run(ctx context.Context, instruction string) (string, error) {
	system := systemPrompt()

	for turnNum := 1; turnNum <= rt.MaxTurns; turnNum++ {
		prompt := rt.renderPrompt(instruction, turnNum)

		resp, err := rt.LLM.Call(ctx, system, []llm.Message{{Role: llm.RoleUser, Text: prompt}})
		if err != nil {
			rt.Debug.Log("llm call failed on turn %d: %v; retrying turn once", turnNum, err)
			resp, err = rt.LLM.Call(ctx, system, []llm.Message{{Role: llm.RoleUser, Text: prompt}})
		}
		if err != nil {
			rt.Debug.Log("llm call failed again on turn %d: %v", turnNum, err)
			return fmt.Sprintf("aborted: llm failure: %v", err), fmt.Errorf("orchestrator: llm call failed on turn %d: %w", turnNum, err)
		}

		items := actionparse.Parse(resp.Text)
		actions := make([]models.Action, 0, len(items))
		results := make([]models.ExecutionResult, 0, len(items))
		var finishMessage string
		finished := false

		for _, item := range items {
			if item.Error != nil {
				results = append(results, *item.Error)
				continue
			}

			actions = append(actions, *item.Action)

			if item.Action.Tag == models.TagFinish {
				finished = true
				finishMessage = item.Action.Finish.Message
				results = append(results, models.Ok("finishing"))
				continue
			}

			results = append(results, rt.dispatch(ctx, *item.Action))
		}

		turn := models.Turn{
			AgentID:        "orchestrator",
			PromptRendered: prompt,
			RawResponse:    resp.Text,
			Actions:        actions,
			Results:        results,
			TokensIn:       resp.TokensIn,
			TokensOut:      resp.TokensOut,
		}
		rt.History.Append(turn)
		if rt.Logger != nil {
			_ = rt.Logger.LogTurn(turn)
		}

		if finished {
			rt.Debug.Log("finished on turn %d: %s", turnNum, finishMessage)
			return finishMessage, nil
		}
	}

	rt.Debug.Log("turn budget (%d) exhausted without a finish action", rt.MaxTurns)
	return "budget exhausted", nil
}

// dispatch routes one Orchestrator action against the Hub. Actions
// reserved for Subagents are rejected here, mirroring the Dispatcher's
// symmetric check on the other side of the capability split.
func (rt *Runtime) dispatch(ctx context.Context, action models.Action) models.ExecutionResult {
	if action.Tag.IsSubagentOnly() {
		return models.Err(models.ErrorKindCapabilityViolation,
			fmt.Sprintf("%s may only be emitted by a subagent", action.Tag))
	}

	switch action.Tag {
	case models.TagReasoning:
		return models.Ok("")
	case models.TagTaskCreate:
		return rt.dispatchTaskCreate(action.TaskCreate)
	case models.TagAddContext:
		return rt.Hub.AddContext(action.AddContext.ID, action.AddContext.Content)
	case models.TagLaunchSubagent:
		return rt.dispatchLaunchSubagent(ctx, action.LaunchSubagent)
	default:
		return models.Err(models.ErrorKindFatal, fmt.Sprintf("no dispatch route for tag %q", action.Tag))
	}
}

func (rt *Runtime) dispatchTaskCreate(a *models.TaskCreateAction) models.ExecutionResult {
	id, res := rt.Hub.CreateTask(models.TaskSpec{
		AgentType:        a.AgentType,
		Title:            a.Title,
		Description:      a.Description,
		ContextRefs:      a.ContextRefs,
		ContextBootstrap: a.ContextBootstrap,
	})
	if res.ErrorKind != "" {
		return res
	}
	res.Payload = id
	return res
}

func (rt *Runtime) dispatchLaunchSubagent(ctx context.Context, a *models.LaunchSubagentAction) models.ExecutionResult {
	task, ok := rt.Hub.Task(a.TaskID)
	if !ok {
		return models.Err(models.ErrorKindNotFound, fmt.Sprintf("task %q not found", a.TaskID))
	}

	contexts, res := rt.Hub.ResolveContexts(task.ContextRefs)
	if res.ErrorKind != "" {
		return res
	}

	if res := rt.Hub.MarkLaunched(a.TaskID); res.ErrorKind != "" {
		return res
	}

	rt.Debug.Log("launching task %s (%s)", task.ID, task.AgentType)
	report, err := rt.Launcher.Launch(ctx, *task, contexts)
	if err != nil {
		rt.Debug.Log("task %s failed to launch: %v", task.ID, err)
		report = models.Report{TaskID: task.ID, FinalStatus: models.FinalStatusFailed, Comments: err.Error()}
	}

	if res := rt.Hub.IngestReport(report); res.ErrorKind != "" {
		return res
	}

	return models.Ok(fmt.Sprintf("task %s finished with status %s", task.ID, report.FinalStatus))
}

// renderPrompt rebuilds the full view every turn: the top-level
// instruction verbatim, then the hub snapshot. Contexts render with their
// content, not just their ids — the whole point of the store is that the
// orchestrator reasons over what subagents actually reported.
func (rt *Runtime) renderPrompt(instruction string, turnNum int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Instruction\n%s\n\n", instruction)

	tasks, contexts := rt.Hub.Snapshot()
	if len(tasks) > 0 {
		b.WriteString("## Tasks\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- %s [%s] %s (%s)\n", t.ID, t.Status, t.Title, t.AgentType)
		}
		b.WriteString("\n")
	}
	if len(contexts) > 0 {
		b.WriteString("## Context store\n")
		for _, c := range contexts {
			fmt.Fprintf(&b, "### %s\n%s\n\n", c.ID, c.Content)
		}
	}

	if transcript := rt.History.Render(); transcript != "" {
		fmt.Fprintf(&b, "## Transcript so far\n%s\n\n", transcript)
	}

	if turnNum == rt.MaxTurns-1 {
		b.WriteString("You have one turn remaining after this one. Wrap up with a <finish> action soon.\n\n")
	} else if turnNum == rt.MaxTurns {
		b.WriteString("This is your final turn. Submit <finish> now.\n\n")
	}

	return b.String()
}

func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are the orchestrator for a multi-agent task. You never touch the filesystem or shell directly; ")
	b.WriteString("you plan work by creating tasks and launching subagents to carry them out, then synthesize their reports.\n\n")
	b.WriteString("Respond with reasoning followed by one or more XML-tagged actions, executed in order: ")
	b.WriteString("task_create, launch_subagent, add_context, or finish.\n")
	return b.String()
}
