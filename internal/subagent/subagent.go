// Package subagent implements the Subagent Runtime:
// the bounded turn loop that drives one short-lived Explorer or Coder
// invocation from launch to a Report, parsing the model's raw text for
// actions each turn and dispatching them against the agent's own sandbox,
// file, search, and state components.
package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ShayCichocki/foreman/internal/actionparse"
	"github.com/ShayCichocki/foreman/internal/agentstate"
	"github.com/ShayCichocki/foreman/internal/dispatch"
	"github.com/ShayCichocki/foreman/internal/history"
	"github.com/ShayCichocki/foreman/internal/llm"
	"github.com/ShayCichocki/foreman/pkg/models"
)

// Launch is everything the Orchestrator Runtime resolves before starting a
// Subagent invocation: the task itself, its context refs already expanded
// to content, and its bootstrap files already read from the sandbox.
type Launch struct {
	AgentID   string
	Task      models.Task
	Contexts  []models.Context
	Bootstrap []BootstrapFile
}

// BootstrapFile is one sandbox file read at launch time and inlined into
// the Subagent's first prompt, per Task.ContextBootstrap.
type BootstrapFile struct {
	Path    string
	Reason  string
	Content string
	Err     string // set instead of Content when the read failed
}

// Runtime drives one Subagent invocation to completion.
type Runtime struct {
	LLM        llm.Caller
	Dispatcher *dispatch.Dispatcher
	State      *agentstate.State
	History    *history.History
	Logger     *history.TurnLogger
	Caps       models.Capabilities
}

// New creates a Subagent Runtime for one invocation.
func New(client llm.Caller, dispatcher *dispatch.Dispatcher, state *agentstate.State, hist *history.History, logger *history.TurnLogger, caps models.Capabilities) *Runtime {
	return &Runtime{LLM: client, Dispatcher: dispatcher, State: state, History: hist, Logger: logger, Caps: caps}
}

// Run executes the bounded turn loop and returns the Subagent's Report. A
// Report is always returned: either the one the model emitted, or one
// synthesized by the runtime after Caps.MaxTurns turns without one, or
// after an LLM call fails on both its attempt and its single retry.
func (r *Runtime) Run(ctx context.Context, launch Launch) (models.Report, error) {
	system := r.systemPrompt(launch.Task.AgentType)

	for turnNum := 1; turnNum <= r.Caps.MaxTurns; turnNum++ {
		prompt := r.renderPrompt(launch, turnNum)

		messages := []llm.Message{{Role: llm.RoleUser, Text: prompt}}
		resp, err := r.LLM.Call(ctx, system, messages)
		if err != nil {
			resp, err = r.LLM.Call(ctx, system, messages)
		}
		if err != nil {
			return r.forcedReport(launch.Task.ID, fmt.Sprintf("LLM call failed twice: %v", err)), nil
		}

		items := actionparse.Parse(resp.Text)
		actions, results, report := r.executeItems(ctx, items)

		turn := models.Turn{
			PromptRendered: prompt,
			RawResponse:    resp.Text,
			Actions:        actions,
			Results:        results,
			TokensIn:       resp.TokensIn,
			TokensOut:      resp.TokensOut,
		}
		turn.AgentID = launch.AgentID
		r.History.Append(turn)
		if r.Logger != nil {
			_ = r.Logger.LogTurn(turn)
		}

		if report != nil {
			return models.Report{
				TaskID:      launch.Task.ID,
				Contexts:    report.Contexts,
				Comments:    report.Comments,
				FinalStatus: report.FinalStatus,
			}, nil
		}
	}

	return r.forcedReport(launch.Task.ID, "turn budget exhausted without a report"), nil
}

// maxParallelBash bounds how many consecutive bash actions from one
// response may run concurrently. Results are stitched back in input order
// so the rendered transcript stays deterministic.
const maxParallelBash = 3

// executeItems runs every parsed slot in document order. A run of up to
// maxParallelBash consecutive bash actions executes concurrently; all other
// actions are serialized. A report action is collected, not dispatched.
func (r *Runtime) executeItems(ctx context.Context, items []actionparse.ParsedItem) ([]models.Action, []models.ExecutionResult, *models.ReportAction) {
	actions := make([]models.Action, 0, len(items))
	results := make([]models.ExecutionResult, 0, len(items))
	var report *models.ReportAction

	for i := 0; i < len(items); {
		item := items[i]
		if item.Error != nil {
			results = append(results, *item.Error)
			i++
			continue
		}

		if item.Action.Tag == models.TagReport {
			actions = append(actions, *item.Action)
			report = item.Action.Report
			results = append(results, models.Ok("report recorded"))
			i++
			continue
		}

		if item.Action.Tag == models.TagBash {
			group := []models.Action{*item.Action}
			j := i + 1
			for j < len(items) && len(group) < maxParallelBash &&
				items[j].Error == nil && items[j].Action.Tag == models.TagBash {
				group = append(group, *items[j].Action)
				j++
			}
			if len(group) > 1 {
				actions = append(actions, group...)
				results = append(results, r.execParallelBash(ctx, group)...)
				i = j
				continue
			}
		}

		actions = append(actions, *item.Action)
		results = append(results, r.Dispatcher.Dispatch(ctx, *item.Action))
		i++
	}

	return actions, results, report
}

// execParallelBash dispatches each bash action on its own goroutine and
// returns the results indexed by input position.
func (r *Runtime) execParallelBash(ctx context.Context, group []models.Action) []models.ExecutionResult {
	results := make([]models.ExecutionResult, len(group))
	var wg sync.WaitGroup
	for i, a := range group {
		wg.Add(1)
		go func(i int, a models.Action) {
			defer wg.Done()
			results[i] = r.Dispatcher.Dispatch(ctx, a)
		}(i, a)
	}
	wg.Wait()
	return results
}

// forcedReport synthesizes a Report from whatever the Subagent accumulated
// in its scratchpad when it never submitted one itself, so every launch
// still yields exactly one report.
func (r *Runtime) forcedReport(taskID, comments string) models.Report {
	notes := r.State.Scratchpad()
	var contexts []models.ReportContext
	if len(notes) > 0 {
		contexts = []models.ReportContext{{
			ID:      fmt.Sprintf("%s_forced_summary", taskID),
			Content: strings.Join(notes, "\n"),
		}}
	}
	return models.Report{
		TaskID:      taskID,
		Contexts:    contexts,
		Comments:    comments,
		FinalStatus: models.FinalStatusForced,
	}
}

func (r *Runtime) renderPrompt(launch Launch, turnNum int) string {
	var b strings.Builder

	if turnNum == 1 {
		fmt.Fprintf(&b, "## Task\n%s\n\n", launch.Task.Description)
		if len(launch.Contexts) > 0 {
			b.WriteString("## Context\n")
			for _, c := range launch.Contexts {
				fmt.Fprintf(&b, "### %s\n%s\n\n", c.ID, c.Content)
			}
		}
		if len(launch.Bootstrap) > 0 {
			b.WriteString("## Bootstrap files\n")
			for _, f := range launch.Bootstrap {
				if f.Err != "" {
					fmt.Fprintf(&b, "### %s (%s)\ncould not read: %s\n\n", f.Path, f.Reason, f.Err)
					continue
				}
				fmt.Fprintf(&b, "### %s (%s)\n%s\n\n", f.Path, f.Reason, f.Content)
			}
		}
	}

	if state := r.State.Render(); state != "" {
		fmt.Fprintf(&b, "## Your state\n%s\n\n", state)
	}

	if transcript := r.History.Render(); transcript != "" {
		fmt.Fprintf(&b, "## Transcript so far\n%s\n\n", transcript)
	}

	if turnNum == r.Caps.MaxTurns-1 {
		b.WriteString("You have one turn remaining after this one. You must submit a <report> on your next turn.\n\n")
	} else if turnNum == r.Caps.MaxTurns {
		b.WriteString("This is your final turn. Submit a <report> now.\n\n")
	}

	return b.String()
}

func (r *Runtime) systemPrompt(agentType models.AgentType) string {
	var b strings.Builder
	b.WriteString("You are a subagent working on one delegated task inside a sandboxed container. ")
	b.WriteString("Respond with reasoning followed by one or more XML-tagged actions; they execute in order, and up to three consecutive bash actions run in parallel. ")
	b.WriteString("Finish by submitting a <report> action summarizing what you found or changed.\n\n")

	if r.Caps.CanWrite {
		b.WriteString("You may read and write files, run shell commands, and search the codebase.\n")
	} else {
		b.WriteString("You are read-only: you may search, read files, and run shell commands, but you may not write or edit files. ")
		b.WriteString("Use write_temp_script only for throwaway scripts under the designated temp directory.\n")
	}

	return b.String()
}
