// Package task wires every component into the perform-task entry point
// the benchmark harness invokes once per top-level task: it builds the
// hub, the gateway client, and the subagent launcher, runs the
// orchestrator loop to completion, and returns the final message together
// with run statistics.
package task

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ShayCichocki/foreman/internal/config"
	"github.com/ShayCichocki/foreman/internal/exec"
	"github.com/ShayCichocki/foreman/internal/history"
	"github.com/ShayCichocki/foreman/internal/hub"
	"github.com/ShayCichocki/foreman/internal/llm"
	"github.com/ShayCichocki/foreman/internal/orchestrator"
	"github.com/ShayCichocki/foreman/internal/sandbox"
	"github.com/ShayCichocki/foreman/pkg/models"
)

// SandboxHandle identifies the task container the harness provisioned:
// the directory agents operate in and the runner that executes shell
// commands inside it.
type SandboxHandle struct {
	WorkDir string
	Runner  exec.CommandRunner
	// LogDir receives per-agent turn logs and the orchestrator debug
	// stream; empty disables persistence.
	LogDir string
}

// Stats summarizes one top-level run.
type Stats struct {
	OrchestratorTurns int     `json:"orchestrator_turns"`
	SubagentTurns     int     `json:"subagent_turns"`
	ExplorerLaunches  int     `json:"explorer_launches"`
	CoderLaunches     int     `json:"coder_launches"`
	TasksCompleted    int     `json:"tasks_completed"`
	TasksFailed       int     `json:"tasks_failed"`
	TokensIn          int64   `json:"tokens_in"`
	TokensOut         int64   `json:"tokens_out"`
	CostUSD           float64 `json:"cost_usd"`
	// UnverifiedFinish flags a run that finished without a completed
	// explorer task after its most recent completed coder task. The finish
	// is still accepted; the flag only marks the trajectory.
	UnverifiedFinish bool `json:"unverified_finish"`
}

// Result is what PerformTask hands back to the harness.
type Result struct {
	FinalMessage string `json:"final_message"`
	Stats        Stats  `json:"stats"`
}

// PerformTask runs one top-level instruction against env to completion.
// The returned Result is valid even when err is non-nil: FinalMessage then
// surfaces the proximate cause and the harness treats the trial as
// non-successful.
func PerformTask(ctx context.Context, instruction string, env SandboxHandle) (Result, error) {
	cfg, err := config.Load()
	if err != nil {
		return Result{FinalMessage: fmt.Sprintf("aborted: %v", err)}, fmt.Errorf("task: load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Result{FinalMessage: fmt.Sprintf("aborted: %v", err)}, fmt.Errorf("task: %w", err)
	}

	client, err := llm.New(llm.Config{
		Model:       cfg.LiteLLMModel,
		APIKey:      cfg.LiteLLMAPIKey,
		BaseURL:     cfg.LiteLLMAPIBase,
		Temperature: cfg.LiteLLMTemperature,
	})
	if err != nil {
		return Result{FinalMessage: fmt.Sprintf("aborted: %v", err)}, fmt.Errorf("task: %w", err)
	}

	return run(ctx, instruction, env, client, client.Tracker(), cfg)
}

// run is PerformTask with its dependencies injected, so tests can drive
// the full control flow with a scripted model.
func run(ctx context.Context, instruction string, env SandboxHandle, caller llm.Caller, tracker *llm.TokenTracker, cfg *config.Config) (Result, error) {
	h := hub.New()
	turnLogger := history.NewTurnLogger(env.LogDir)
	defer turnLogger.Close()

	debugPath := ""
	if env.LogDir != "" {
		debugPath = filepath.Join(env.LogDir, "orchestrator.log")
	}
	debug, err := orchestrator.NewDebugLogger(debugPath)
	if err != nil {
		return Result{FinalMessage: fmt.Sprintf("aborted: %v", err)}, fmt.Errorf("task: open debug log: %w", err)
	}
	defer debug.Close()

	executor := sandbox.New(env.Runner, env.WorkDir)
	launcher := newSubagentLauncher(caller, executor, turnLogger, cfg, env.WorkDir)

	orchHistory := history.New("orchestrator")
	rt := orchestrator.New(caller, h, launcher, orchHistory, turnLogger, debug, cfg.MaxOrchTurns)

	finalMessage, runErr := rt.Run(ctx, instruction)

	stats := Stats{
		OrchestratorTurns: orchHistory.Len(),
		SubagentTurns:     launcher.subagentTurns(),
		ExplorerLaunches:  launcher.launches(models.AgentTypeExplorer),
		CoderLaunches:     launcher.launches(models.AgentTypeCoder),
	}
	tasks := h.Tasks()
	for _, t := range tasks {
		switch t.Status {
		case models.TaskStatusCompleted:
			stats.TasksCompleted++
		case models.TaskStatusFailed:
			stats.TasksFailed++
		}
	}
	stats.UnverifiedFinish = unverifiedFinish(tasks)
	if tracker != nil {
		stats.TokensIn, stats.TokensOut = tracker.Total()
		stats.CostUSD = tracker.Cost()
	}

	return Result{FinalMessage: finalMessage, Stats: stats}, runErr
}

// unverifiedFinish reports whether the run's most recent completed coder
// task has no completed explorer task after it. A run with no completed
// coder work has nothing to verify.
func unverifiedFinish(tasks []models.Task) bool {
	var lastCoder *models.Task
	for i := range tasks {
		t := &tasks[i]
		if t.AgentType != models.AgentTypeCoder || t.Status != models.TaskStatusCompleted || t.CompletedAt == nil {
			continue
		}
		if lastCoder == nil || t.CompletedAt.After(*lastCoder.CompletedAt) {
			lastCoder = t
		}
	}
	if lastCoder == nil {
		return false
	}
	for i := range tasks {
		t := &tasks[i]
		if t.AgentType == models.AgentTypeExplorer && t.Status == models.TaskStatusCompleted &&
			t.CompletedAt != nil && t.CompletedAt.After(*lastCoder.CompletedAt) {
			return false
		}
	}
	return true
}
