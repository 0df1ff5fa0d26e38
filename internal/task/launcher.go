package task

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/foreman/internal/agentstate"
	"github.com/ShayCichocki/foreman/internal/config"
	"github.com/ShayCichocki/foreman/internal/dispatch"
	"github.com/ShayCichocki/foreman/internal/fileops"
	"github.com/ShayCichocki/foreman/internal/history"
	"github.com/ShayCichocki/foreman/internal/llm"
	"github.com/ShayCichocki/foreman/internal/sandbox"
	"github.com/ShayCichocki/foreman/internal/search"
	"github.com/ShayCichocki/foreman/internal/subagent"
	"github.com/ShayCichocki/foreman/pkg/models"
)

// subagentLauncher builds a fresh subagent invocation per launch: its own
// dispatcher, per-agent state, and history, all sharing the one sandbox
// executor. It satisfies orchestrator.Launcher.
type subagentLauncher struct {
	caller   llm.Caller
	executor *sandbox.Executor
	logger   *history.TurnLogger
	cfg      *config.Config
	workDir  string

	mu         sync.Mutex
	launchedBy map[models.AgentType]int
	turns      int
}

func newSubagentLauncher(caller llm.Caller, executor *sandbox.Executor, logger *history.TurnLogger, cfg *config.Config, workDir string) *subagentLauncher {
	return &subagentLauncher{
		caller:     caller,
		executor:   executor,
		logger:     logger,
		cfg:        cfg,
		workDir:    workDir,
		launchedBy: make(map[models.AgentType]int),
	}
}

// Launch runs one subagent invocation to completion and returns its
// report.
func (l *subagentLauncher) Launch(ctx context.Context, task models.Task, contexts []models.Context) (models.Report, error) {
	caps := task.AgentType.Capabilities()
	switch task.AgentType {
	case models.AgentTypeExplorer:
		if l.cfg.MaxExplorerTurns > 0 {
			caps.MaxTurns = l.cfg.MaxExplorerTurns
		}
	case models.AgentTypeCoder:
		if l.cfg.MaxCoderTurns > 0 {
			caps.MaxTurns = l.cfg.MaxCoderTurns
		}
	}

	agentID := fmt.Sprintf("%s_%s", task.AgentType, uuid.NewString()[:8])
	state := agentstate.New()
	dispatcher := dispatch.New(l.executor, fileops.New(), search.New(l.workDir), state, caps)
	hist := history.New(agentID)
	rt := subagent.New(l.caller, dispatcher, state, hist, l.logger, caps)

	report, err := rt.Run(ctx, subagent.Launch{
		AgentID:   agentID,
		Task:      task,
		Contexts:  contexts,
		Bootstrap: readBootstrap(task.ContextBootstrap),
	})

	l.mu.Lock()
	l.launchedBy[task.AgentType]++
	l.turns += hist.Len()
	l.mu.Unlock()

	return report, err
}

func (l *subagentLauncher) launches(agentType models.AgentType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launchedBy[agentType]
}

func (l *subagentLauncher) subagentTurns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.turns
}

// readBootstrap reads each bootstrap path from the sandbox filesystem. An
// unreadable path degrades to a note inlined into the launch prompt, never
// a launch failure.
func readBootstrap(entries []models.ContextBootstrap) []subagent.BootstrapFile {
	files := make([]subagent.BootstrapFile, 0, len(entries))
	for _, e := range entries {
		f := subagent.BootstrapFile{Path: e.Path, Reason: e.Reason}
		data, err := os.ReadFile(e.Path)
		if err != nil {
			f.Err = err.Error()
		} else {
			f.Content = string(data)
		}
		files = append(files, f)
	}
	return files
}
