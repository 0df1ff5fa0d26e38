package subagent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/foreman/internal/agentstate"
	"github.com/ShayCichocki/foreman/internal/dispatch"
	"github.com/ShayCichocki/foreman/internal/exec"
	"github.com/ShayCichocki/foreman/internal/fileops"
	"github.com/ShayCichocki/foreman/internal/history"
	"github.com/ShayCichocki/foreman/internal/llm"
	"github.com/ShayCichocki/foreman/internal/sandbox"
	"github.com/ShayCichocki/foreman/internal/search"
	"github.com/ShayCichocki/foreman/pkg/models"
)

type scriptedCaller struct {
	responses []string
	calls     int
}

func (c *scriptedCaller) Call(ctx context.Context, system string, messages []llm.Message) (llm.Response, error) {
	resp := c.responses[c.calls]
	c.calls++
	return llm.Response{Text: resp, TokensIn: 10, TokensOut: 10}, nil
}

type fakeRunner struct{}

func (fakeRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (exec.Result, error) {
	return exec.Result{Stdout: "ok", ExitCode: 0, Duration: time.Millisecond}, nil
}

func newRuntime(t *testing.T, caps models.Capabilities, responses []string) (*Runtime, *scriptedCaller) {
	t.Helper()
	dir := t.TempDir()
	sb := sandbox.New(fakeRunner{}, dir)
	d := dispatch.New(sb, fileops.New(), search.New(dir), agentstate.New(), caps)
	caller := &scriptedCaller{responses: responses}
	return New(caller, d, agentstate.New(), history.New("agent-1"), history.NewTurnLogger(""), caps), caller
}

func TestRuntime_Run_StopsOnReport(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.MaxTurns = 5
	rt, caller := newRuntime(t, caps, []string{
		`<reasoning>text: "looking around"</reasoning>`,
		`<report>
final_status: completed
comments: "done looking"
</report>`,
	})

	task := models.Task{ID: "task_1", AgentType: models.AgentTypeExplorer, Description: "look around"}
	report, err := rt.Run(context.Background(), Launch{AgentID: "agent-1", Task: task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FinalStatus != models.FinalStatusCompleted {
		t.Errorf("final status = %v, want completed", report.FinalStatus)
	}
	if caller.calls != 2 {
		t.Errorf("LLM calls = %d, want 2", caller.calls)
	}
}

func TestRuntime_Run_ForcesReportOnTurnExhaustion(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.MaxTurns = 2
	rt, _ := newRuntime(t, caps, []string{
		`<scratchpad>note: "nothing yet"</scratchpad>`,
		`<scratchpad>note: "still nothing"</scratchpad>`,
	})

	task := models.Task{ID: "task_1", AgentType: models.AgentTypeExplorer, Description: "look around"}
	report, err := rt.Run(context.Background(), Launch{AgentID: "agent-1", Task: task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FinalStatus != models.FinalStatusForced {
		t.Errorf("final status = %v, want forced", report.FinalStatus)
	}
}

type echoBackRunner struct{}

func (echoBackRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (exec.Result, error) {
	return exec.Result{Stdout: command, ExitCode: 0, Duration: time.Millisecond}, nil
}

func TestRuntime_Run_ConsecutiveBashResultsStitchedInOrder(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.MaxTurns = 3

	dir := t.TempDir()
	sb := sandbox.New(echoBackRunner{}, dir)
	d := dispatch.New(sb, fileops.New(), search.New(dir), agentstate.New(), caps)
	caller := &scriptedCaller{responses: []string{
		`<bash>
command: "cmd-one"
</bash>
<bash>
command: "cmd-two"
</bash>
<bash>
command: "cmd-three"
</bash>`,
		`<report>
final_status: completed
comments: "ran all three"
</report>`,
	}}
	hist := history.New("agent-1")
	rt := New(caller, d, agentstate.New(), hist, history.NewTurnLogger(""), caps)

	task := models.Task{ID: "task_1", AgentType: models.AgentTypeExplorer, Description: "run commands"}
	if _, err := rt.Run(context.Background(), Launch{AgentID: "agent-1", Task: task}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns := hist.Turns()
	if len(turns[0].Results) != 3 {
		t.Fatalf("turn 1 results = %d, want 3", len(turns[0].Results))
	}
	for i, want := range []string{"cmd-one", "cmd-two", "cmd-three"} {
		if !strings.Contains(turns[0].Results[i].Payload, want) {
			t.Errorf("result %d = %q, want output of %s", i, turns[0].Results[i].Payload, want)
		}
	}
}

type failingCaller struct {
	calls int
}

func (c *failingCaller) Call(ctx context.Context, system string, messages []llm.Message) (llm.Response, error) {
	c.calls++
	return llm.Response{}, fmt.Errorf("gateway unreachable")
}

func TestRuntime_Run_LLMFailureRetriesOnceThenForcesReport(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.MaxTurns = 5

	dir := t.TempDir()
	sb := sandbox.New(fakeRunner{}, dir)
	d := dispatch.New(sb, fileops.New(), search.New(dir), agentstate.New(), caps)
	caller := &failingCaller{}
	rt := New(caller, d, agentstate.New(), history.New("agent-1"), history.NewTurnLogger(""), caps)

	task := models.Task{ID: "task_1", AgentType: models.AgentTypeExplorer, Description: "doomed"}
	report, err := rt.Run(context.Background(), Launch{AgentID: "agent-1", Task: task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FinalStatus != models.FinalStatusForced {
		t.Errorf("final status = %v, want forced", report.FinalStatus)
	}
	if caller.calls != 2 {
		t.Errorf("LLM calls = %d, want 2 (one retry)", caller.calls)
	}
}

func TestRuntime_Run_ExplorerFileWriteIsCapabilityViolationButLoopContinues(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.MaxTurns = 3
	rt, _ := newRuntime(t, caps, []string{
		`<file>
op: write
path: "/tmp/not-allowed.txt"
content: "x"
</file>`,
		`<report>
final_status: failed
comments: "cannot write"
</report>`,
	})

	task := models.Task{ID: "task_1", AgentType: models.AgentTypeExplorer, Description: "try to write"}
	report, err := rt.Run(context.Background(), Launch{AgentID: "agent-1", Task: task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.FinalStatus != models.FinalStatusFailed {
		t.Errorf("final status = %v, want failed", report.FinalStatus)
	}
	turns := rt.History.Turns()
	if len(turns) == 0 || len(turns[0].Results) != 1 || turns[0].Results[0].ErrorKind != models.ErrorKindCapabilityViolation {
		t.Errorf("turn 1 results = %+v, want a single CapabilityViolation", turns)
	}
}
