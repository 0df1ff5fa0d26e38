package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/foreman/internal/agentstate"
	"github.com/ShayCichocki/foreman/internal/exec"
	"github.com/ShayCichocki/foreman/internal/fileops"
	"github.com/ShayCichocki/foreman/internal/sandbox"
	"github.com/ShayCichocki/foreman/internal/search"
	"github.com/ShayCichocki/foreman/pkg/models"
)

type fakeRunner struct{}

func (fakeRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (exec.Result, error) {
	return exec.Result{Stdout: "ok", ExitCode: 0, Duration: time.Millisecond}, nil
}

func newTestDispatcher(t *testing.T, caps models.Capabilities) (*Dispatcher, string) {
	t.Helper()
	dir := t.TempDir()
	sb := sandbox.New(fakeRunner{}, dir)
	return New(sb, fileops.New(), search.New(dir), agentstate.New(), caps), dir
}

func TestDispatch_ExplorerCannotWrite(t *testing.T) {
	d, dir := newTestDispatcher(t, models.AgentTypeExplorer.Capabilities())

	action := models.Action{Tag: models.TagFile, File: &models.FileAction{
		Op: models.FileOpWrite, Path: filepath.Join(dir, "out.txt"), Content: "x",
	}}
	res := d.Dispatch(context.Background(), action)
	if res.OK || res.ErrorKind != models.ErrorKindCapabilityViolation {
		t.Fatalf("got %+v, want CapabilityViolation", res)
	}
}

func TestDispatch_CoderCanWrite(t *testing.T) {
	d, dir := newTestDispatcher(t, models.AgentTypeCoder.Capabilities())

	path := filepath.Join(dir, "out.txt")
	action := models.Action{Tag: models.TagFile, File: &models.FileAction{
		Op: models.FileOpWrite, Path: path, Content: "hello",
	}}
	res := d.Dispatch(context.Background(), action)
	if !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "hello" {
		t.Errorf("file content = %q, err=%v", got, err)
	}
}

func TestDispatch_OrchestratorOnlyActionRejected(t *testing.T) {
	d, _ := newTestDispatcher(t, models.AgentTypeCoder.Capabilities())

	action := models.Action{Tag: models.TagFinish, Finish: &models.FinishAction{Message: "done"}}
	res := d.Dispatch(context.Background(), action)
	if res.OK || res.ErrorKind != models.ErrorKindCapabilityViolation {
		t.Fatalf("got %+v, want CapabilityViolation", res)
	}
}

func TestDispatch_ExplorerWriteTempScriptAllowedUnderTempRoot(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.TempRoot = filepath.Join(t.TempDir(), "scratch")
	if err := os.MkdirAll(caps.TempRoot, 0755); err != nil {
		t.Fatal(err)
	}
	d, _ := newTestDispatcher(t, caps)

	action := models.Action{Tag: models.TagWriteTempScript, WriteTempScript: &models.WriteTempScriptAction{
		Path: filepath.Join(caps.TempRoot, "probe.sh"), Content: "#!/bin/sh\necho hi\n",
	}}
	res := d.Dispatch(context.Background(), action)
	if !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
}

func TestDispatch_WriteTempScriptOutsideTempRootRejected(t *testing.T) {
	caps := models.AgentTypeExplorer.Capabilities()
	caps.TempRoot = filepath.Join(t.TempDir(), "scratch")
	d, dir := newTestDispatcher(t, caps)

	action := models.Action{Tag: models.TagWriteTempScript, WriteTempScript: &models.WriteTempScriptAction{
		Path: filepath.Join(dir, "escape.sh"), Content: "echo nope",
	}}
	res := d.Dispatch(context.Background(), action)
	if res.OK || res.ErrorKind != models.ErrorKindCapabilityViolation {
		t.Fatalf("got %+v, want CapabilityViolation", res)
	}
}

func TestDispatch_BashRunsThroughSandbox(t *testing.T) {
	d, _ := newTestDispatcher(t, models.AgentTypeCoder.Capabilities())

	action := models.Action{Tag: models.TagBash, Bash: &models.BashAction{Command: "echo hi", Block: true}}
	res := d.Dispatch(context.Background(), action)
	if !res.OK {
		t.Fatalf("unexpected error: %+v", res)
	}
}

func TestDispatch_TodoAddThenComplete(t *testing.T) {
	d, _ := newTestDispatcher(t, models.AgentTypeCoder.Capabilities())

	add := d.Dispatch(context.Background(), models.Action{Tag: models.TagTodo, Todo: &models.TodoAction{
		Op: models.TodoOpAdd, Text: "write tests",
	}})
	if !add.OK || add.Payload == "" {
		t.Fatalf("unexpected add result: %+v", add)
	}

	complete := d.Dispatch(context.Background(), models.Action{Tag: models.TagTodo, Todo: &models.TodoAction{
		Op: models.TodoOpComplete, ID: add.Payload,
	}})
	if !complete.OK {
		t.Fatalf("unexpected complete result: %+v", complete)
	}
}
