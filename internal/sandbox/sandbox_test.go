package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/foreman/internal/exec"
)

// fakeRunner lets tests control the Result/error returned without spawning
// a real process.
type fakeRunner struct {
	result exec.Result
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, workDir, command string, timeout time.Duration) (exec.Result, error) {
	return f.result, f.err
}

func TestExecutor_Exec_Blocking(t *testing.T) {
	runner := &fakeRunner{result: exec.Result{Stdout: "hi\n", ExitCode: 0, Duration: 5 * time.Millisecond}}
	e := New(runner, "/work")

	res, err := e.Exec(context.Background(), "echo hi", true, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "hi\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hi\n")
	}
	if res.Handle != "" {
		t.Errorf("blocking Exec should not return a handle, got %q", res.Handle)
	}
}

func TestExecutor_Exec_TruncatesLargeOutput(t *testing.T) {
	big := strings.Repeat("a", MaxOutputBytes+1)
	runner := &fakeRunner{result: exec.Result{Stdout: big}}
	e := New(runner, "/work")

	res, err := e.Exec(context.Background(), "yes", true, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Errorf("expected Truncated=true for output over %d bytes", MaxOutputBytes)
	}
	if len(res.Stdout) >= len(big) {
		t.Errorf("expected stdout to be shortened, got len %d", len(res.Stdout))
	}
}

func TestExecutor_Exec_ExactlyAtLimitNotTruncated(t *testing.T) {
	exact := strings.Repeat("a", MaxOutputBytes)
	runner := &fakeRunner{result: exec.Result{Stdout: exact}}
	e := New(runner, "/work")

	res, err := e.Exec(context.Background(), "yes", true, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Errorf("output exactly at the limit should not be marked truncated")
	}
	if res.Stdout != exact {
		t.Errorf("output exactly at the limit should be returned unmodified")
	}
}

func TestExecutor_Exec_NonBlockingReturnsHandle(t *testing.T) {
	runner := &fakeRunner{result: exec.Result{Stdout: "done"}}
	e := New(runner, "/work")

	res, err := e.Exec(context.Background(), "sleep 0", false, 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Handle == "" {
		t.Fatalf("non-blocking Exec should return a handle")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		polled, ok, err := e.Poll(res.Handle)
		if err != nil {
			t.Fatalf("unexpected poll error: %v", err)
		}
		if ok {
			if polled.Stdout != "done" {
				t.Errorf("Stdout = %q, want %q", polled.Stdout, "done")
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("non-blocking exec never completed")
}

func TestExecutor_Poll_UnknownHandle(t *testing.T) {
	e := New(&fakeRunner{}, "/work")
	if _, _, err := e.Poll("nope"); err == nil {
		t.Errorf("expected error for unknown handle")
	}
}

func TestResolveTimeout(t *testing.T) {
	tests := []struct {
		name    string
		secs    int
		want    time.Duration
	}{
		{"zero uses default", 0, DefaultTimeout},
		{"negative uses default", -1, DefaultTimeout},
		{"under cap is honored", 60, 60 * time.Second},
		{"over cap is clamped", 10000, MaxTimeout},
		{"exactly at cap is honored", 300, MaxTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTimeout(tt.secs); got != tt.want {
				t.Errorf("resolveTimeout(%d) = %v, want %v", tt.secs, got, tt.want)
			}
		})
	}
}
