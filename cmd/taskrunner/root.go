package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/foreman/internal/exec"
	"github.com/ShayCichocki/foreman/internal/task"
)

var (
	workDir string
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "taskrunner \"instruction\"",
	Short: "Run one terminal task through the multi-agent controller",
	Long: `Taskrunner drives a hierarchical multi-agent controller against a single
terminal task: an orchestrator plans the work, delegates to explorer and
coder subagents executing inside the working directory, and finishes with
a final message once the task is done.

Configuration comes from the environment (LITELLM_MODEL, LITE_LLM_API_KEY,
LITE_LLM_API_BASE, and the MAX_*_TURNS budgets).`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&workDir, "workdir", ".", "Directory the agents operate in")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for per-agent turn logs (empty disables)")
}

func runTask(cmd *cobra.Command, args []string) error {
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolve workdir: %w", err)
	}

	result, err := task.PerformTask(context.Background(), args[0], task.SandboxHandle{
		WorkDir: absWorkDir,
		Runner:  exec.NewRunner(),
		LogDir:  logDir,
	})

	printResult(result, err)
	return err
}

func printResult(result task.Result, runErr error) {
	if runErr != nil {
		printStatus("✗", fmt.Sprintf("run failed: %v", runErr), color.FgRed)
	} else {
		printStatus("✓", "run finished", color.FgGreen)
	}

	fmt.Printf("\n%s\n\n", result.FinalMessage)

	s := result.Stats
	fmt.Printf("orchestrator turns: %d\n", s.OrchestratorTurns)
	fmt.Printf("subagent turns:     %d (%d explorer, %d coder launches)\n",
		s.SubagentTurns, s.ExplorerLaunches, s.CoderLaunches)
	fmt.Printf("tasks:              %d completed, %d failed\n", s.TasksCompleted, s.TasksFailed)
	fmt.Printf("tokens:             %d in, %d out ($%.4f)\n", s.TokensIn, s.TokensOut, s.CostUSD)
	if s.UnverifiedFinish {
		printStatus("⚠", "finished without a verification pass after the last coder task", color.FgYellow)
	}
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
