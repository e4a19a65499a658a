package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/internal/config"
	"github.com/taskfleet/taskfleet/internal/tui"
	"github.com/taskfleet/taskfleet/pkg/models"
)

var (
	runStream    bool
	runTUI       bool
	runRequester string
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Execute a task",
	Long: `Execute a task through the router.

The task is classified, handed to the matching agent team, and run with
retries and model fallback. By default the final answer is printed when the
run completes; --stream prints progress events as they happen, and --tui
shows them in a live terminal view.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().BoolVar(&runStream, "stream", false, "Print progress events as they happen")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Watch progress in a live terminal view")
	runCmd.Flags().StringVar(&runRequester, "requester", "cli", "Requester identity recorded with the task")
}

func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case runTUI:
		return runWithTUI(ctx, st, task)
	case runStream:
		return runStreaming(ctx, st, task)
	default:
		return runDirect(ctx, st, task)
	}
}

func runDirect(ctx context.Context, st *stack, task string) error {
	outcome := st.orch.Execute(ctx, task, runRequester)

	if notice := st.selector.FallbackNotice(); notice != "" {
		fmt.Fprintln(os.Stderr, color.YellowString("⚠ %s", notice))
	}

	if !outcome.Success {
		color.Red("✗ %s", outcome.Err.Message)
		fmt.Printf("  routed to: %s, model: %s, attempts: %d\n",
			outcome.RoutedTo, outcome.ModelUsed, outcome.AttemptCount)
		return fmt.Errorf("task failed")
	}

	fmt.Println(outcome.Response)
	fmt.Fprintf(os.Stderr, "%s routed to %s, model %s, attempts %d\n",
		color.GreenString("✓"), outcome.RoutedTo, outcome.ModelUsed, outcome.AttemptCount)
	return nil
}

func runStreaming(ctx context.Context, st *stack, task string) error {
	failed := false
	for ev := range st.orch.Stream(ctx, task, runRequester) {
		printEvent(ev)
		if ev.Kind == models.EventError {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("task failed")
	}
	return nil
}

func runWithTUI(ctx context.Context, st *stack, task string) error {
	app := tui.New(task, st.orch.Stream(ctx, task, runRequester))
	final, err := tea.NewProgram(app, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if a, ok := final.(*tui.App); ok && a.Failed() {
		return fmt.Errorf("task failed")
	}
	return nil
}

// eventColors maps event kinds to their terminal colors.
var eventColors = map[models.EventKind]*color.Color{
	models.EventRouting:    color.New(color.FgCyan),
	models.EventThinking:   color.New(color.FgHiBlack),
	models.EventAction:     color.New(color.FgYellow),
	models.EventToolResult: color.New(color.FgHiBlack),
	models.EventValidation: color.New(color.FgMagenta),
	models.EventAnalysis:   color.New(color.FgCyan),
	models.EventFinal:      color.New(color.FgGreen, color.Bold),
	models.EventError:      color.New(color.FgRed, color.Bold),
}

func printEvent(ev models.ProgressEvent) {
	c, ok := eventColors[ev.Kind]
	if !ok {
		c = color.New()
	}
	c.Printf("[%s] ", ev.Kind)
	fmt.Printf("%s: %s\n", ev.Source, ev.Content)
}
