package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aristath/taskcoord/internal/agents"
	"github.com/aristath/taskcoord/internal/config"
	"github.com/aristath/taskcoord/internal/events"
	"github.com/aristath/taskcoord/internal/orchestrator"
	"github.com/aristath/taskcoord/internal/persistence"
	"github.com/aristath/taskcoord/internal/scheduler"
	"github.com/aristath/taskcoord/internal/tui"
)

type runOptions struct {
	strategy  string
	tui       bool
	json      bool
	noHistory bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <batch.json|batch.yaml>",
		Short: "Execute a batch of tasks",
		Long: `Execute every task in a batch file and print the results.

The batch file lists tasks with an id, a worker type, an optional input and
optional dependencies. The exit code is 1 when any task failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			batch, err := loadBatch(args[0])
			if err != nil {
				return err
			}

			logger := setupLogger(cfg, cmd.ErrOrStderr())
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runBatch(ctx, cfg, batch, opts, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Execution strategy: sequential, parallel or conditional")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "Show a live run monitor")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this run in the history database")

	return cmd
}

// runBatch executes batch with the configured agents and writes the results
// to out. It returns errTasksFailed when any task did not complete.
func runBatch(ctx context.Context, cfg *config.Config, batch *BatchFile, opts *runOptions, out io.Writer, logger *zap.Logger) error {
	tasks, err := batch.ToTasks()
	if err != nil {
		return err
	}

	pm := agents.NewProcessManager()
	registry, err := agents.BuildRegistry(cfg.Agents, pm, logger)
	if err != nil {
		return err
	}

	bus := events.NewEventBus(events.WithLogger(logger))
	defer bus.Close()

	coord := orchestrator.New(cfg.Engine.CoordinatorConfig(), registry,
		orchestrator.WithLogger(logger),
		orchestrator.WithEventBus(bus),
	)
	defer coord.Close()

	if cfg.History.Enabled && !opts.noHistory {
		store, err := persistence.NewSQLiteStore(ctx, cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer store.Close()

		recorder := persistence.NewRecorder(bus, store, logger)
		defer recorder.Close()
	}

	var (
		runID     string
		runIDOnce sync.Once
	)
	unsubscribe := coord.On(func(e events.Event) {
		runIDOnce.Do(func() {
			switch ev := e.(type) {
			case events.TaskStartedEvent:
				runID = ev.RunID
			case events.TaskCompletedEvent:
				runID = ev.RunID
			case events.TaskFailedEvent:
				runID = ev.RunID
			}
		})
	})
	defer unsubscribe()

	execOpts := orchestrator.ExecuteOptions{Type: scheduler.Strategy(batch.Strategy)}
	if opts.strategy != "" {
		execOpts.Type = scheduler.Strategy(opts.strategy)
	}

	started := time.Now()
	var results []*orchestrator.TaskResult
	if opts.tui {
		results, err = runWithMonitor(ctx, coord, tasks, execOpts)
	} else {
		results, err = coord.ExecuteTasks(ctx, tasks, execOpts)
	}

	if ctx.Err() != nil {
		if killErr := pm.KillAll(); killErr != nil {
			logger.Warn("failed to kill subprocesses", zap.Error(killErr))
		}
	}
	if err != nil {
		return err
	}

	if opts.json {
		if err := writeResultsJSON(out, runID, results); err != nil {
			return err
		}
	} else {
		writeResultsTable(out, runID, results, time.Since(started))
	}

	for _, r := range results {
		if !r.Succeeded() {
			return errTasksFailed
		}
	}
	return nil
}

// runWithMonitor runs the batch while a Bubble Tea monitor renders its
// events. The monitor stays open after the batch returns until the user
// quits; quitting early cancels the remaining tasks.
func runWithMonitor(ctx context.Context, coord *orchestrator.Coordinator, tasks []scheduler.Task, opts orchestrator.ExecuteOptions) ([]*orchestrator.TaskResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(tui.New(coord.Events()), tea.WithAltScreen())

	errChan := make(chan error, 1)
	go func() {
		_, err := program.Run()
		cancel()
		errChan <- err
	}()

	results, err := coord.ExecuteTasks(runCtx, tasks, opts)
	program.Send(tui.RunFinishedMsg{Err: err})

	var tuiErr error
	select {
	case tuiErr = <-errChan:
	case <-ctx.Done():
		program.Quit()
		tuiErr = <-errChan
	}
	if tuiErr != nil && err == nil {
		err = fmt.Errorf("run monitor: %w", tuiErr)
	}
	return results, err
}

type resultView struct {
	ID         string `json:"id"`
	WorkerType string `json:"worker_type"`
	Status     string `json:"status"`
	Output     any    `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempts   int    `json:"attempts"`
	Cached     bool   `json:"cached"`
	DurationMS int64  `json:"duration_ms"`
}

func writeResultsJSON(out io.Writer, runID string, results []*orchestrator.TaskResult) error {
	views := make([]resultView, 0, len(results))
	for _, r := range results {
		v := resultView{
			ID:         r.ID,
			WorkerType: r.WorkerType,
			Status:     r.Status.String(),
			Output:     r.Output,
			Attempts:   r.Attempts,
			Cached:     r.Cached,
			DurationMS: r.Duration().Milliseconds(),
		}
		if r.Error != nil {
			v.Error = r.Error.Error()
		}
		views = append(views, v)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID   string       `json:"run_id,omitempty"`
		Results []resultView `json:"results"`
	}{RunID: runID, Results: views})
}

func writeResultsTable(out io.Writer, runID string, results []*orchestrator.TaskResult, elapsed time.Duration) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tWORKER\tSTATUS\tATTEMPTS\tDURATION\tDETAIL")

	failed := 0
	for _, r := range results {
		status := green(r.Status.String())
		detail := ""
		switch {
		case !r.Succeeded():
			failed++
			status = red(r.Status.String())
			if r.Error != nil {
				detail = r.Error.Error()
			}
		case r.Cached:
			detail = dim("cached")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.WorkerType, status, r.Attempts, r.Duration().Round(time.Millisecond), detail)
	}
	_ = tw.Flush()

	summary := fmt.Sprintf("%s tasks in %s", humanize.Comma(int64(len(results))), elapsed.Round(time.Millisecond))
	if failed > 0 {
		summary += ", " + red(fmt.Sprintf("%d failed", failed))
	} else {
		summary += ", " + green("all completed")
	}
	if runID != "" {
		summary += dim(" (run " + runID + ")")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, summary)
}
