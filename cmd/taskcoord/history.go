package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aristath/taskcoord/internal/persistence"
)

func newHistoryCmd(global *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs",
		Long: `Without arguments, list the most recent runs with their task counts.
With a run id, list every result recorded for that run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, "No runs recorded yet. Run 'taskcoord run <batch>' to start.")
				return nil
			}

			store, err := persistence.NewSQLiteStore(cmd.Context(), cfg.History.Path)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd.Context(), store, args[0], out)
			}
			return listRuns(cmd.Context(), store, limit, out)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func listRuns(ctx context.Context, store persistence.Store, limit int, out io.Writer) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTASKS\tCOMPLETED\tFAILED")
	for _, run := range runs {
		failed := fmt.Sprint(run.Failed)
		if run.Failed > 0 {
			failed = red(failed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			run.ID, humanize.Time(run.StartedAt), humanize.Comma(int64(run.Total)), run.Completed, failed)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, store persistence.Store, runID string, out io.Writer) error {
	results, err := store.ListResults(ctx, runID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no results recorded for run %s", runID)
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tWORKER\tSTATUS\tATTEMPTS\tDURATION\tFINISHED\tDETAIL")
	for _, rec := range results {
		status := green(rec.Status)
		detail := rec.Output
		if rec.Error != "" {
			status = red(rec.Status)
			detail = rec.Error
		} else if rec.Cached {
			detail = "cached " + detail
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			rec.TaskID, rec.WorkerType, status, rec.Attempts,
			rec.Duration.Round(time.Millisecond), humanize.Time(rec.FinishedAt), truncate(detail, 60))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
