package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aristath/taskcoord/internal/config"
	"github.com/aristath/taskcoord/internal/observability"
)

// errTasksFailed makes the process exit non-zero without printing an error;
// the failures have already been reported.
var errTasksFailed = errors.New("one or more tasks failed")

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	globalConfig  string
	projectConfig string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "taskcoord",
		Short: "Run dependency-ordered task batches through pluggable workers",
		Long: `taskcoord executes batches of tasks whose dependencies form a DAG.

Tasks are dispatched to worker types configured under "agents" with a
bounded number running at once. Failed attempts are retried, successful
results are cached by input, and every outcome is journaled to the run
history database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.globalConfig, "global-config", "", "Global config file (default ~/.taskcoord/config.json)")
	rootCmd.PersistentFlags().StringVar(&opts.projectConfig, "config", "", "Project config file (default .taskcoord/config.json)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig resolves config paths from flags and loads the merged config.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.globalConfig == "" && o.projectConfig == "" {
		cfg, err := config.LoadDefault()
		if err != nil {
			return nil, err
		}
		return o.applyOverrides(cfg), nil
	}

	globalPath := o.globalConfig
	if globalPath == "" {
		p, err := config.GlobalPath()
		if err != nil {
			return nil, err
		}
		globalPath = p
	}
	projectPath := o.projectConfig
	if projectPath == "" {
		projectPath = config.ProjectPath()
	}

	cfg, err := config.Load(globalPath, projectPath)
	if err != nil {
		return nil, err
	}
	return o.applyOverrides(cfg), nil
}

func (o *globalOptions) applyOverrides(cfg *config.Config) *config.Config {
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg
}

// setupLogger builds the process logger. When the configured outputs cannot
// be opened the error is reported on errOut and logging is disabled.
func setupLogger(cfg *config.Config, errOut io.Writer) *zap.Logger {
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(errOut, "warning: logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
