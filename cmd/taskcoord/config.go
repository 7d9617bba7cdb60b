package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/taskcoord/internal/config"
	"github.com/aristath/taskcoord/internal/tui"
)

func newConfigCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}
	cmd.AddCommand(newConfigInitCmd(global), newConfigShowCmd(global))
	return cmd
}

func newConfigInitCmd(global *globalOptions) *cobra.Command {
	var (
		useGlobal   bool
		force       bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectPath := global.projectConfig
			if projectPath == "" {
				projectPath = config.ProjectPath()
			}
			globalPath := global.globalConfig
			if globalPath == "" {
				var err error
				if globalPath, err = config.GlobalPath(); err != nil {
					return err
				}
			}

			if interactive {
				return editSettings(cmd, global, globalPath, projectPath)
			}

			path := projectPath
			if useGlobal {
				path = globalPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := config.Save(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useGlobal, "global", false, "Write the global config instead of the project config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Edit engine settings in a form and choose where to save them")
	return cmd
}

// editSettings runs the settings form seeded with the effective config. The
// chosen target file is overwritten on submit.
func editSettings(cmd *cobra.Command, global *globalOptions, globalPath, projectPath string) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}

	program := tea.NewProgram(
		tui.NewSettingsModel(cfg, globalPath, projectPath),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("settings form: %w", err)
	}
	return reportSettings(cmd.OutOrStdout(), final)
}

func reportSettings(out io.Writer, final tea.Model) error {
	m, ok := final.(tui.SettingsModel)
	if !ok {
		return fmt.Errorf("settings form returned %T", final)
	}
	if m.Err() != nil {
		return m.Err()
	}
	if !m.Saved() {
		fmt.Fprintln(out, "Cancelled, nothing written")
		return nil
	}
	fmt.Fprintf(out, "Wrote %s\n", m.SavedPath())
	return nil
}

func newConfigShowCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(config.Settings(cfg), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
