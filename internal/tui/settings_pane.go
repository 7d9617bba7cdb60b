package tui

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskcoord/internal/config"
)

// Save targets offered by the settings form.
const (
	SaveGlobal  = "global"
	SaveProject = "project"
)

// settingsFields holds the form bindings. It lives behind a pointer so the
// huh fields stay bound when the model is copied by Update.
type settingsFields struct {
	saveTarget     string
	maxConcurrency string
	defaultTimeout string
	retryAttempts  string
	retryDelay     string
	enableCaching  bool
}

// SettingsModel is a standalone form that edits the engine settings and
// writes the result to the global or project config file.
type SettingsModel struct {
	form        *huh.Form
	config      *config.Config
	fields      *settingsFields
	globalPath  string
	projectPath string
	width       int
	height      int
	done        bool
	saved       bool
	savedPath   string
	err         error
}

// NewSettingsModel creates a form pre-filled from cfg. cfg is updated in
// place when the form is submitted.
func NewSettingsModel(cfg *config.Config, globalPath, projectPath string) SettingsModel {
	m := SettingsModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		fields: &settingsFields{
			saveTarget:     SaveProject,
			maxConcurrency: strconv.Itoa(cfg.Engine.MaxConcurrency),
			defaultTimeout: cfg.Engine.DefaultTimeout.String(),
			retryAttempts:  strconv.Itoa(cfg.Engine.RetryAttempts),
			retryDelay:     cfg.Engine.RetryDelay.String(),
			enableCaching:  cfg.Engine.EnableCaching,
		},
	}
	m.form = m.buildForm()
	return m
}

func (m SettingsModel) buildForm() *huh.Form {
	f := m.fields
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("maxConcurrency").
				Title("Max Concurrency").
				Description("Executors allowed to run at once").
				Value(&f.maxConcurrency).
				Validate(validateCount(1)),

			huh.NewInput().
				Key("defaultTimeout").
				Title("Default Timeout").
				Description("Per-attempt timeout, e.g. 5m or 30s").
				Value(&f.defaultTimeout).
				Validate(validateDuration(false)),

			huh.NewInput().
				Key("retryAttempts").
				Title("Retry Attempts").
				Description("Extra attempts after a failure").
				Value(&f.retryAttempts).
				Validate(validateCount(0)),

			huh.NewInput().
				Key("retryDelay").
				Title("Retry Delay").
				Description("Initial delay between attempts").
				Value(&f.retryDelay).
				Validate(validateDuration(true)),

			huh.NewConfirm().
				Key("enableCaching").
				Title("Cache Results").
				Value(&f.enableCaching),
		).Title("Engine"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Project ("+m.projectPath+")", SaveProject),
					huh.NewOption("Global ("+m.globalPath+")", SaveGlobal),
				).
				Value(&f.saveTarget),
		).Title("Save Target"),
	)
}

// Init initializes the form.
func (m SettingsModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings form. The program quits once the
// form is saved, fails to save, or is cancelled with esc.
func (m SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.submit()
		return m, tea.Quit
	case huh.StateAborted:
		m.done = true
		return m, tea.Quit
	}

	return m, cmd
}

// submit copies the form values into the config and saves it to the chosen
// target.
func (m *SettingsModel) submit() {
	m.done = true

	if err := m.applyFormToConfig(); err != nil {
		m.err = err
		return
	}

	path := m.projectPath
	if m.fields.saveTarget == SaveGlobal {
		path = m.globalPath
	}
	if err := config.Save(m.config, path); err != nil {
		m.err = err
		return
	}
	m.saved = true
	m.savedPath = path
}

func (m *SettingsModel) applyFormToConfig() error {
	f := m.fields
	engine := m.config.Engine

	var err error
	if engine.MaxConcurrency, err = strconv.Atoi(f.maxConcurrency); err != nil {
		return fmt.Errorf("max concurrency: %w", err)
	}
	if engine.DefaultTimeout, err = time.ParseDuration(f.defaultTimeout); err != nil {
		return fmt.Errorf("default timeout: %w", err)
	}
	if engine.RetryAttempts, err = strconv.Atoi(f.retryAttempts); err != nil {
		return fmt.Errorf("retry attempts: %w", err)
	}
	if engine.RetryDelay, err = time.ParseDuration(f.retryDelay); err != nil {
		return fmt.Errorf("retry delay: %w", err)
	}
	engine.EnableCaching = f.enableCaching

	updated := *m.config
	updated.Engine = engine
	if err := updated.Validate(); err != nil {
		return err
	}
	m.config.Engine = engine
	return nil
}

// View renders the form or the outcome of the last submit.
func (m SettingsModel) View() string {
	var content string
	switch {
	case m.err != nil:
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	case m.saved:
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Render("✓ Settings saved to " + m.savedPath)
	case m.done:
		content = StyleHelp.Render("Cancelled, nothing written.")
	default:
		content = m.form.View()
	}

	style := StyleFocusedBorder.Padding(1, 2)
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		StyleBanner.Render("⚙ Settings"),
		style.Render(content),
		StyleHelp.Render("enter: next | esc: cancel"),
	)
}

// SetSize updates the dimensions of the settings form.
func (m *SettingsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil && w > 8 && h > 8 {
		m.form = m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// Saved reports whether the settings were written.
func (m SettingsModel) Saved() bool { return m.saved }

// SavedPath returns the file the settings were written to.
func (m SettingsModel) SavedPath() string { return m.savedPath }

// Err returns the error from the last submit, if any.
func (m SettingsModel) Err() error { return m.err }

var errNotANumber = errors.New("must be a whole number")

func validateCount(minimum int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errNotANumber
		}
		if n < minimum {
			return fmt.Errorf("must be at least %d", minimum)
		}
		return nil
	}
}

func validateDuration(allowZero bool) func(string) error {
	return func(s string) error {
		d, err := time.ParseDuration(s)
		if err != nil {
			return errors.New("must be a duration such as 30s or 5m")
		}
		if d < 0 || (d == 0 && !allowZero) {
			return errors.New("must be positive")
		}
		return nil
	}
}
