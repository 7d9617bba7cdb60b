package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name           string
		global         string
		project        string
		expectAgents   int
		expectMaxConc  int
		expectTimeout  time.Duration
		checkAgent     string
		expectType     string
		expectCommand  string
		expectLogLevel string
	}{
		{
			name:           "No config files - returns defaults",
			expectAgents:   2,
			expectMaxConc:  4,
			expectTimeout:  5 * time.Minute,
			expectLogLevel: "info",
		},
		{
			name:           "Global only - adds new agent",
			global:         `{"agents": {"upper": {"type": "command", "command": "tr", "args": ["a-z", "A-Z"]}}}`,
			expectAgents:   3,
			expectMaxConc:  4,
			expectTimeout:  5 * time.Minute,
			checkAgent:     "upper",
			expectType:     "command",
			expectCommand:  "tr",
			expectLogLevel: "info",
		},
		{
			name:           "Project overrides global engine settings",
			global:         `{"engine": {"max_concurrency": 8, "default_timeout": "1m"}}`,
			project:        `{"engine": {"max_concurrency": 2}, "log": {"level": "debug"}}`,
			expectAgents:   2,
			expectMaxConc:  2,
			expectTimeout:  time.Minute,
			expectLogLevel: "debug",
		},
		{
			name:           "Project replaces a default agent",
			project:        `{"agents": {"cat": {"type": "command", "command": "tac"}}}`,
			expectAgents:   2,
			expectMaxConc:  4,
			expectTimeout:  5 * time.Minute,
			checkAgent:     "cat",
			expectType:     "command",
			expectCommand:  "tac",
			expectLogLevel: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			globalPath := filepath.Join(dir, "global", "config.json")
			projectPath := filepath.Join(dir, "project", "config.json")
			if tt.global != "" {
				writeFile(t, globalPath, tt.global)
			}
			if tt.project != "" {
				writeFile(t, projectPath, tt.project)
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if len(cfg.Agents) != tt.expectAgents {
				t.Errorf("expected %d agents, got %d: %v", tt.expectAgents, len(cfg.Agents), cfg.Agents)
			}
			if cfg.Engine.MaxConcurrency != tt.expectMaxConc {
				t.Errorf("max_concurrency = %d, want %d", cfg.Engine.MaxConcurrency, tt.expectMaxConc)
			}
			if cfg.Engine.DefaultTimeout != tt.expectTimeout {
				t.Errorf("default_timeout = %v, want %v", cfg.Engine.DefaultTimeout, tt.expectTimeout)
			}
			if cfg.Log.Level != tt.expectLogLevel {
				t.Errorf("log.level = %q, want %q", cfg.Log.Level, tt.expectLogLevel)
			}

			if tt.checkAgent != "" {
				agent, ok := cfg.Agents[tt.checkAgent]
				if !ok {
					t.Fatalf("agent %q not found", tt.checkAgent)
				}
				if agent.Type != tt.expectType {
					t.Errorf("agent type = %q, want %q", agent.Type, tt.expectType)
				}
				if agent.Command != tt.expectCommand {
					t.Errorf("agent command = %q, want %q", agent.Command, tt.expectCommand)
				}
			}
		})
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "config.json")
	writeFile(t, projectPath, `{"engine": {`)

	if _, err := Load("", projectPath); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("TASKCOORD_ENGINE_MAX_CONCURRENCY", "7")
	t.Setenv("TASKCOORD_ENGINE_RETRY_DELAY", "250ms")
	t.Setenv("TASKCOORD_LOG_FORMAT", "json")

	dir := t.TempDir()
	projectPath := filepath.Join(dir, "config.json")
	writeFile(t, projectPath, `{"engine": {"max_concurrency": 2}}`)

	cfg, err := Load("", projectPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MaxConcurrency != 7 {
		t.Errorf("max_concurrency = %d, want 7 (env wins)", cfg.Engine.MaxConcurrency)
	}
	if cfg.Engine.RetryDelay != 250*time.Millisecond {
		t.Errorf("retry_delay = %v, want 250ms", cfg.Engine.RetryDelay)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"zero concurrency", `{"engine": {"max_concurrency": 0}}`, "max_concurrency"},
		{"command agent without command", `{"agents": {"broken": {"type": "command"}}}`, "agents.broken"},
		{"unknown agent type", `{"agents": {"x": {"type": "rpc"}}}`, "unknown type"},
		{"bad log format", `{"log": {"format": "xml"}}`, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			writeFile(t, path, tt.content)

			_, err := Load("", path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCoordinatorConfig(t *testing.T) {
	engine := DefaultConfig().Engine
	engine.MaxConcurrency = 9
	engine.RetryOnTimeout = true

	cc := engine.CoordinatorConfig()
	if cc.MaxConcurrency != 9 || !cc.RetryOnTimeout {
		t.Errorf("unexpected coordinator config: %+v", cc)
	}
	if cc.DefaultTimeout != engine.DefaultTimeout {
		t.Errorf("DefaultTimeout = %v, want %v", cc.DefaultTimeout, engine.DefaultTimeout)
	}
}
