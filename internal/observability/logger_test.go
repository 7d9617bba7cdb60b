package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aristath/taskcoord/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zap.DebugLevel},
		{"INFO", zap.InfoLevel},
		{"warning", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"", zap.InfoLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWritesJSONToFile(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	path := filepath.Join(t.TempDir(), "logs", "taskcoord.log")
	logger, err := SetupLogger(config.LogConfig{
		Level:   "debug",
		Format:  "json",
		Outputs: []string{path},
	})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}

	logger.Debug("task dispatched", zap.String("task_id", "A"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"task_id":"A"`) {
		t.Errorf("log file missing structured field: %s", data)
	}
}

func TestSetupLoggerRespectsLevel(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := SetupLogger(config.LogConfig{
		Level:   "warn",
		Format:  "console",
		Outputs: []string{path},
	})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("warn entry missing")
	}
}

func TestSetupLoggerRotationUsesConfiguredFilename(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	dir := t.TempDir()
	rotated := filepath.Join(dir, "rotated.log")
	logger, err := SetupLogger(config.LogConfig{
		Format:  "json",
		Outputs: []string{filepath.Join(dir, "ignored.log")},
		Rotation: config.RotationConfig{
			Enable:   true,
			Filename: rotated,
		},
	})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}

	logger.Info("rotating")
	_ = logger.Sync()

	if _, err := os.Stat(rotated); err != nil {
		t.Errorf("expected rotated log file: %v", err)
	}
}
