package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// CommandExecutor runs an external program once per task. The task input is
// written to stdin as JSON; stdout is decoded as JSON when possible and
// returned as trimmed text otherwise.
type CommandExecutor struct {
	command string
	args    []string
	env     []string
	workDir string
	procMgr *ProcessManager
	logger  *zap.Logger
}

// NewCommandExecutor creates an executor for spec. The ProcessManager is
// optional; without it subprocesses are not tracked for shutdown.
func NewCommandExecutor(spec Spec, procMgr *ProcessManager, logger *zap.Logger) (*CommandExecutor, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("command executor requires a command")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, kv := range spec.Env {
		if !strings.Contains(kv, "=") {
			return nil, fmt.Errorf("invalid env entry %q, want KEY=value", kv)
		}
	}

	return &CommandExecutor{
		command: spec.Command,
		args:    append([]string(nil), spec.Args...),
		env:     append([]string(nil), spec.Env...),
		workDir: spec.WorkDir,
		procMgr: procMgr,
		logger:  logger,
	}, nil
}

// Execute runs the command with input on stdin.
func (c *CommandExecutor) Execute(ctx context.Context, input any) (any, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	cmd := newCommand(ctx, c.command, c.args...)
	cmd.Dir = c.workDir
	cmd.Stdin = bytes.NewReader(payload)
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}

	c.logger.Debug("starting worker command",
		zap.String("command", c.command),
		zap.Strings("args", c.args),
	)

	stdout, stderr, err := executeCommand(ctx, cmd, c.procMgr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.command, err)
	}
	if len(stderr) > 0 {
		c.logger.Debug("worker stderr", zap.String("command", c.command), zap.ByteString("stderr", stderr))
	}

	return parseOutput(stdout), nil
}

// parseOutput decodes JSON output, falling back to trimmed text.
func parseOutput(stdout []byte) any {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil
	}

	var out any
	if err := json.Unmarshal(trimmed, &out); err == nil {
		return out
	}
	return strings.TrimSpace(string(trimmed))
}
