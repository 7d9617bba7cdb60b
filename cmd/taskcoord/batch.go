package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aristath/taskcoord/internal/scheduler"
)

// BatchFile is the on-disk description of a batch.
type BatchFile struct {
	Strategy string     `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Tasks    []TaskSpec `json:"tasks" yaml:"tasks"`
}

// TaskSpec describes one task in a batch file.
type TaskSpec struct {
	ID        string      `json:"id" yaml:"id"`
	Worker    string      `json:"worker" yaml:"worker"`
	Input     any         `json:"input,omitempty" yaml:"input,omitempty"`
	DependsOn []string    `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Timeout   timeoutText `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// timeoutText holds a task timeout as written in a batch file: either a Go
// duration string ("30s") or a bare integer counted in nanoseconds.
type timeoutText string

// UnmarshalJSON accepts both quoted durations and JSON numbers.
func (t *timeoutText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = timeoutText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timeout must be a duration string or integer nanoseconds: %s", data)
	}
	*t = timeoutText(n.String())
	return nil
}

func (t timeoutText) duration() (time.Duration, error) {
	if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
		return time.Duration(n), nil
	}
	return time.ParseDuration(string(t))
}

// loadBatch reads a batch file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON.
func loadBatch(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var batch BatchFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
		}
		for i := range batch.Tasks {
			batch.Tasks[i].Input = normalizeYAML(batch.Tasks[i].Input)
		}
	default:
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
		}
	}

	if len(batch.Tasks) == 0 {
		return nil, fmt.Errorf("batch file %s contains no tasks", path)
	}
	return &batch, nil
}

// ToTasks converts the file's task specs into scheduler tasks.
func (b *BatchFile) ToTasks() ([]scheduler.Task, error) {
	tasks := make([]scheduler.Task, 0, len(b.Tasks))
	for _, spec := range b.Tasks {
		task := scheduler.Task{
			ID:         spec.ID,
			WorkerType: spec.Worker,
			Input:      spec.Input,
			DependsOn:  spec.DependsOn,
		}
		if spec.Timeout != "" {
			d, err := spec.Timeout.duration()
			if err != nil {
				return nil, fmt.Errorf("task %q: invalid timeout %q: %w", spec.ID, spec.Timeout, err)
			}
			task.Timeout = d
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// normalizeYAML converts map[any]any produced for non-string YAML keys into
// map[string]any so inputs stay JSON-encodable for command workers.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}
