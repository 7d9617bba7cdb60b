package agents

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Spec describes a configured worker type.
type Spec struct {
	Type         string   `mapstructure:"type" json:"type"` // "command" or "echo"
	Command      string   `mapstructure:"command" json:"command,omitempty"`
	Args         []string `mapstructure:"args" json:"args,omitempty"`
	Env          []string `mapstructure:"env" json:"env,omitempty"` // KEY=value pairs
	WorkDir      string   `mapstructure:"work_dir" json:"work_dir,omitempty"`
	Capabilities []string `mapstructure:"capabilities" json:"capabilities,omitempty"`
}

// New builds an executor for spec.
func New(spec Spec, pm *ProcessManager, logger *zap.Logger) (Executor, error) {
	switch spec.Type {
	case "command":
		return NewCommandExecutor(spec, pm, logger)
	case "echo", "":
		return EchoExecutor{}, nil
	default:
		return nil, fmt.Errorf("unknown agent type: %s", spec.Type)
	}
}

// BuildRegistry creates a registry holding one executor per named spec.
func BuildRegistry(specs map[string]Spec, pm *ProcessManager, logger *zap.Logger) (*Registry, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := NewRegistry()
	for _, name := range names {
		spec := specs[name]
		exec, err := New(spec, pm, logger)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
		if err := reg.Register(name, exec, spec.Capabilities...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
