package agents

import (
	"fmt"
	"sort"
	"sync"
)

// Agent is a registered worker type.
type Agent struct {
	Type         string
	Capabilities []string
	Executor     Executor
}

// Registry maps worker types to executors and their capability tags.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
	}
}

// Register adds an executor for workerType. Registering the same type twice
// is an error.
func (r *Registry) Register(workerType string, exec Executor, capabilities ...string) error {
	if workerType == "" {
		return fmt.Errorf("worker type must not be empty")
	}
	if exec == nil {
		return fmt.Errorf("executor for %q must not be nil", workerType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[workerType]; exists {
		return fmt.Errorf("worker type %q already registered", workerType)
	}

	r.agents[workerType] = Agent{
		Type:         workerType,
		Capabilities: append([]string(nil), capabilities...),
		Executor:     exec,
	}
	return nil
}

// Resolve returns the executor registered for workerType.
func (r *Registry) Resolve(workerType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[workerType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorker, workerType)
	}
	return agent.Executor, nil
}

// Capabilities returns the capability tags declared for workerType.
func (r *Registry) Capabilities(workerType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.agents[workerType].Capabilities...)
}

// Types returns all registered worker types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// FindByCapability returns the sorted worker types that declare tag.
func (r *Registry) FindByCapability(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []string
	for t, agent := range r.agents {
		for _, c := range agent.Capabilities {
			if c == tag {
				matches = append(matches, t)
				break
			}
		}
	}
	sort.Strings(matches)
	return matches
}
