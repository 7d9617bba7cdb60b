package scheduler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gammazero/toposort"
)

// DAG represents the dependency graph of one batch of tasks.
type DAG struct {
	mu         sync.RWMutex
	tasks      map[string]*Task    // All tasks indexed by ID
	order      []string            // Submission order
	dependents map[string][]string // Maps taskID -> list of tasks that depend on it
}

// Plan is the output of dependency resolution.
type Plan struct {
	Order []string   // Topological order, ties broken by submission order
	Waves [][]string // Readiness waves; wave N only depends on waves < N
}

// NewDAG creates an empty DAG.
func NewDAG() *DAG {
	return &DAG{
		tasks:      make(map[string]*Task),
		dependents: make(map[string][]string),
	}
}

// Resolve validates a batch and computes its execution plan.
// Validation is atomic: on error the caller must not run any task.
func Resolve(tasks []Task) (*Plan, error) {
	dag := NewDAG()
	for i := range tasks {
		if err := dag.AddTask(&tasks[i]); err != nil {
			return nil, err
		}
	}
	return dag.Plan()
}

// AddTask adds a task to the DAG. Returns error if the ID is empty or already exists.
func (d *DAG) AddTask(task *Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task id must not be empty", ErrInvalidTask)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tasks[task.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, task.ID)
	}

	cp := cloneTask(task)
	cp.DependsOn = dedupe(cp.DependsOn)
	d.tasks[cp.ID] = cp
	d.order = append(d.order, cp.ID)

	// Build dependents map for efficient downstream lookup
	for _, depID := range cp.DependsOn {
		d.dependents[depID] = append(d.dependents[depID], cp.ID)
	}

	return nil
}

// Validate runs topological sort using gammazero/toposort.
// Returns ordered task IDs, or a *CycleError naming the tasks on the cycle.
// Also verifies all task IDs in DependsOn exist in the DAG.
func (d *DAG) Validate() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.validateLocked()
}

func (d *DAG) validateLocked() ([]string, error) {
	for _, taskID := range d.order {
		for _, depID := range d.tasks[taskID].DependsOn {
			if _, exists := d.tasks[depID]; !exists {
				return nil, fmt.Errorf("%w: task %q depends on %q", ErrUnknownDependency, taskID, depID)
			}
		}
	}

	// Edge (depID, taskID) means depID must come before taskID. Roots get
	// an edge from nil so they are included in the result.
	edges := make([]toposort.Edge, 0, len(d.order))
	for _, taskID := range d.order {
		task := d.tasks[taskID]
		if len(task.DependsOn) == 0 {
			edges = append(edges, toposort.Edge{nil, taskID})
			continue
		}
		for _, depID := range task.DependsOn {
			edges = append(edges, toposort.Edge{depID, taskID})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, &CycleError{TaskIDs: d.cycleMembers()}
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}

	// A cycle with no root attached can be dropped silently by the sort.
	if len(order) != len(d.tasks) {
		return nil, &CycleError{TaskIDs: d.cycleMembers()}
	}

	return order, nil
}

// Plan validates the DAG and groups tasks into readiness waves.
func (d *DAG) Plan() (*Plan, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sorted, err := d.validateLocked()
	if err != nil {
		return nil, err
	}

	level := make(map[string]int, len(sorted))
	depth := 0
	for _, id := range sorted {
		l := 0
		for _, depID := range d.tasks[id].DependsOn {
			if level[depID]+1 > l {
				l = level[depID] + 1
			}
		}
		level[id] = l
		if l+1 > depth {
			depth = l + 1
		}
	}

	// Walk in submission order so each wave keeps the caller's ordering.
	waves := make([][]string, depth)
	for _, id := range d.order {
		waves[level[id]] = append(waves[level[id]], id)
	}

	order := make([]string, 0, len(d.order))
	for _, wave := range waves {
		order = append(order, wave...)
	}

	return &Plan{Order: order, Waves: waves}, nil
}

// cycleMembers isolates the tasks sitting on a cycle. A forward Kahn peel
// removes everything reachable from a root; a reverse peel then removes the
// tasks merely downstream of a cycle. Caller must hold the read lock.
func (d *DAG) cycleMembers() []string {
	remaining := make(map[string]bool, len(d.tasks))
	for id := range d.tasks {
		remaining[id] = true
	}

	// Forward: drop tasks whose dependencies are all gone.
	for changed := true; changed; {
		changed = false
		for _, id := range d.order {
			if !remaining[id] {
				continue
			}
			blocked := false
			for _, depID := range d.tasks[id].DependsOn {
				if remaining[depID] {
					blocked = true
					break
				}
			}
			if !blocked {
				delete(remaining, id)
				changed = true
			}
		}
	}

	// Reverse: drop tasks nothing remaining depends on.
	for changed := true; changed; {
		changed = false
		for _, id := range d.order {
			if !remaining[id] {
				continue
			}
			needed := false
			for _, next := range d.dependents[id] {
				if remaining[next] {
					needed = true
					break
				}
			}
			if !needed {
				delete(remaining, id)
				changed = true
			}
		}
	}

	members := make([]string, 0, len(remaining))
	for _, id := range d.order {
		if remaining[id] {
			members = append(members, id)
		}
	}
	return members
}

// IsCycle reports whether err was caused by a dependency cycle.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
