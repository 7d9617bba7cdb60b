package scheduler

import (
	"fmt"
	"sort"
	"sync"
)

// InflightRegistry tracks the IDs of tasks currently being executed,
// coordinator-wide. Claims never block: a second claim on the same ID is
// rejected with ErrTaskAlreadyRunning.
type InflightRegistry struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewInflightRegistry creates an empty registry.
func NewInflightRegistry() *InflightRegistry {
	return &InflightRegistry{
		ids: make(map[string]struct{}),
	}
}

// Claim marks taskID as in flight.
func (r *InflightRegistry) Claim(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[taskID]; exists {
		return fmt.Errorf("task %q: %w", taskID, ErrTaskAlreadyRunning)
	}
	r.ids[taskID] = struct{}{}
	return nil
}

// ClaimAll marks every ID as in flight, or none of them.
// The first conflicting ID in sorted order is reported.
func (r *InflightRegistry) ClaimAll(taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}

	sorted := make([]string, len(taskIDs))
	copy(sorted, taskIDs)
	sort.Strings(sorted)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range sorted {
		if _, exists := r.ids[id]; exists {
			return fmt.Errorf("task %q: %w", id, ErrTaskAlreadyRunning)
		}
	}
	for _, id := range sorted {
		r.ids[id] = struct{}{}
	}
	return nil
}

// Release removes taskID from the registry. Releasing an unknown ID is a no-op.
func (r *InflightRegistry) Release(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, taskID)
}

// IsRunning reports whether taskID is currently claimed.
func (r *InflightRegistry) IsRunning(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.ids[taskID]
	return exists
}

// Len returns the number of in-flight IDs.
func (r *InflightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// Clear forgets every claim.
func (r *InflightRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[string]struct{})
}
