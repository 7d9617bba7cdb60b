package orchestrator

import "sync"

// ProgressSnapshot summarises the batches currently executing.
type ProgressSnapshot struct {
	TotalTasks         int
	CompletedTasks     int
	FailedTasks        int
	RunningTasks       int
	PercentageComplete float64
}

// progressTracker keeps one counter set per active ExecuteTasks call, keyed
// by run id. A run's counters disappear when the call returns.
type progressTracker struct {
	mu   sync.Mutex
	runs map[string]*ProgressSnapshot
}

func newProgressTracker() *progressTracker {
	return &progressTracker{runs: make(map[string]*ProgressSnapshot)}
}

func (p *progressTracker) begin(runID string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs[runID] = &ProgressSnapshot{TotalTasks: total}
}

func (p *progressTracker) end(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

// update applies fn to the run's counters and returns the new aggregate.
// It reports false when the run is not tracked.
func (p *progressTracker) update(runID string, fn func(*ProgressSnapshot)) (ProgressSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	run, ok := p.runs[runID]
	if !ok {
		return ProgressSnapshot{}, false
	}
	fn(run)
	return p.aggregateLocked(), true
}

func (p *progressTracker) snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aggregateLocked()
}

func (p *progressTracker) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*ProgressSnapshot)
}

func (p *progressTracker) aggregateLocked() ProgressSnapshot {
	var agg ProgressSnapshot
	for _, run := range p.runs {
		agg.TotalTasks += run.TotalTasks
		agg.CompletedTasks += run.CompletedTasks
		agg.FailedTasks += run.FailedTasks
		agg.RunningTasks += run.RunningTasks
	}
	if agg.TotalTasks > 0 {
		agg.PercentageComplete = float64(agg.CompletedTasks+agg.FailedTasks) * 100 / float64(agg.TotalTasks)
	}
	return agg
}
