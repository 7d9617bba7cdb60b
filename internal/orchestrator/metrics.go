package orchestrator

import (
	"sync"
	"time"
)

// MetricsRecord aggregates outcomes for one worker type. Each terminal task
// counts once, however many attempts it took.
type MetricsRecord struct {
	WorkerType        string
	ExecutionCount    int
	SuccessCount      int
	FailureCount      int
	CacheHits         int
	TotalDuration     time.Duration
	LastDuration      time.Duration
	AverageDuration   time.Duration // TotalDuration / ExecutionCount
	LastExecutionTime time.Time
}

// SuccessRate returns SuccessCount / ExecutionCount, or 0 before any execution.
func (m MetricsRecord) SuccessRate() float64 {
	if m.ExecutionCount == 0 {
		return 0
	}
	return float64(m.SuccessCount) / float64(m.ExecutionCount)
}

type metricsStore struct {
	mu      sync.Mutex
	records map[string]*MetricsRecord
}

func newMetricsStore() *metricsStore {
	return &metricsStore{records: make(map[string]*MetricsRecord)}
}

func (s *metricsStore) record(workerType string, success, cached bool, d time.Duration, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[workerType]
	if !ok {
		rec = &MetricsRecord{WorkerType: workerType}
		s.records[workerType] = rec
	}

	rec.ExecutionCount++
	if success {
		rec.SuccessCount++
	} else {
		rec.FailureCount++
	}
	if cached {
		rec.CacheHits++
	}
	rec.TotalDuration += d
	rec.LastDuration = d
	rec.AverageDuration = rec.TotalDuration / time.Duration(rec.ExecutionCount)
	rec.LastExecutionTime = at
}

func (s *metricsStore) snapshot() map[string]MetricsRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]MetricsRecord, len(s.records))
	for k, v := range s.records {
		out[k] = *v
	}
	return out
}
