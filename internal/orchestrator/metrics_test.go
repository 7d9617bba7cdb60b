package orchestrator

import (
	"testing"
	"time"
)

func TestMetricsStore(t *testing.T) {
	s := newMetricsStore()
	now := time.Now()

	s.record("w", true, false, 100*time.Millisecond, now)
	s.record("w", false, false, 300*time.Millisecond, now.Add(time.Second))
	s.record("w", true, true, 0, now.Add(2*time.Second))

	m := s.snapshot()["w"]
	if m.ExecutionCount != 3 || m.SuccessCount != 2 || m.FailureCount != 1 || m.CacheHits != 1 {
		t.Errorf("counts = %+v", m)
	}
	if m.TotalDuration != 400*time.Millisecond {
		t.Errorf("TotalDuration = %s", m.TotalDuration)
	}
	if m.AverageDuration != 400*time.Millisecond/3 {
		t.Errorf("AverageDuration = %s", m.AverageDuration)
	}
	if m.LastDuration != 0 || !m.LastExecutionTime.Equal(now.Add(2*time.Second)) {
		t.Errorf("last = %s at %v", m.LastDuration, m.LastExecutionTime)
	}
	if got := m.SuccessRate(); got < 0.66 || got > 0.67 {
		t.Errorf("SuccessRate = %v", got)
	}
}

func TestMetricsSnapshotIsCopy(t *testing.T) {
	s := newMetricsStore()
	s.record("w", true, false, time.Millisecond, time.Now())

	snap := s.snapshot()
	rec := snap["w"]
	rec.ExecutionCount = 99
	snap["w"] = rec

	if s.snapshot()["w"].ExecutionCount != 1 {
		t.Error("snapshot aliases internal state")
	}
}

func TestSuccessRateEmpty(t *testing.T) {
	if (MetricsRecord{}).SuccessRate() != 0 {
		t.Error("empty record should have zero success rate")
	}
}
