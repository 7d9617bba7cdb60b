package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// SlotController is a counting admission gate bounding how many executors
// run at once. Waiters are admitted in FIFO order.
type SlotController struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64
	peak     atomic.Int64
}

// NewSlotController creates a controller with the given capacity.
// Capacity below 1 is raised to 1.
func NewSlotController(capacity int) *SlotController {
	if capacity < 1 {
		capacity = 1
	}
	return &SlotController{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *SlotController) Acquire(ctx context.Context) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	n := s.inUse.Add(1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release returns a slot to the pool.
func (s *SlotController) Release() {
	s.inUse.Add(-1)
	s.sem.Release(1)
}

// InUse returns the number of slots currently held.
func (s *SlotController) InUse() int {
	return int(s.inUse.Load())
}

// Peak returns the highest number of slots ever held at once.
func (s *SlotController) Peak() int {
	return int(s.peak.Load())
}

// Capacity returns the maximum number of concurrent slots.
func (s *SlotController) Capacity() int {
	return int(s.capacity)
}
