package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSlotController_BoundsConcurrency(t *testing.T) {
	slots := NewSlotController(3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := slots.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			time.Sleep(10 * time.Millisecond)
			slots.Release()
		}()
	}
	wg.Wait()

	if slots.Peak() > 3 {
		t.Errorf("peak %d exceeds capacity 3", slots.Peak())
	}
	if slots.Peak() < 2 {
		t.Errorf("expected some concurrency, peak was %d", slots.Peak())
	}
	if slots.InUse() != 0 {
		t.Errorf("expected all slots released, %d in use", slots.InUse())
	}
}

func TestSlotController_AcquireHonorsContext(t *testing.T) {
	slots := NewSlotController(1)
	if err := slots.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer slots.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := slots.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if slots.InUse() != 1 {
		t.Errorf("failed Acquire must not take a slot, in use = %d", slots.InUse())
	}
}

func TestSlotController_FIFOAdmission(t *testing.T) {
	slots := NewSlotController(1)
	ctx := context.Background()
	if err := slots.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	order := make(chan int, 3)
	for i := 0; i < 3; i++ {
		go func(n int) {
			if err := slots.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			order <- n
			slots.Release()
		}(i)
		// Let each waiter queue up before starting the next one.
		time.Sleep(10 * time.Millisecond)
	}

	slots.Release()
	for want := 0; want < 3; want++ {
		if got := <-order; got != want {
			t.Fatalf("admission order: got %d, want %d", got, want)
		}
	}
}

func TestSlotController_MinimumCapacity(t *testing.T) {
	if got := NewSlotController(0).Capacity(); got != 1 {
		t.Errorf("capacity = %d, want 1", got)
	}
}
