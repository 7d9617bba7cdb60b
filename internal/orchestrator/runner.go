package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/taskcoord/internal/agents"
	"github.com/aristath/taskcoord/internal/events"
	"github.com/aristath/taskcoord/internal/scheduler"
)

// taskRun carries one task through prepare, dispatch and finish.
type taskRun struct {
	runID       string
	task        *scheduler.Task
	result      *TaskResult
	input       any // possibly revised from upstream outputs
	fingerprint string
	exec        agents.Executor
	timeout     time.Duration
	running     bool
}

// batch holds the runs of one ExecuteTasks call, keyed by task id.
type batch struct {
	runID string
	runs  map[string]*taskRun
}

func (c *Coordinator) newRun(runID string, task *scheduler.Task) *taskRun {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = c.cfg.DefaultTimeout
	}
	return &taskRun{
		runID: runID,
		task:  task,
		result: &TaskResult{
			ID:         task.ID,
			WorkerType: task.WorkerType,
			Status:     scheduler.TaskPending,
		},
		input:   task.Input,
		timeout: timeout,
	}
}

func (c *Coordinator) newBatch(tasks []scheduler.Task) *batch {
	b := &batch{
		runID: uuid.NewString(),
		runs:  make(map[string]*taskRun, len(tasks)),
	}
	for i := range tasks {
		task := tasks[i]
		b.runs[task.ID] = c.newRun(b.runID, &task)
	}
	return b
}

// upstream collects the outputs of ids. Only valid once they are terminal.
func (b *batch) upstream(ids []string) map[string]any {
	out := make(map[string]any, len(ids))
	for _, id := range ids {
		out[id] = b.runs[id].result.Output
	}
	return out
}

// runSequential dispatches one task at a time in topological order.
func (c *Coordinator) runSequential(ctx context.Context, b *batch, order []string) {
	for _, id := range order {
		run := b.runs[id]
		if c.prepare(ctx, run, b, false) {
			continue
		}
		if err := c.slots.Acquire(ctx); err != nil {
			c.finish(run, nil, err, false)
			continue
		}
		c.dispatch(ctx, run)
	}
}

// runWaves fans each readiness wave out over the slot controller. Slots are
// taken in wave order before a goroutine starts, so admission is FIFO. The
// next wave begins once every task of the current one is terminal.
func (c *Coordinator) runWaves(ctx context.Context, b *batch, waves [][]string, conditional bool) {
	for _, wave := range waves {
		var g errgroup.Group
		for _, id := range wave {
			run := b.runs[id]
			if c.prepare(ctx, run, b, conditional) {
				continue
			}
			if err := c.slots.Acquire(ctx); err != nil {
				c.finish(run, nil, err, false)
				continue
			}
			g.Go(func() error {
				c.dispatch(ctx, run)
				return nil
			})
		}
		g.Wait()
	}
}

// prepare settles everything that does not need a slot. It returns true
// when the task already reached a terminal state: cancelled, skipped for a
// failed dependency, served from cache, or bound to an unknown worker.
func (c *Coordinator) prepare(ctx context.Context, run *taskRun, b *batch, conditional bool) bool {
	if err := ctx.Err(); err != nil {
		c.finish(run, nil, err, false)
		return true
	}

	if b != nil {
		for _, depID := range run.task.DependsOn {
			if b.runs[depID].result.Status == scheduler.TaskFailed {
				c.finish(run, nil, fmt.Errorf("%w: %s", ErrDependencyFailed, depID), false)
				return true
			}
		}

		if conditional && len(run.task.DependsOn) > 0 {
			input, err := reviseInput(run.task, run.input, b.upstream(run.task.DependsOn))
			if err != nil {
				c.finish(run, nil, fmt.Errorf("revise input: %w", err), false)
				return true
			}
			run.input = input
		}
	}

	if c.cfg.EnableCaching {
		fp, err := Fingerprint(run.task.WorkerType, run.input)
		if err != nil {
			c.logger.Debug("input not cacheable", zap.String("task_id", run.task.ID), zap.Error(err))
		} else {
			run.fingerprint = fp
			if out, ok := c.cache.Get(fp); ok {
				run.result.Cached = true
				c.finish(run, out, nil, true)
				return true
			}
		}
	}

	exec, err := c.resolve(run.task.WorkerType)
	if err != nil {
		c.finish(run, nil, err, true)
		return true
	}
	run.exec = exec
	return false
}

func (c *Coordinator) resolve(workerType string) (agents.Executor, error) {
	if c.agents == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorker, workerType)
	}
	exec, err := c.agents.Resolve(workerType)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorker, workerType)
	}
	return exec, nil
}

// dispatch runs the executor. The caller must hold a slot; it is released
// before the task is finished.
func (c *Coordinator) dispatch(ctx context.Context, run *taskRun) {
	run.result.Status = scheduler.TaskRunning
	run.result.StartedAt = time.Now()
	run.running = true

	c.updateProgress(run, func(p *ProgressSnapshot) { p.RunningTasks++ })
	c.bus.Publish(events.TopicAgent, events.TaskStartedEvent{
		RunID:      run.runID,
		ID:         run.task.ID,
		WorkerType: run.task.WorkerType,
		Timestamp:  run.result.StartedAt,
	})

	output, attempts, err := c.executeWithRetry(ctx, run)
	c.slots.Release()

	run.result.Attempts = attempts
	c.finish(run, output, err, true)
}

// finish moves a task to its terminal state: cache write, metrics, progress,
// events, then the in-flight id is released.
func (c *Coordinator) finish(run *taskRun, output any, err error, counted bool) {
	now := time.Now()
	res := run.result
	if res.StartedAt.IsZero() {
		res.StartedAt = now
	}
	res.EndedAt = now

	if err != nil {
		res.Status = scheduler.TaskFailed
		res.Error = err
	} else {
		res.Status = scheduler.TaskCompleted
		res.Output = output
	}

	if err == nil && !res.Cached && run.fingerprint != "" {
		if err := c.cache.Put(run.fingerprint, output); err != nil {
			c.logger.Debug("output not cacheable", zap.String("task_id", run.task.ID), zap.Error(err))
		}
	}

	if counted {
		c.metrics.record(res.WorkerType, err == nil, res.Cached, res.Duration(), now)
	}

	wasRunning := run.running
	run.running = false
	c.updateProgress(run, func(p *ProgressSnapshot) {
		if wasRunning {
			p.RunningTasks--
		}
		if err != nil {
			p.FailedTasks++
		} else {
			p.CompletedTasks++
		}
	})

	if err != nil {
		c.logger.Warn("task failed",
			zap.String("run_id", run.runID),
			zap.String("task_id", res.ID),
			zap.String("worker_type", res.WorkerType),
			zap.Int("attempts", res.Attempts),
			zap.Error(err),
		)
		c.bus.Publish(events.TopicAgent, events.TaskFailedEvent{
			RunID:      run.runID,
			ID:         res.ID,
			WorkerType: res.WorkerType,
			Err:        err,
			Attempts:   res.Attempts,
			Duration:   res.Duration(),
			Timestamp:  now,
		})
	} else {
		c.logger.Debug("task completed",
			zap.String("run_id", run.runID),
			zap.String("task_id", res.ID),
			zap.String("worker_type", res.WorkerType),
			zap.Bool("cached", res.Cached),
			zap.Duration("duration", res.Duration()),
		)
		c.bus.Publish(events.TopicAgent, events.TaskCompletedEvent{
			RunID:      run.runID,
			ID:         res.ID,
			WorkerType: res.WorkerType,
			Output:     output,
			Cached:     res.Cached,
			Attempts:   res.Attempts,
			Duration:   res.Duration(),
			Timestamp:  now,
		})
	}

	c.inflight.Release(res.ID)
}

func (c *Coordinator) updateProgress(run *taskRun, fn func(*ProgressSnapshot)) {
	snap, ok := c.progress.update(run.runID, fn)
	if !ok {
		return
	}
	c.bus.Publish(events.TopicProgress, events.ProgressEvent{
		RunID:      run.runID,
		Total:      snap.TotalTasks,
		Completed:  snap.CompletedTasks,
		Failed:     snap.FailedTasks,
		Running:    snap.RunningTasks,
		Percentage: snap.PercentageComplete,
		Timestamp:  time.Now(),
	})
}

func (c *Coordinator) publishRetrying(run *taskRun, attempt int, err error, delay time.Duration) {
	c.bus.Publish(events.TopicAgent, events.TaskRetryingEvent{
		RunID:      run.runID,
		ID:         run.task.ID,
		WorkerType: run.task.WorkerType,
		Attempt:    attempt,
		Err:        err,
		Delay:      delay,
		Timestamp:  time.Now(),
	})
}

// reviseInput rewrites a conditional task's input from its dependencies'
// outputs. Without a Revise hook, map inputs gain an "upstream" key.
func reviseInput(task *scheduler.Task, input any, upstream map[string]any) (any, error) {
	if task.Revise != nil {
		return task.Revise(input, upstream)
	}

	m, ok := input.(map[string]any)
	if !ok {
		return input, nil
	}
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["upstream"] = upstream
	return out, nil
}
