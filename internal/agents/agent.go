// Package agents provides the registry of worker types the coordinator
// dispatches tasks to, plus the built-in executor implementations.
package agents

import (
	"context"
	"errors"
)

// ErrUnknownWorker is returned when no executor is registered for a worker type.
var ErrUnknownWorker = errors.New("unknown worker type")

// Executor turns a task input into an output.
type Executor interface {
	// Execute runs one task. Implementations should return promptly once
	// ctx is done.
	Execute(ctx context.Context, input any) (any, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, input any) (any, error)

// Execute calls f(ctx, input).
func (f ExecutorFunc) Execute(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// Resolver looks up the executor for a worker type.
type Resolver interface {
	Resolve(workerType string) (Executor, error)
}

// EchoExecutor returns its input unchanged.
type EchoExecutor struct{}

// Execute returns input.
func (EchoExecutor) Execute(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return input, nil
}
