package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. A batch failing any of these is rejected before any
// task is dispatched.
var (
	ErrInvalidTask        = errors.New("invalid task")
	ErrDuplicateTask      = errors.New("duplicate task id")
	ErrUnknownDependency  = errors.New("unknown dependency")
	ErrCycle              = errors.New("dependency cycle detected")
	ErrTaskAlreadyRunning = errors.New("task already running")
)

// CycleError reports the tasks that take part in a dependency cycle.
type CycleError struct {
	TaskIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s among tasks: %s", ErrCycle, strings.Join(e.TaskIDs, ", "))
}

// Is makes errors.Is(err, ErrCycle) match.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}
