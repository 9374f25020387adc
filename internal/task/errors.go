package task

import "errors"

// Errors returned by the Scheduler and TaskQueue.
var (
	ErrNotInitialized = errors.New("scheduler is not initialized")
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskFailed     = errors.New("task failed")
	ErrTaskTimeout    = errors.New("task timed out")
	ErrTaskCancelled  = errors.New("task cancelled")
	ErrInvalidTask    = errors.New("invalid task")
	ErrQueueClosed    = errors.New("task queue is closed")
	ErrQueueFull      = errors.New("task queue is full")
)

// TaskError is returned to waiters of a task that did not complete.
// Error returns the recorded message verbatim; errors.Is matches
// ErrTaskFailed, ErrTaskTimeout or ErrTaskCancelled.
type TaskError struct {
	TaskID  string
	Message string
	kind    error
}

func (e *TaskError) Error() string {
	return e.Message
}

func (e *TaskError) Unwrap() error {
	return e.kind
}
