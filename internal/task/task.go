package task

import (
	"context"
	"time"
)

// TaskType names the kind of inference a task performs.
type TaskType string

// Supported task types.
const (
	TaskTypeRecognition TaskType = "recognition"
	TaskTypeAnalysis    TaskType = "analysis"
	TaskTypePrediction  TaskType = "prediction"
	TaskTypeGeneration  TaskType = "generation"
)

// Priority determines dispatch order between queued tasks.
type Priority string

// Priority values, lowest first.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// rank orders priorities for the queue. Unknown priorities rank -1.
func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return -1
	}
}

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// RequestConfig is the per-task request configuration handed to the Executor.
// The scheduler only reads Provider and Model, as fallbacks for the response.
type RequestConfig struct {
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"  validate:"gte=0"`
	Temperature float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`
}

// Response is what a provider call reports back.
type Response struct {
	Success      bool
	Result       string
	Cost         float64
	ResponseTime time.Duration
	Provider     string
	Model        string
	Error        string
}

// Executor performs the remote AI call for one task.
// Implementations must honor ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, prompt string, cfg RequestConfig) (*Response, error)
}

// Resolver is implemented by executors that fill in the provider and model a
// config will actually be served by. The scheduler records statistics under
// the resolved names, including for calls that fail or time out.
type Resolver interface {
	Resolve(cfg RequestConfig) RequestConfig
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, prompt string, cfg RequestConfig) (*Response, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, prompt string, cfg RequestConfig) (*Response, error) {
	return f(ctx, prompt, cfg)
}

// ProviderStatusSource reports which providers are currently active.
type ProviderStatusSource interface {
	ProviderStatuses(ctx context.Context) (map[string]bool, error)
}

// SubmitRequest describes a task to schedule. An empty Priority means medium.
type SubmitRequest struct {
	Type     TaskType      `json:"type"     validate:"required,oneof=recognition analysis prediction generation"`
	Prompt   string        `json:"prompt"   validate:"required"`
	Config   RequestConfig `json:"config"`
	Priority Priority      `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

// Task is a unit of work tracked by the Scheduler. Values returned from the
// Scheduler are copies.
type Task struct {
	ID       string        `json:"id"`
	Type     TaskType      `json:"type"`
	Prompt   string        `json:"-"`
	Config   RequestConfig `json:"config"`
	Priority Priority      `json:"priority"`
	Status   TaskStatus    `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Result       string        `json:"result,omitempty"`
	Error        string        `json:"error,omitempty"`
	Cost         float64       `json:"cost"`
	ResponseTime time.Duration `json:"response_time_ns"`
	Provider     string        `json:"provider,omitempty"`
	Model        string        `json:"model,omitempty"`
}

func (t *Task) clone() *Task {
	c := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}
