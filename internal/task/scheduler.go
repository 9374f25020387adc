package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/star64ccs/CardStrategy-sub008/internal/events"
	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
)

// SchedulerConfig holds configuration for the Scheduler
type SchedulerConfig struct {
	// MaxConcurrent is the most provider calls in flight at once.
	MaxConcurrent int

	// MaxQueueSize bounds pending tasks. Zero means unbounded.
	MaxQueueSize int

	// DispatchInterval is how often the dispatch loop polls the queue
	// in addition to waking whenever a slot frees.
	DispatchInterval time.Duration

	// HealthInterval is how often provider status and Health are refreshed
	// and expired results evicted.
	HealthInterval time.Duration

	// TaskTimeout bounds one provider call. Zero disables it.
	TaskTimeout time.Duration

	// ResultRetention is how long terminal tasks stay retrievable by id.
	ResultRetention time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrent:    5,
		MaxQueueSize:     1000,
		DispatchInterval: 100 * time.Millisecond,
		HealthInterval:   30 * time.Second,
		TaskTimeout:      2 * time.Minute,
		ResultRetention:  10 * time.Minute,
	}
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithEventEmitter publishes task lifecycle events through emitter.
func WithEventEmitter(emitter events.EventEmitter) Option {
	return func(s *Scheduler) { s.emitter = emitter }
}

// WithSystemSampler replaces the runtime-backed gauge sampler.
func WithSystemSampler(sampler SystemSampler) Option {
	return func(s *Scheduler) { s.sampler = sampler }
}

// WithClock replaces time.Now for timestamps and month rollover.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler admits queued tasks into a bounded set of concurrent provider
// calls in priority order.
//
// A single mutex guards the queue, the active set, retained results,
// statistics and health as one unit, so a task is never observed in both the
// queue and the active set.
type Scheduler struct {
	executor Executor
	status   ProviderStatusSource
	config   SchedulerConfig
	logger   *slog.Logger
	emitter  events.EventEmitter
	sampler  SystemSampler
	now      func() time.Time
	validate *validator.Validate

	ctx        context.Context
	cancelFunc context.CancelFunc
	loops      sync.WaitGroup
	inflight   sync.WaitGroup
	wake       chan struct{}

	initMu      sync.Mutex
	mu          sync.Mutex
	initialized bool
	stopped     bool
	queue       *TaskQueue
	entries     map[string]*taskEntry
	active      map[string]*taskEntry
	statuses    map[string]bool
	stats       Statistics
	health      Health
}

// NewScheduler creates a Scheduler. Call Initialize before submitting.
func NewScheduler(
	executor Executor,
	status ProviderStatusSource,
	config SchedulerConfig,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.MaxConcurrent <= 0 {
		logger.Warn("invalid max concurrency, using default",
			"configured", config.MaxConcurrent, "default", defaults.MaxConcurrent)
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.DispatchInterval <= 0 {
		config.DispatchInterval = defaults.DispatchInterval
	}
	if config.HealthInterval <= 0 {
		config.HealthInterval = defaults.HealthInterval
	}
	if config.ResultRetention <= 0 {
		config.ResultRetention = defaults.ResultRetention
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		executor:   executor,
		status:     status,
		config:     config,
		logger:     logger.With("component", "scheduler"),
		sampler:    NewRuntimeSampler(),
		now:        time.Now,
		validate:   validator.New(),
		ctx:        ctx,
		cancelFunc: cancel,
		wake:       make(chan struct{}, 1),
		queue:      NewTaskQueue(config.MaxQueueSize),
		entries:    make(map[string]*taskEntry),
		active:     make(map[string]*taskEntry),
		statuses:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats = newStatistics(s.now())
	return s
}

// Initialize queries provider status, computes the first Health snapshot and
// starts the dispatch and health loops. A status query failure is returned and
// leaves the scheduler uninitialized. Calling Initialize again is a no-op.
func (s *Scheduler) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrQueueClosed
	}
	if s.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	statuses, err := s.status.ProviderStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to query provider status: %w", err)
	}
	gauges := s.sampler.Sample()

	s.mu.Lock()
	s.statuses = copyStatuses(statuses)
	s.refreshHealthLocked(gauges)
	s.initialized = true
	s.mu.Unlock()

	s.loops.Add(2)
	go s.dispatchLoop()
	go s.healthLoop()

	s.logger.Info("scheduler initialized",
		"max_concurrent", s.config.MaxConcurrent,
		"max_queue_size", s.config.MaxQueueSize,
		"providers", len(statuses))
	return nil
}

// Stop closes the queue, cancels every pending task, cancels in-flight calls
// and waits for the loops and in-flight completions to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.queue.Close()
	drained := s.queue.Drain()
	cancelled := make([]*Task, 0, len(drained))
	for _, t := range drained {
		cancelled = append(cancelled, s.cancelLocked(s.entries[t.ID], "scheduler stopped"))
	}
	s.mu.Unlock()

	s.cancelFunc()
	s.loops.Wait()
	s.inflight.Wait()

	for _, t := range cancelled {
		s.emit(events.TypeTaskCancelled, t)
	}
	s.logger.Info("scheduler stopped", "cancelled_pending", len(cancelled))
}

// Submit validates req, enqueues a pending task and returns its handle.
func (s *Scheduler) Submit(ctx context.Context, req SubmitRequest) (*Handle, error) {
	batch, err := s.SubmitBatch(ctx, []SubmitRequest{req})
	if err != nil {
		return nil, err
	}
	return batch.handles[0], nil
}

// SubmitBatch validates every request and enqueues all of them or none.
// Member tasks run independently; one failing does not affect the others.
func (s *Scheduler) SubmitBatch(ctx context.Context, reqs []SubmitRequest) (*BatchHandle, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidTask)
	}
	for i := range reqs {
		if err := s.validate.Struct(reqs[i]); err != nil {
			return nil, fmt.Errorf("%w: request %d: %v", ErrInvalidTask, i, err)
		}
	}

	now := s.now()
	tasks := make([]*Task, len(reqs))
	for i, req := range reqs {
		priority := req.Priority
		if priority == "" {
			priority = PriorityMedium
		}
		tasks[i] = &Task{
			ID:        uuid.NewString(),
			Type:      req.Type,
			Prompt:    req.Prompt,
			Config:    req.Config,
			Priority:  priority,
			Status:    TaskStatusPending,
			CreatedAt: now,
		}
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if err := s.queue.EnqueueAll(tasks); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	batch := &BatchHandle{handles: make([]*Handle, len(tasks))}
	for i, t := range tasks {
		entry := newTaskEntry(t)
		s.entries[t.ID] = entry
		batch.handles[i] = &Handle{id: t.ID, entry: entry}
	}
	queueLen := s.queue.Len()
	s.mu.Unlock()

	for _, t := range tasks {
		s.logger.Debug("task enqueued",
			"task_id", t.ID,
			"task_type", t.Type,
			"priority", t.Priority,
			"queue_len", queueLen)
	}
	return batch, nil
}

// AwaitCompletion waits for the identified task. It returns ErrTaskNotFound
// for ids that were never submitted or whose results have expired.
func (s *Scheduler) AwaitCompletion(ctx context.Context, id string) (*Task, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return entry.wait(ctx)
}

// Cancel removes a pending task from the queue. It returns false once the
// task has been dispatched, is terminal or is unknown.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok || entry.task.Status != TaskStatusPending || !s.queue.Remove(id) {
		s.mu.Unlock()
		return false
	}
	snapshot := s.cancelLocked(entry, "task cancelled")
	s.mu.Unlock()

	s.logger.Info("task cancelled", "task_id", id)
	s.emit(events.TypeTaskCancelled, snapshot)
	return true
}

// GetTask returns a copy of a queued, active or retained task.
func (s *Scheduler) GetTask(id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return entry.task.clone(), nil
}

// GetStats returns a copy of the cumulative statistics.
func (s *Scheduler) GetStats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.rollMonth(s.now())
	return s.stats.clone()
}

// GetHealth returns a copy of the latest Health with live task counts.
func (s *Scheduler) GetHealth() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.health.clone()
	h.ActiveTasks = len(s.active)
	h.QueueLength = s.queue.Len()
	return h
}

// GetActiveTasks returns copies of the tasks currently in flight, oldest first.
func (s *Scheduler) GetActiveTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.active))
	for _, entry := range s.active {
		out = append(out, *entry.task.clone())
	}
	sortByStart(out)
	return out
}

// GetQueuedTasks returns copies of the pending tasks in dispatch order.
func (s *Scheduler) GetQueuedTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	queued := s.queue.Snapshot()
	out := make([]Task, len(queued))
	for i, t := range queued {
		out[i] = *t.clone()
	}
	return out
}

// RefreshHealth re-queries provider status and recomputes Health. On a status
// error the previous provider flags are kept and the error is returned.
func (s *Scheduler) RefreshHealth(ctx context.Context) error {
	statuses, err := s.status.ProviderStatuses(ctx)
	gauges := s.sampler.Sample()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.statuses = copyStatuses(statuses)
	}
	s.refreshHealthLocked(gauges)
	s.evictExpiredLocked()
	if err != nil {
		return fmt.Errorf("failed to query provider status: %w", err)
	}
	return nil
}

func (s *Scheduler) refreshHealthLocked(gauges SystemGauges) {
	s.health = computeHealth(s.statuses, s.stats, gauges, s.now())
}

func (s *Scheduler) evictExpiredLocked() {
	cutoff := s.now().Add(-s.config.ResultRetention)
	for id, entry := range s.entries {
		t := entry.task
		if t.Status.IsTerminal() && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

func (s *Scheduler) dispatchLoop() {
	defer s.loops.Done()

	ticker := time.NewTicker(s.config.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatch()
		case <-s.wake:
			s.dispatch()
		}
	}
}

func (s *Scheduler) healthLoop() {
	defer s.loops.Done()

	ticker := time.NewTicker(s.config.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshHealth(s.ctx); err != nil && s.ctx.Err() == nil {
				s.logger.Warn("health refresh failed", "error", redact.Error(err))
			}
		}
	}
}

// dispatch admits queued tasks, one pop at a time, until the active set is
// full or the queue is empty.
func (s *Scheduler) dispatch() {
	for {
		s.mu.Lock()
		if s.stopped || len(s.active) >= s.config.MaxConcurrent {
			s.mu.Unlock()
			return
		}
		t, ok := s.queue.Dequeue()
		if !ok {
			s.mu.Unlock()
			return
		}
		entry := s.entries[t.ID]
		started := s.now()
		t.Status = TaskStatusProcessing
		t.StartedAt = &started
		t.Provider, t.Model = s.resolve(t.Config)
		s.active[t.ID] = entry
		snapshot := t.clone()
		activeCount := len(s.active)
		s.inflight.Add(1)
		s.mu.Unlock()

		s.logger.Debug("task dispatched",
			"task_id", snapshot.ID,
			"priority", snapshot.Priority,
			"active", activeCount)
		s.emit(events.TypeTaskDispatched, snapshot)

		go s.execute(entry, snapshot)
	}
}

// resolve names the provider and model cfg will be served by.
func (s *Scheduler) resolve(cfg RequestConfig) (provider, model string) {
	if r, ok := s.executor.(Resolver); ok {
		cfg = r.Resolve(cfg)
	}
	return cfg.Provider, cfg.Model
}

type callOutcome struct {
	resp *Response
	err  error
}

// execute runs one provider call. The call goroutine is abandoned if the
// deadline passes first, so a hung provider frees its slot at TaskTimeout.
func (s *Scheduler) execute(entry *taskEntry, t *Task) {
	defer s.inflight.Done()

	ctx := s.ctx
	if s.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.config.TaskTimeout)
		defer cancel()
	}

	result := make(chan callOutcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- callOutcome{err: fmt.Errorf("executor panic: %v", r)}
			}
		}()
		resp, err := s.executor.Execute(ctx, t.Prompt, t.Config)
		result <- callOutcome{resp: resp, err: err}
	}()

	var out callOutcome
	select {
	case out = <-result:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	elapsed := time.Since(start)

	err := out.err
	if err == nil && (out.resp == nil || !out.resp.Success) {
		msg := "provider reported failure"
		if out.resp != nil && out.resp.Error != "" {
			msg = out.resp.Error
		}
		err = errors.New(msg)
	}

	var snapshot *Task
	var eventType string
	if err != nil {
		kind, msg := ErrTaskFailed, err.Error()
		switch {
		case s.ctx.Err() != nil:
			msg = "scheduler stopped"
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			kind = ErrTaskTimeout
			msg = fmt.Sprintf("task timed out after %s", s.config.TaskTimeout)
		}
		snapshot = s.fail(entry, out.resp, msg, kind)
		eventType = events.TypeTaskFailed
	} else {
		snapshot = s.complete(entry, out.resp, elapsed)
		eventType = events.TypeTaskCompleted
	}

	s.signalWake()
	s.emit(eventType, snapshot)
}

func (s *Scheduler) complete(entry *taskEntry, resp *Response, elapsed time.Duration) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := entry.task
	now := s.now()
	latency := resp.ResponseTime
	if latency <= 0 {
		latency = elapsed
	}

	t.Status = TaskStatusCompleted
	t.Result = resp.Result
	t.Cost = resp.Cost
	t.ResponseTime = latency
	t.Provider = firstNonEmpty(resp.Provider, t.Provider, t.Config.Provider)
	t.Model = firstNonEmpty(resp.Model, t.Model, t.Config.Model)
	t.CompletedAt = &now

	s.stats.recordSuccess(t.Provider, t.Model, t.Cost, latency, now)
	delete(s.active, t.ID)
	entry.resolve(nil)

	s.logger.Info("task completed",
		"task_id", t.ID,
		"provider", t.Provider,
		"model", t.Model,
		"cost", t.Cost,
		"response_time_ms", latency.Milliseconds())
	return t.clone()
}

// fail records a failed call. resp may be nil; when set, it names the
// provider and model that failed.
func (s *Scheduler) fail(entry *taskEntry, resp *Response, msg string, kind error) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := entry.task
	now := s.now()
	t.Status = TaskStatusFailed
	t.Error = msg
	t.Provider = firstNonEmpty(t.Provider, t.Config.Provider)
	t.Model = firstNonEmpty(t.Model, t.Config.Model)
	if resp != nil {
		t.Provider = firstNonEmpty(resp.Provider, t.Provider)
		t.Model = firstNonEmpty(resp.Model, t.Model)
	}
	t.CompletedAt = &now

	s.stats.recordFailure(t.Provider, t.Model, now)
	delete(s.active, t.ID)
	entry.resolve(kind)

	s.logger.Error("task failed",
		"task_id", t.ID,
		"provider", t.Provider,
		"error", redact.String(msg))
	return t.clone()
}

// cancelLocked resolves a pending task as cancelled. The caller has already
// removed it from the queue.
func (s *Scheduler) cancelLocked(entry *taskEntry, msg string) *Task {
	now := s.now()
	t := entry.task
	t.Status = TaskStatusCancelled
	t.Error = msg
	t.CompletedAt = &now
	entry.resolve(ErrTaskCancelled)
	return t.clone()
}

func (s *Scheduler) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

type eventPayload struct {
	TaskID         string     `json:"task_id"`
	Type           TaskType   `json:"type"`
	Priority       Priority   `json:"priority"`
	Status         TaskStatus `json:"status"`
	Provider       string     `json:"provider,omitempty"`
	Model          string     `json:"model,omitempty"`
	Cost           float64    `json:"cost,omitempty"`
	ResponseTimeMs int64      `json:"response_time_ms,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func (s *Scheduler) emit(eventType string, t *Task) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, t.ID, eventPayload{
		TaskID:         t.ID,
		Type:           t.Type,
		Priority:       t.Priority,
		Status:         t.Status,
		Provider:       t.Provider,
		Model:          t.Model,
		Cost:           t.Cost,
		ResponseTimeMs: t.ResponseTime.Milliseconds(),
		Error:          redact.String(t.Error),
	})
	if err != nil {
		s.logger.Error("failed to build task event", "task_id", t.ID, "error", err)
		return
	}
	if err := s.emitter.EmitEvent(context.Background(), event); err != nil {
		s.logger.Warn("task event delivery failed",
			"task_id", t.ID,
			"event_type", eventType,
			"error", redact.Error(err))
	}
}

func copyStatuses(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortByStart(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i].StartedAt, tasks[j].StartedAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
