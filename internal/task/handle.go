package task

import (
	"context"
	"time"
)

// taskEntry pairs a task with the signal that resolves its waiters.
// final and kind are written once, under the scheduler mutex, before done is closed.
type taskEntry struct {
	task  *Task
	done  chan struct{}
	final *Task
	kind  error
}

func newTaskEntry(t *Task) *taskEntry {
	return &taskEntry{task: t, done: make(chan struct{})}
}

func (e *taskEntry) resolve(kind error) {
	e.kind = kind
	e.final = e.task.clone()
	close(e.done)
}

func (e *taskEntry) wait(ctx context.Context) (*Task, error) {
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t := e.final.clone()
	if t.Status == TaskStatusCompleted {
		return t, nil
	}
	return t, &TaskError{TaskID: t.ID, Message: t.Error, kind: e.kind}
}

// Handle lets a submitter wait for its task. A Handle keeps the terminal
// record alive regardless of scheduler retention.
type Handle struct {
	id    string
	entry *taskEntry
}

// ID returns the task id.
func (h *Handle) ID() string {
	return h.id
}

// Done is closed once the task reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.entry.done
}

// Wait blocks until the task is terminal or ctx ends. A completed task returns
// a nil error; failed, timed out and cancelled tasks return a *TaskError
// alongside the terminal record.
func (h *Handle) Wait(ctx context.Context) (*Task, error) {
	return h.entry.wait(ctx)
}

// BatchResult aggregates the outcomes of a batch.
type BatchResult struct {
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	TotalCost float64 `json:"total_cost"`
	// AverageResponseTime is the mean latency in milliseconds of successful members.
	AverageResponseTime float64 `json:"average_response_time_ms"`
	Tasks               []*Task `json:"tasks"`
}

// BatchHandle waits for every member of a batch.
type BatchHandle struct {
	handles []*Handle
}

// IDs returns member task ids in submission order.
func (b *BatchHandle) IDs() []string {
	ids := make([]string, len(b.handles))
	for i, h := range b.handles {
		ids[i] = h.ID()
	}
	return ids
}

// Wait blocks until every member task is terminal. Member failures are
// counted, not returned; the only error is ctx's.
func (b *BatchHandle) Wait(ctx context.Context) (*BatchResult, error) {
	res := &BatchResult{
		Total: len(b.handles),
		Tasks: make([]*Task, 0, len(b.handles)),
	}

	var latency time.Duration
	for _, h := range b.handles {
		t, err := h.Wait(ctx)
		if t == nil {
			return nil, err
		}
		res.Tasks = append(res.Tasks, t)
		if err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
		res.TotalCost += t.Cost
		latency += t.ResponseTime
	}

	if res.Succeeded > 0 {
		res.AverageResponseTime = float64(latency) / float64(time.Millisecond) / float64(res.Succeeded)
	}
	return res, nil
}
