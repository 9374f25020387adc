package task

import "fmt"

const priorityTiers = 4

// TaskQueue holds pending tasks ordered by priority, FIFO within a tier.
// It is not safe for concurrent use; the Scheduler guards it with its mutex.
type TaskQueue struct {
	tiers   [priorityTiers][]*Task
	size    int
	maxSize int
	closed  bool
}

// NewTaskQueue creates a queue holding at most maxSize tasks.
// A maxSize of zero or less means unbounded.
func NewTaskQueue(maxSize int) *TaskQueue {
	return &TaskQueue{maxSize: maxSize}
}

// Enqueue appends a task to the tail of its priority tier.
func (q *TaskQueue) Enqueue(t *Task) error {
	return q.EnqueueAll([]*Task{t})
}

// EnqueueAll appends every task or none of them.
func (q *TaskQueue) EnqueueAll(tasks []*Task) error {
	if q.closed {
		return ErrQueueClosed
	}
	if q.maxSize > 0 && q.size+len(tasks) > q.maxSize {
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, q.maxSize)
	}
	for _, t := range tasks {
		if t.Priority.rank() < 0 {
			return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
		}
	}

	for _, t := range tasks {
		r := t.Priority.rank()
		q.tiers[r] = append(q.tiers[r], t)
		q.size++
	}
	return nil
}

// Dequeue removes and returns the oldest task of the highest non-empty tier.
func (q *TaskQueue) Dequeue() (*Task, bool) {
	for r := priorityTiers - 1; r >= 0; r-- {
		tier := q.tiers[r]
		if len(tier) == 0 {
			continue
		}
		t := tier[0]
		tier[0] = nil
		q.tiers[r] = tier[1:]
		q.size--
		return t, true
	}
	return nil, false
}

// Remove deletes the task with the given id, preserving the order of the rest.
func (q *TaskQueue) Remove(id string) bool {
	for r := range q.tiers {
		for i, t := range q.tiers[r] {
			if t.ID != id {
				continue
			}
			q.tiers[r] = append(q.tiers[r][:i], q.tiers[r][i+1:]...)
			q.size--
			return true
		}
	}
	return false
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	return q.size
}

// Snapshot returns the queued tasks in dispatch order.
// The returned slice shares Task pointers with the queue.
func (q *TaskQueue) Snapshot() []*Task {
	out := make([]*Task, 0, q.size)
	for r := priorityTiers - 1; r >= 0; r-- {
		out = append(out, q.tiers[r]...)
	}
	return out
}

// Drain empties the queue and returns what it held in dispatch order.
func (q *TaskQueue) Drain() []*Task {
	out := q.Snapshot()
	for r := range q.tiers {
		q.tiers[r] = nil
	}
	q.size = 0
	return out
}

// Close rejects further enqueues. Already queued tasks remain.
func (q *TaskQueue) Close() {
	q.closed = true
}

// Closed reports whether Close has been called.
func (q *TaskQueue) Closed() bool {
	return q.closed
}
