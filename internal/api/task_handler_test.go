package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star64ccs/CardStrategy-sub008/internal/api/middleware"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

func TestSubmitTask_RoundTrip(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	rec := srv.do(t, http.MethodPost, "/api/ai/tasks", map[string]any{
		"type":     "analysis",
		"prompt":   "price trend for base set charizard",
		"priority": "high",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	accepted := decode[SubmitTaskResponse](t, rec)
	assert.NotEmpty(t, accepted.ID)
	assert.Equal(t, task.TaskStatusPending, accepted.Status)

	rec = srv.do(t, http.MethodGet, "/api/ai/tasks/"+accepted.ID+"/result?wait=2s", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[task.Task](t, rec)
	assert.Equal(t, task.TaskStatusCompleted, done.Status)
	assert.Equal(t, "ok: price trend for base set charizard", done.Result)
	assert.Equal(t, task.PriorityHigh, done.Priority)
	assert.NotContains(t, rec.Body.String(), `"prompt"`)

	rec = srv.do(t, http.MethodGet, "/api/ai/tasks/"+accepted.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[task.Statistics](t, srv.do(t, http.MethodGet, "/api/ai/stats", nil))
	assert.Equal(t, int64(1), stats.TotalRequests)
}

func TestSubmitTask_Validation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	tests := []struct {
		name    string
		body    any
		message string
	}{
		{name: "malformed json", body: `{"type":`, message: "Invalid request format"},
		{name: "unknown field", body: `{"type":"analysis","prompt":"x","user":"1"}`, message: "Invalid request format"},
		{name: "missing prompt", body: map[string]any{"type": "analysis"}, message: "Invalid Prompt: required field"},
		{name: "bad type", body: map[string]any{"type": "shipping", "prompt": "x"}, message: "Invalid Type: invalid value"},
		{name: "bad priority", body: map[string]any{"type": "analysis", "prompt": "x", "priority": "urgent"}, message: "Invalid Priority: invalid value"},
		{
			name:    "temperature out of range",
			body:    map[string]any{"type": "analysis", "prompt": "x", "config": map[string]any{"temperature": 3}},
			message: "Invalid Config.Temperature: out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/ai/tasks", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.message, body.Error)
			assert.NotEmpty(t, body.TraceID)
			assert.Equal(t, body.TraceID, rec.Header().Get(middleware.TraceHeader))
		})
	}
}

func TestSubmitTask_NotInitialized(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), false)

	rec := srv.do(t, http.MethodPost, "/api/ai/tasks", map[string]any{"type": "analysis", "prompt": "x"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Scheduler is starting up", decodeError(t, rec).Error)
}

func TestSubmitBatch(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	rec := srv.do(t, http.MethodPost, "/api/ai/tasks/batch", map[string]any{
		"tasks": []map[string]any{
			{"type": "recognition", "prompt": "card photo 1"},
			{"type": "prediction", "prompt": "next month price", "priority": "critical"},
		},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	ids := decode[SubmitBatchResponse](t, rec).IDs
	require.Len(t, ids, 2)

	for _, id := range ids {
		rec := srv.do(t, http.MethodGet, "/api/ai/tasks/"+id+"/result?wait=2s", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, task.TaskStatusCompleted, decode[task.Task](t, rec).Status)
	}
}

func TestSubmitBatch_Validation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	rec := srv.do(t, http.MethodPost, "/api/ai/tasks/batch", map[string]any{"tasks": []any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Tasks: too short", decodeError(t, rec).Error)

	rec = srv.do(t, http.MethodPost, "/api/ai/tasks/batch", map[string]any{
		"tasks": []map[string]any{
			{"type": "analysis", "prompt": "ok"},
			{"type": "analysis"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Tasks[1].Prompt: required field", decodeError(t, rec).Error)
	assert.Empty(t, srv.scheduler.GetQueuedTasks(), "a rejected batch enqueues nothing")
}

func TestSubmitBatch_QueueFull(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true, func(c *task.SchedulerConfig) {
		c.MaxQueueSize = 1
	})

	rec := srv.do(t, http.MethodPost, "/api/ai/tasks/batch", map[string]any{
		"tasks": []map[string]any{
			{"type": "analysis", "prompt": "a"},
			{"type": "analysis", "prompt": "b"},
		},
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Task queue is full, retry later", decodeError(t, rec).Error)
}

func TestGetTask_NotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	for _, path := range []string{"/api/ai/tasks/missing", "/api/ai/tasks/missing/result", "/api/ai/tasks/missing/result?wait=1s"} {
		rec := srv.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Task not found", decodeError(t, rec).Error, path)
	}
}

func TestGetTaskResult_Pending(t *testing.T) {
	t.Parallel()

	g := newGate()
	srv := newTestServer(t, g.executor(), true)
	defer g.open()

	accepted := decode[SubmitTaskResponse](t, srv.do(t, http.MethodPost, "/api/ai/tasks",
		map[string]any{"type": "generation", "prompt": "describe"}))

	rec := srv.do(t, http.MethodGet, "/api/ai/tasks/"+accepted.ID+"/result", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/ai/tasks/"+accepted.ID+"/result?wait=20ms", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, decode[task.Task](t, rec).Status.IsTerminal())

	rec = srv.do(t, http.MethodGet, "/api/ai/tasks/"+accepted.ID+"/result?wait=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTaskResult_FailedTaskIsOK(t *testing.T) {
	t.Parallel()

	exec := task.NewMockExecutor()
	exec.ExecuteFn = func(_ context.Context, _ string, _ task.RequestConfig) (*task.Response, error) {
		return &task.Response{Success: false, Error: "model overloaded"}, nil
	}
	srv := newTestServer(t, exec, true)

	accepted := decode[SubmitTaskResponse](t, srv.do(t, http.MethodPost, "/api/ai/tasks",
		map[string]any{"type": "analysis", "prompt": "x"}))

	rec := srv.do(t, http.MethodGet, "/api/ai/tasks/"+accepted.ID+"/result?wait=2s", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decode[task.Task](t, rec)
	assert.Equal(t, task.TaskStatusFailed, failed.Status)
	assert.Equal(t, "model overloaded", failed.Error)
}

func TestCancelTask(t *testing.T) {
	t.Parallel()

	g := newGate()
	srv := newTestServer(t, g.executor(), true, func(c *task.SchedulerConfig) {
		c.MaxConcurrent = 1
	})
	defer g.open()

	running := decode[SubmitTaskResponse](t, srv.do(t, http.MethodPost, "/api/ai/tasks",
		map[string]any{"type": "analysis", "prompt": "first"}))
	require.Eventually(t, func() bool { return len(srv.scheduler.GetActiveTasks()) == 1 },
		time.Second, 5*time.Millisecond)

	pending := decode[SubmitTaskResponse](t, srv.do(t, http.MethodPost, "/api/ai/tasks",
		map[string]any{"type": "analysis", "prompt": "second"}))

	queued := decode[[]task.Task](t, srv.do(t, http.MethodGet, "/api/ai/tasks/queued", nil))
	require.Len(t, queued, 1)
	assert.Equal(t, pending.ID, queued[0].ID)

	active := decode[[]task.Task](t, srv.do(t, http.MethodGet, "/api/ai/tasks/active", nil))
	require.Len(t, active, 1)
	assert.Equal(t, running.ID, active[0].ID)

	rec := srv.do(t, http.MethodDelete, "/api/ai/tasks/"+pending.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, task.TaskStatusCancelled, decode[SubmitTaskResponse](t, rec).Status)

	rec = srv.do(t, http.MethodDelete, "/api/ai/tasks/"+pending.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/api/ai/tasks/"+running.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "an active task cannot be cancelled")

	rec = srv.do(t, http.MethodDelete, "/api/ai/tasks/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	rec := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	health := decode[task.Health](t, srv.do(t, http.MethodGet, "/api/ai/health", nil))
	assert.Equal(t, task.HealthExcellent, health.Tier)
	assert.Equal(t, 1, health.ProvidersOnline)
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, task.NewMockExecutor(), true)

	for _, path := range []string{"/api/ai/tasks/active", "/api/ai/tasks/queued", "/api/ai/monitor/history", "/api/ai/monitor/alerts"} {
		rec := srv.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, "[]", rec.Body.String(), path)
	}
}
