package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/star64ccs/CardStrategy-sub008/internal/api/shared"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

// MaxResultWait caps the wait query parameter of the result endpoint.
const MaxResultWait = 60 * time.Second

// MaxBatchSize caps the number of tasks in one batch request.
const MaxBatchSize = 100

// TaskScheduler is the scheduler surface the task handler needs.
type TaskScheduler interface {
	Submit(ctx context.Context, req task.SubmitRequest) (*task.Handle, error)
	SubmitBatch(ctx context.Context, reqs []task.SubmitRequest) (*task.BatchHandle, error)
	GetTask(id string) (*task.Task, error)
	AwaitCompletion(ctx context.Context, id string) (*task.Task, error)
	Cancel(id string) bool
	GetActiveTasks() []task.Task
	GetQueuedTasks() []task.Task
	GetStats() task.Statistics
	GetHealth() task.Health
}

// SubmitTaskRequest is the body of POST /api/ai/tasks.
type SubmitTaskRequest struct {
	Type     task.TaskType      `json:"type"     validate:"required,oneof=recognition analysis prediction generation"`
	Prompt   string             `json:"prompt"   validate:"required"`
	Config   task.RequestConfig `json:"config"`
	Priority task.Priority      `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

func (r SubmitTaskRequest) toSubmitRequest() task.SubmitRequest {
	return task.SubmitRequest{
		Type:     r.Type,
		Prompt:   r.Prompt,
		Config:   r.Config,
		Priority: r.Priority,
	}
}

// SubmitBatchRequest is the body of POST /api/ai/tasks/batch.
type SubmitBatchRequest struct {
	Tasks []SubmitTaskRequest `json:"tasks" validate:"required,min=1,max=100,dive"`
}

// SubmitTaskResponse acknowledges an accepted task.
type SubmitTaskResponse struct {
	ID     string          `json:"id"`
	Status task.TaskStatus `json:"status"`
}

// SubmitBatchResponse acknowledges an accepted batch.
type SubmitBatchResponse struct {
	IDs []string `json:"ids"`
}

// TaskHandler serves task submission, lookup and cancellation.
type TaskHandler struct {
	scheduler TaskScheduler
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(scheduler TaskScheduler) *TaskHandler {
	return &TaskHandler{scheduler: scheduler}
}

// Mount registers the task routes on r.
func (h *TaskHandler) Mount(r chi.Router) {
	r.Post("/tasks", h.SubmitTask)
	r.Post("/tasks/batch", h.SubmitBatch)
	r.Get("/tasks/active", h.ListActive)
	r.Get("/tasks/queued", h.ListQueued)
	r.Get("/tasks/{id}", h.GetTask)
	r.Get("/tasks/{id}/result", h.GetTaskResult)
	r.Delete("/tasks/{id}", h.CancelTask)
	r.Get("/stats", h.GetStats)
	r.Get("/health", h.GetHealth)
}

// SubmitTask handles POST /api/ai/tasks.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	handle, err := h.scheduler.Submit(r.Context(), req.toSubmitRequest())
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{
		ID:     handle.ID(),
		Status: task.TaskStatusPending,
	})
}

// SubmitBatch handles POST /api/ai/tasks/batch. The batch is accepted or
// rejected as a whole.
func (h *TaskHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	reqs := make([]task.SubmitRequest, len(req.Tasks))
	for i, t := range req.Tasks {
		reqs[i] = t.toSubmitRequest()
	}

	batch, err := h.scheduler.SubmitBatch(r.Context(), reqs)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitBatchResponse{IDs: batch.IDs()})
}

// GetTask handles GET /api/ai/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.scheduler.GetTask(chi.URLParam(r, "id"))
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// GetTaskResult handles GET /api/ai/tasks/{id}/result. With ?wait=<duration>
// it blocks up to that long for the task to finish. A terminal task is
// returned with 200 whatever its outcome; an unfinished one with 202.
func (h *TaskHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	wait, err := parseWait(r.URL.Query().Get("wait"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid wait duration")
		return
	}

	if wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()

		t, err := h.scheduler.AwaitCompletion(ctx, id)
		var taskErr *task.TaskError
		switch {
		case err == nil, errors.As(err, &taskErr):
			shared.RespondWithJSON(w, r, http.StatusOK, t)
			return
		case !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled):
			respondWithMappedError(w, r, err)
			return
		}
	}

	t, err := h.scheduler.GetTask(id)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if t.Status.IsTerminal() {
		status = http.StatusOK
	}
	shared.RespondWithJSON(w, r, status, t)
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, errors.New("invalid wait")
	}
	if d > MaxResultWait {
		d = MaxResultWait
	}
	return d, nil
}

// CancelTask handles DELETE /api/ai/tasks/{id}. Only pending tasks can be
// cancelled; others answer 409.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.scheduler.Cancel(id) {
		shared.RespondWithJSON(w, r, http.StatusOK, SubmitTaskResponse{
			ID:     id,
			Status: task.TaskStatusCancelled,
		})
		return
	}

	if _, err := h.scheduler.GetTask(id); err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithError(w, r, http.StatusConflict, "Task is no longer pending")
}

// ListActive handles GET /api/ai/tasks/active.
func (h *TaskHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, nonNil(h.scheduler.GetActiveTasks()))
}

// ListQueued handles GET /api/ai/tasks/queued.
func (h *TaskHandler) ListQueued(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, nonNil(h.scheduler.GetQueuedTasks()))
}

// GetStats handles GET /api/ai/stats.
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.scheduler.GetStats())
}

// GetHealth handles GET /api/ai/health.
func (h *TaskHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.scheduler.GetHealth())
}

func respondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
