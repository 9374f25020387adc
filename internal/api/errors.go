package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/provider"
	"github.com/star64ccs/CardStrategy-sub008/internal/store"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, monitor.ErrAlertNotFound),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, monitor.ErrInvalidReportType),
		errors.Is(err, monitor.ErrInvalidReportWindow):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	case errors.Is(err, task.ErrNotInitialized),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err.
func GetSafeErrorMessage(err error) string {
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, monitor.ErrAlertNotFound):
		return "Alert not found"
	case errors.Is(err, provider.ErrUnknownProvider):
		return "Provider not found"
	case errors.Is(err, store.ErrReportNotFound):
		return "Report not found"
	case errors.Is(err, store.ErrNotFound):
		return "Record not found"
	case errors.Is(err, task.ErrInvalidTask):
		return "Invalid task request"
	case errors.Is(err, monitor.ErrInvalidReportType):
		return "Unknown report type"
	case errors.Is(err, monitor.ErrInvalidReportWindow):
		return "Report start must not be after end"
	case errors.Is(err, task.ErrQueueFull):
		return "Task queue is full, retry later"
	case errors.Is(err, task.ErrNotInitialized):
		return "Scheduler is starting up"
	case errors.Is(err, task.ErrQueueClosed):
		return "Scheduler is shutting down"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator output into a short message naming
// the first failing field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
}

// fieldPath drops the root struct name from a validator namespace, so
// "SubmitBatchRequest.Tasks[1].Prompt" becomes "Tasks[1].Prompt".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}
