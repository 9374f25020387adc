package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/star64ccs/CardStrategy-sub008/internal/api/shared"
	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/store"
)

// DefaultArchiveLimit bounds archived alert listings without an explicit limit.
const DefaultArchiveLimit = 100

// Monitor is the monitor surface the monitor handler needs.
type Monitor interface {
	GetMetrics() (monitor.Metrics, bool)
	GetPerformanceHistory() []monitor.Metrics
	GetAlerts() []monitor.Alert
	GetAlert(id string) (monitor.Alert, error)
	AcknowledgeAlert(id, by string) bool
	GenerateReport(ctx context.Context, typ monitor.ReportType, start, end *time.Time) (*monitor.Report, error)
	GetDashboard() monitor.Dashboard
}

// Archive is the optional persistent copy of alerts and reports.
type Archive interface {
	store.AlertStore
	store.ReportStore
}

// AcknowledgeRequest is the body of POST /api/ai/monitor/alerts/{id}/ack.
type AcknowledgeRequest struct {
	AcknowledgedBy string `json:"acknowledged_by" validate:"required,max=200"`
}

// MonitorHandler serves metrics, alerts, reports and the dashboard.
type MonitorHandler struct {
	monitor Monitor
	archive Archive
}

// NewMonitorHandler creates a MonitorHandler. archive may be nil, in which
// case the archive routes are not mounted.
func NewMonitorHandler(m Monitor, archive Archive) *MonitorHandler {
	return &MonitorHandler{monitor: m, archive: archive}
}

// Mount registers the monitor routes on r.
func (h *MonitorHandler) Mount(r chi.Router) {
	r.Route("/monitor", func(r chi.Router) {
		r.Get("/metrics", h.GetMetrics)
		r.Get("/history", h.GetHistory)
		r.Get("/alerts", h.ListAlerts)
		r.Post("/alerts/{id}/ack", h.AcknowledgeAlert)
		r.Get("/reports/{type}", h.GenerateReport)
		r.Get("/dashboard", h.GetDashboard)

		if h.archive != nil {
			r.Get("/archive/alerts", h.ListArchivedAlerts)
			r.Get("/archive/reports/{id}", h.GetArchivedReport)
		}
	})
}

// GetMetrics handles GET /api/ai/monitor/metrics.
func (h *MonitorHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	m, ok := h.monitor.GetMetrics()
	if !ok {
		shared.RespondWithError(w, r, http.StatusNotFound, "No metrics collected yet")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, m)
}

// GetHistory handles GET /api/ai/monitor/history?limit=N, returning the
// newest N samples oldest first.
func (h *MonitorHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), 0)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}

	history := h.monitor.GetPerformanceHistory()
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	shared.RespondWithJSON(w, r, http.StatusOK, nonNil(history))
}

// ListAlerts handles GET /api/ai/monitor/alerts. Optional filters:
// severity=<level> and unacknowledged=true.
func (h *MonitorHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	severity := monitor.Severity(q.Get("severity"))
	onlyOpen := q.Get("unacknowledged") == "true"

	alerts := make([]monitor.Alert, 0)
	for _, a := range h.monitor.GetAlerts() {
		if severity != "" && a.Severity != severity {
			continue
		}
		if onlyOpen && a.Acknowledged {
			continue
		}
		alerts = append(alerts, a)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, alerts)
}

// AcknowledgeAlert handles POST /api/ai/monitor/alerts/{id}/ack.
func (h *MonitorHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AcknowledgeRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if !h.monitor.AcknowledgeAlert(id, req.AcknowledgedBy) {
		if _, err := h.monitor.GetAlert(id); err != nil {
			respondWithMappedError(w, r, err)
			return
		}
		shared.RespondWithError(w, r, http.StatusConflict, "Alert already acknowledged")
		return
	}

	alert, err := h.monitor.GetAlert(id)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, alert)
}

// GenerateReport handles GET /api/ai/monitor/reports/{type}. Custom reports
// accept RFC 3339 start and end query parameters.
func (h *MonitorHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	typ := monitor.ReportType(chi.URLParam(r, "type"))

	start, err := parseTime(r.URL.Query().Get("start"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid start time")
		return
	}
	end, err := parseTime(r.URL.Query().Get("end"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid end time")
		return
	}

	report, err := h.monitor.GenerateReport(r.Context(), typ, start, end)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// GetDashboard handles GET /api/ai/monitor/dashboard.
func (h *MonitorHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.monitor.GetDashboard())
}

// ListArchivedAlerts handles GET /api/ai/monitor/archive/alerts?since=&limit=.
// since defaults to 24 hours ago.
func (h *MonitorHandler) ListArchivedAlerts(w http.ResponseWriter, r *http.Request) {
	since, err := parseTime(r.URL.Query().Get("since"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid since time")
		return
	}
	if since == nil {
		t := time.Now().Add(-24 * time.Hour)
		since = &t
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), DefaultArchiveLimit)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}

	alerts, err := h.archive.ListAlerts(r.Context(), *since, limit)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, nonNil(alerts))
}

// GetArchivedReport handles GET /api/ai/monitor/archive/reports/{id}.
func (h *MonitorHandler) GetArchivedReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.archive.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseLimit(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
