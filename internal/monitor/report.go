package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
)

// ReportType selects the report window.
type ReportType string

// Report types.
const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportCustom  ReportType = "custom"
)

var reportLookback = map[ReportType]time.Duration{
	ReportDaily:   24 * time.Hour,
	ReportWeekly:  7 * 24 * time.Hour,
	ReportMonthly: 30 * 24 * time.Hour,
}

const (
	recSuccessRate    = 0.95
	recResponseTimeMs = 3000.0
	recBudget         = 0.8
	recQueueLength    = 20.0
)

// ReportSummary holds window averages over the samples in a report.
type ReportSummary struct {
	AverageResponseTime float64 `json:"average_response_time_ms"`
	SuccessRate         float64 `json:"success_rate"`
	CostPerRequest      float64 `json:"cost_per_request"`
	RequestsPerSecond   float64 `json:"requests_per_second"`
	QueueLength         float64 `json:"queue_length"`

	// Requests and Cost are the growth of the cumulative totals across the window.
	Requests int64   `json:"requests"`
	Cost     float64 `json:"cost"`
}

// Report summarizes performance over a time window.
type Report struct {
	ID               string           `json:"id"`
	Type             ReportType       `json:"type"`
	Start            time.Time        `json:"start"`
	End              time.Time        `json:"end"`
	GeneratedAt      time.Time        `json:"generated_at"`
	Samples          int              `json:"samples"`
	Summary          ReportSummary    `json:"summary"`
	AlertsBySeverity map[Severity]int `json:"alerts_by_severity"`
	Alerts           []Alert          `json:"alerts"`
	Recommendations  []string         `json:"recommendations"`
}

// GenerateReport averages the samples collected in the window for typ.
// Daily, weekly and monthly windows end now. Custom windows use start and
// end, defaulting to the last 24 hours.
func (m *Monitor) GenerateReport(ctx context.Context, typ ReportType, start, end *time.Time) (*Report, error) {
	now := m.now()
	windowStart, windowEnd, err := resolveWindow(typ, start, end, now)
	if err != nil {
		return nil, err
	}

	var samples []Metrics
	for _, s := range m.GetPerformanceHistory() {
		if !s.Timestamp.Before(windowStart) && !s.Timestamp.After(windowEnd) {
			samples = append(samples, s)
		}
	}

	alerts := m.alertsBetween(windowStart, windowEnd)
	bySeverity := make(map[Severity]int)
	for _, a := range alerts {
		bySeverity[a.Severity]++
	}

	report := &Report{
		ID:               uuid.NewString(),
		Type:             typ,
		Start:            windowStart,
		End:              windowEnd,
		GeneratedAt:      now,
		Samples:          len(samples),
		Summary:          summarize(samples),
		AlertsBySeverity: bySeverity,
		Alerts:           alerts,
		Recommendations:  recommend(samples),
	}

	if m.sink != nil {
		if err := m.sink.SaveReport(ctx, *report); err != nil {
			m.logger.Error("failed to archive report",
				"report_id", report.ID,
				"error", redact.Error(err))
		}
	}

	m.logger.Info("report generated",
		"report_id", report.ID,
		"type", typ,
		"samples", report.Samples,
		"alerts", len(alerts))
	return report, nil
}

func resolveWindow(typ ReportType, start, end *time.Time, now time.Time) (time.Time, time.Time, error) {
	if lookback, ok := reportLookback[typ]; ok {
		return now.Add(-lookback), now, nil
	}
	if typ != ReportCustom {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReportType, typ)
	}

	windowEnd := now
	if end != nil {
		windowEnd = *end
	}
	windowStart := now.Add(-reportLookback[ReportDaily])
	if start != nil {
		windowStart = *start
	}
	if windowStart.After(windowEnd) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidReportWindow, windowStart.Format(time.RFC3339), windowEnd.Format(time.RFC3339))
	}
	return windowStart, windowEnd, nil
}

func summarize(samples []Metrics) ReportSummary {
	if len(samples) == 0 {
		return ReportSummary{}
	}

	var sum ReportSummary
	for _, s := range samples {
		sum.AverageResponseTime += s.AverageResponseTime
		sum.SuccessRate += s.SuccessRate
		sum.CostPerRequest += s.CostPerRequest
		sum.RequestsPerSecond += s.RequestsPerSecond
		sum.QueueLength += float64(s.QueueLength)
	}
	n := float64(len(samples))
	first, last := samples[0], samples[len(samples)-1]

	return ReportSummary{
		AverageResponseTime: sum.AverageResponseTime / n,
		SuccessRate:         sum.SuccessRate / n,
		CostPerRequest:      sum.CostPerRequest / n,
		RequestsPerSecond:   sum.RequestsPerSecond / n,
		QueueLength:         sum.QueueLength / n,
		Requests:            last.TotalRequests - first.TotalRequests,
		Cost:                last.TotalCost - first.TotalCost,
	}
}

func recommend(samples []Metrics) []string {
	if len(samples) == 0 {
		return []string{"No metrics were collected in this window."}
	}

	summary := summarize(samples)
	latest := samples[len(samples)-1]
	var recs []string

	if summary.SuccessRate < recSuccessRate {
		recs = append(recs, "Success rate is below 95%; review provider errors and consider routing to a healthier provider.")
	}
	if summary.AverageResponseTime > recResponseTimeMs {
		recs = append(recs, "Average response time exceeds 3s; consider a faster model or lower token limits.")
	}
	if latest.CostTrend == TrendIncreasing {
		recs = append(recs, "Cost per request is trending up; review model selection and prompt size.")
	}
	if latest.BudgetUtilization > recBudget {
		recs = append(recs, "Monthly spend is above 80% of budget; throttle low-priority work or raise the budget.")
	}
	if summary.QueueLength > recQueueLength {
		recs = append(recs, "Tasks are queuing; consider raising the concurrency limit.")
	}
	if len(recs) == 0 {
		recs = append(recs, "System is operating normally.")
	}
	return recs
}
