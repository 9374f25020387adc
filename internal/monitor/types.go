package monitor

import (
	"context"
	"time"

	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

// Source is the read-only view of the scheduler the monitor samples.
type Source interface {
	GetStats() task.Statistics
	GetHealth() task.Health
	GetActiveTasks() []task.Task
	GetQueuedTasks() []task.Task
}

// Trend is the direction of a series.
type Trend string

// Trend values.
const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Metrics is one performance sample.
type Metrics struct {
	Timestamp time.Time `json:"timestamp"`

	TotalRequests      int64   `json:"total_requests"`
	SuccessfulRequests int64   `json:"successful_requests"`
	FailedRequests     int64   `json:"failed_requests"`
	SuccessRate        float64 `json:"success_rate"`

	// AverageResponseTime is in milliseconds.
	AverageResponseTime float64 `json:"average_response_time_ms"`
	RequestsPerSecond   float64 `json:"requests_per_second"`

	TotalCost         float64 `json:"total_cost"`
	MonthlyCost       float64 `json:"monthly_cost"`
	CostPerRequest    float64 `json:"cost_per_request"`
	BudgetUtilization float64 `json:"budget_utilization"`
	CostTrend         Trend   `json:"cost_trend"`

	ActiveTasks int `json:"active_tasks"`
	QueueLength int `json:"queue_length"`

	HealthTier      task.HealthTier `json:"health_tier"`
	ProvidersOnline int             `json:"providers_online"`
	ProvidersTotal  int             `json:"providers_total"`
	CPUUsage        float64         `json:"cpu_usage"`
	MemoryUsage     float64         `json:"memory_usage"`
}

// Severity grades an alert.
type Severity string

// Alert severities, least severe first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertData is the caller-supplied part of an Alert.
type AlertData struct {
	Severity  Severity `json:"severity"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Metric    string   `json:"metric,omitempty"`
	Value     float64  `json:"value,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
}

// Alert is a recorded threshold breach or manually raised notice.
// Only the acknowledgement fields ever change after creation.
type Alert struct {
	ID string `json:"id"`
	AlertData
	CreatedAt      time.Time  `json:"created_at"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

func (a Alert) clone() Alert {
	if a.AcknowledgedAt != nil {
		at := *a.AcknowledgedAt
		a.AcknowledgedAt = &at
	}
	return a
}

// AlertHandler is notified synchronously of every new alert.
type AlertHandler interface {
	HandleAlert(ctx context.Context, alert Alert) error
}

// AlertHandlerFunc adapts a function to AlertHandler.
type AlertHandlerFunc func(ctx context.Context, alert Alert) error

// HandleAlert calls f.
func (f AlertHandlerFunc) HandleAlert(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}

// ReportSink archives generated reports.
type ReportSink interface {
	SaveReport(ctx context.Context, report Report) error
}
