package monitor

import (
	"time"

	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

// TrendPoint is one value of a dashboard series.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Trends holds the short series shown on the dashboard.
type Trends struct {
	ResponseTime   []TrendPoint `json:"response_time"`
	SuccessRate    []TrendPoint `json:"success_rate"`
	CostPerRequest []TrendPoint `json:"cost_per_request"`
}

// Dashboard is a point-in-time overview.
type Dashboard struct {
	Metrics     Metrics     `json:"metrics"`
	Alerts      []Alert     `json:"alerts"`
	ActiveTasks []task.Task `json:"active_tasks"`
	Health      task.Health `json:"health"`
	Trends      Trends      `json:"trends"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// GetDashboard composes the latest sample, the newest unacknowledged alerts,
// the scheduler's active tasks and health, and trend series over the last
// TrendPoints samples.
func (m *Monitor) GetDashboard() Dashboard {
	latest, _ := m.GetMetrics()
	history := m.GetPerformanceHistory()
	if len(history) > m.config.TrendPoints {
		history = history[len(history)-m.config.TrendPoints:]
	}

	trends := Trends{
		ResponseTime:   make([]TrendPoint, len(history)),
		SuccessRate:    make([]TrendPoint, len(history)),
		CostPerRequest: make([]TrendPoint, len(history)),
	}
	for i, s := range history {
		trends.ResponseTime[i] = TrendPoint{Timestamp: s.Timestamp, Value: s.AverageResponseTime}
		trends.SuccessRate[i] = TrendPoint{Timestamp: s.Timestamp, Value: s.SuccessRate}
		trends.CostPerRequest[i] = TrendPoint{Timestamp: s.Timestamp, Value: s.CostPerRequest}
	}

	return Dashboard{
		Metrics:     latest,
		Alerts:      m.unacknowledgedAlerts(m.config.DashboardAlerts),
		ActiveTasks: m.source.GetActiveTasks(),
		Health:      m.source.GetHealth(),
		Trends:      trends,
		GeneratedAt: m.now(),
	}
}
