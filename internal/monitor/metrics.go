package monitor

import (
	"time"

	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

const (
	rateWindow        = 60 * time.Second
	trendWindow       = 5
	trendChangeMargin = 0.10
)

// buildMetrics derives a sample from scheduler snapshots and the history
// collected so far (oldest first, not including the new sample).
func buildMetrics(
	stats task.Statistics,
	health task.Health,
	active, queued int,
	history []Metrics,
	monthlyBudget float64,
	now time.Time,
) Metrics {
	m := Metrics{
		Timestamp:           now,
		TotalRequests:       stats.TotalRequests,
		SuccessfulRequests:  stats.SuccessfulRequests,
		FailedRequests:      stats.FailedRequests,
		SuccessRate:         stats.SuccessRate(),
		AverageResponseTime: stats.AverageResponseTime,
		RequestsPerSecond:   requestsPerSecond(history, now),
		TotalCost:           stats.TotalCost,
		MonthlyCost:         stats.MonthlyCost,
		CostPerRequest:      stats.CostPerRequest(),
		ActiveTasks:         active,
		QueueLength:         queued,
		HealthTier:          health.Tier,
		ProvidersOnline:     health.ProvidersOnline,
		ProvidersTotal:      health.ProvidersTotal,
		CPUUsage:            health.System.CPUUsage,
		MemoryUsage:         health.System.MemoryUsage,
	}
	if monthlyBudget > 0 {
		m.BudgetUtilization = stats.MonthlyCost / monthlyBudget
	}

	costs := make([]float64, 0, len(history)+1)
	for _, h := range history {
		costs = append(costs, h.CostPerRequest)
	}
	m.CostTrend = costTrend(append(costs, m.CostPerRequest))
	return m
}

// requestsPerSecond counts history samples in the trailing minute and spreads
// them over that minute. It is a coarse windowed estimate.
func requestsPerSecond(history []Metrics, now time.Time) float64 {
	cutoff := now.Add(-rateWindow)
	n := 0
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].Timestamp.After(cutoff) {
			break
		}
		n++
	}
	return float64(n) / rateWindow.Seconds()
}

// costTrend compares the mean of the last five values with the five before them.
func costTrend(series []float64) Trend {
	if len(series) < 2*trendWindow {
		return TrendStable
	}
	recent := mean(series[len(series)-trendWindow:])
	previous := mean(series[len(series)-2*trendWindow : len(series)-trendWindow])

	if previous == 0 {
		if recent > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}

	change := (recent - previous) / previous
	switch {
	case change > trendChangeMargin:
		return TrendIncreasing
	case change < -trendChangeMargin:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
