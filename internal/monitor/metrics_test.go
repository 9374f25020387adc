package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

func TestCostTrend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		series []float64
		want   Trend
	}{
		{"too short", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, TrendStable},
		{"increasing", []float64{1, 1, 1, 1, 1, 1.2, 1.2, 1.2, 1.2, 1.2}, TrendIncreasing},
		{"decreasing", []float64{1, 1, 1, 1, 1, 0.8, 0.8, 0.8, 0.8, 0.8}, TrendDecreasing},
		{"within margin", []float64{1, 1, 1, 1, 1, 1.05, 1.05, 1.05, 1.05, 1.05}, TrendStable},
		{"from zero", []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0.5}, TrendIncreasing},
		{"all zero", make([]float64, 12), TrendStable},
		{"only last ten count", []float64{50, 50, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, TrendStable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, costTrend(tt.series), tt.name)
	}
}

func TestRequestsPerSecond(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	var history []Metrics
	for _, ago := range []time.Duration{120 * time.Second, 61 * time.Second, 60 * time.Second, 45 * time.Second, 30 * time.Second, 15 * time.Second} {
		history = append(history, Metrics{Timestamp: now.Add(-ago)})
	}

	assert.InDelta(t, 3.0/60.0, requestsPerSecond(history, now), 1e-9)
	assert.Zero(t, requestsPerSecond(nil, now))
}

func TestBuildMetrics(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	stats := task.Statistics{
		TotalRequests:       10,
		SuccessfulRequests:  8,
		FailedRequests:      2,
		AverageResponseTime: 420,
		TotalCost:           4,
		MonthlyCost:         2,
	}
	health := task.Health{
		Tier:            task.HealthGood,
		ProvidersOnline: 3,
		ProvidersTotal:  4,
		System:          task.SystemGauges{CPUUsage: 12, MemoryUsage: 34},
		UpdatedAt:       now,
	}

	m := buildMetrics(stats, health, 2, 7, nil, 10, now)

	assert.Equal(t, now, m.Timestamp)
	assert.InDelta(t, 0.8, m.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, m.CostPerRequest, 1e-9)
	assert.InDelta(t, 0.2, m.BudgetUtilization, 1e-9)
	assert.Equal(t, TrendStable, m.CostTrend)
	assert.Equal(t, 2, m.ActiveTasks)
	assert.Equal(t, 7, m.QueueLength)
	assert.Equal(t, task.HealthGood, m.HealthTier)
	assert.InDelta(t, 34.0, m.MemoryUsage, 1e-9)

	unbudgeted := buildMetrics(stats, health, 0, 0, nil, 0, now)
	assert.Zero(t, unbudgeted.BudgetUtilization)
}
