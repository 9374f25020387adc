package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		online, total int
		want          HealthTier
	}{
		{0, 0, HealthPoor},
		{10, 10, HealthExcellent},
		{9, 10, HealthExcellent},
		{8, 10, HealthGood},
		{7, 10, HealthGood},
		{6, 10, HealthFair},
		{1, 2, HealthFair},
		{4, 10, HealthPoor},
		{0, 3, HealthPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tierFor(tt.online, tt.total), "%d/%d", tt.online, tt.total)
	}
}

func TestComputeHealth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	stats := newStatistics(now)
	for i := 0; i < 4; i++ {
		stats.recordFailure("flaky", "", now)
	}
	stats.recordSuccess("flaky", "", 0, time.Second, now)
	stats.recordSuccess("steady", "", 0, time.Second, now)

	gauges := SystemGauges{CPUUsage: 12, MemoryUsage: 40, Goroutines: 8}
	h := computeHealth(map[string]bool{
		"steady":  true,
		"flaky":   true,
		"offline": false,
	}, stats, gauges, now)

	assert.Equal(t, 2, h.ProvidersOnline)
	assert.Equal(t, 3, h.ProvidersTotal)
	assert.Equal(t, HealthFair, h.Tier)
	assert.Equal(t, gauges, h.System)
	assert.Equal(t, now, h.UpdatedAt)

	require.Len(t, h.Providers, 3)
	byName := map[string]ProviderHealth{}
	for _, p := range h.Providers {
		byName[p.Name] = p
	}
	assert.Equal(t, ProviderDegraded, byName["flaky"].State)
	assert.InDelta(t, 0.2, byName["flaky"].SuccessRate, 1e-9)
	assert.Equal(t, ProviderOnline, byName["steady"].State)
	assert.Equal(t, ProviderOffline, byName["offline"].State)
}

func TestComputeHealth_FewRequestsNotDegraded(t *testing.T) {
	t.Parallel()

	now := time.Now()
	stats := newStatistics(now)
	for i := 0; i < degradedMinRequests-1; i++ {
		stats.recordFailure("new", "", now)
	}

	h := computeHealth(map[string]bool{"new": true}, stats, SystemGauges{}, now)

	require.Len(t, h.Providers, 1)
	assert.Equal(t, ProviderOnline, h.Providers[0].State)
	assert.Equal(t, HealthExcellent, h.Tier)
}

func TestRuntimeSampler(t *testing.T) {
	t.Parallel()

	s := NewRuntimeSampler()
	first := s.Sample()
	second := s.Sample()

	assert.Zero(t, first.CPUUsage)
	assert.Positive(t, second.Goroutines)
	assert.GreaterOrEqual(t, second.CPUUsage, 0.0)
	assert.LessOrEqual(t, second.CPUUsage, 100.0)
	assert.Greater(t, second.MemoryUsage, 0.0)
	assert.LessOrEqual(t, second.MemoryUsage, 100.0)
}
