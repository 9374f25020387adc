package task

import "time"

// unknownKey buckets rollups when neither response nor config names a provider or model.
const unknownKey = "unknown"

// UsageStats is a per-provider or per-model rollup.
type UsageStats struct {
	Requests            int64   `json:"requests"`
	Successes           int64   `json:"successes"`
	Failures            int64   `json:"failures"`
	Cost                float64 `json:"cost"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
}

func (u *UsageStats) recordSuccess(cost, latencyMs float64) {
	u.Requests++
	u.Successes++
	u.Cost += cost
	u.AverageResponseTime = runningMean(u.AverageResponseTime, latencyMs, u.Successes)
	u.SuccessRate = float64(u.Successes) / float64(u.Requests)
}

func (u *UsageStats) recordFailure() {
	u.Requests++
	u.Failures++
	u.SuccessRate = float64(u.Successes) / float64(u.Requests)
}

// Statistics are cumulative counters over every task that reached completed
// or failed. Cancelled tasks are not counted.
type Statistics struct {
	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`

	// AverageResponseTime is the mean latency in milliseconds of successful requests.
	AverageResponseTime float64 `json:"average_response_time_ms"`

	TotalCost   float64 `json:"total_cost"`
	MonthlyCost float64 `json:"monthly_cost"`
	// CostMonth is the UTC calendar month (YYYY-MM) MonthlyCost accumulates for.
	CostMonth string `json:"cost_month"`

	Providers map[string]UsageStats `json:"providers"`
	Models    map[string]UsageStats `json:"models"`

	LastUpdated time.Time `json:"last_updated"`
}

func newStatistics(now time.Time) Statistics {
	return Statistics{
		CostMonth:   costMonth(now),
		Providers:   make(map[string]UsageStats),
		Models:      make(map[string]UsageStats),
		LastUpdated: now,
	}
}

// SuccessRate is the fraction of finished requests that succeeded, 1 when none finished.
func (s Statistics) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 1
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests)
}

// CostPerRequest is the mean cost of successful requests.
func (s Statistics) CostPerRequest() float64 {
	if s.SuccessfulRequests == 0 {
		return 0
	}
	return s.TotalCost / float64(s.SuccessfulRequests)
}

func (s *Statistics) rollMonth(now time.Time) {
	if m := costMonth(now); m != s.CostMonth {
		s.CostMonth = m
		s.MonthlyCost = 0
	}
}

func (s *Statistics) recordSuccess(provider, model string, cost float64, latency time.Duration, now time.Time) {
	s.rollMonth(now)
	latencyMs := float64(latency) / float64(time.Millisecond)

	s.TotalRequests++
	s.SuccessfulRequests++
	s.AverageResponseTime = runningMean(s.AverageResponseTime, latencyMs, s.SuccessfulRequests)
	s.TotalCost += cost
	s.MonthlyCost += cost

	p := s.Providers[rollupKey(provider)]
	p.recordSuccess(cost, latencyMs)
	s.Providers[rollupKey(provider)] = p

	m := s.Models[rollupKey(model)]
	m.recordSuccess(cost, latencyMs)
	s.Models[rollupKey(model)] = m

	s.LastUpdated = now
}

func (s *Statistics) recordFailure(provider, model string, now time.Time) {
	s.rollMonth(now)

	s.TotalRequests++
	s.FailedRequests++

	p := s.Providers[rollupKey(provider)]
	p.recordFailure()
	s.Providers[rollupKey(provider)] = p

	m := s.Models[rollupKey(model)]
	m.recordFailure()
	s.Models[rollupKey(model)] = m

	s.LastUpdated = now
}

func (s Statistics) clone() Statistics {
	c := s
	c.Providers = make(map[string]UsageStats, len(s.Providers))
	for k, v := range s.Providers {
		c.Providers[k] = v
	}
	c.Models = make(map[string]UsageStats, len(s.Models))
	for k, v := range s.Models {
		c.Models[k] = v
	}
	return c
}

// runningMean folds sample into a mean over n values: (old*(n-1) + sample) / n.
func runningMean(old, sample float64, n int64) float64 {
	if n <= 1 {
		return sample
	}
	return (old*float64(n-1) + sample) / float64(n)
}

func costMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func rollupKey(name string) string {
	if name == "" {
		return unknownKey
	}
	return name
}
