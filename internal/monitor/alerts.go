package monitor

import "fmt"

// Fixed alert thresholds. The budget threshold is configurable.
const (
	successRateMedium    = 0.90
	successRateHigh      = 0.80
	responseTimeMediumMs = 5000.0
	responseTimeHighMs   = 10000.0
	budgetCritical       = 0.95
	queueMedium          = 50
	queueHigh            = 100
	resourceMedium       = 80.0
)

// EvaluateThresholds returns one AlertData per threshold m breaches.
// budgetThreshold is the utilization ratio above which a cost alert fires.
func EvaluateThresholds(m Metrics, budgetThreshold float64) []AlertData {
	var out []AlertData

	switch {
	case m.SuccessRate < successRateHigh:
		out = append(out, successRateAlert(m, SeverityHigh, successRateHigh))
	case m.SuccessRate < successRateMedium:
		out = append(out, successRateAlert(m, SeverityMedium, successRateMedium))
	}

	switch {
	case m.AverageResponseTime > responseTimeHighMs:
		out = append(out, responseTimeAlert(m, SeverityHigh, responseTimeHighMs))
	case m.AverageResponseTime > responseTimeMediumMs:
		out = append(out, responseTimeAlert(m, SeverityMedium, responseTimeMediumMs))
	}

	switch {
	case m.BudgetUtilization > budgetCritical:
		out = append(out, budgetAlert(m, SeverityCritical, budgetCritical))
	case m.BudgetUtilization > budgetThreshold:
		out = append(out, budgetAlert(m, SeverityHigh, budgetThreshold))
	}

	switch {
	case m.QueueLength > queueHigh:
		out = append(out, queueAlert(m, SeverityHigh, queueHigh))
	case m.QueueLength > queueMedium:
		out = append(out, queueAlert(m, SeverityMedium, queueMedium))
	}

	if m.CPUUsage > resourceMedium {
		out = append(out, AlertData{
			Severity:  SeverityMedium,
			Title:     "High CPU usage",
			Message:   fmt.Sprintf("CPU usage is %.1f%%", m.CPUUsage),
			Metric:    "cpu_usage",
			Value:     m.CPUUsage,
			Threshold: resourceMedium,
		})
	}
	if m.MemoryUsage > resourceMedium {
		out = append(out, AlertData{
			Severity:  SeverityMedium,
			Title:     "High memory usage",
			Message:   fmt.Sprintf("Memory usage is %.1f%%", m.MemoryUsage),
			Metric:    "memory_usage",
			Value:     m.MemoryUsage,
			Threshold: resourceMedium,
		})
	}

	return out
}

func successRateAlert(m Metrics, sev Severity, threshold float64) AlertData {
	return AlertData{
		Severity:  sev,
		Title:     "Low success rate",
		Message:   fmt.Sprintf("AI task success rate is %.1f%%, below %.0f%%", m.SuccessRate*100, threshold*100),
		Metric:    "success_rate",
		Value:     m.SuccessRate,
		Threshold: threshold,
	}
}

func responseTimeAlert(m Metrics, sev Severity, threshold float64) AlertData {
	return AlertData{
		Severity:  sev,
		Title:     "High response time",
		Message:   fmt.Sprintf("Average response time is %.0fms, above %.0fms", m.AverageResponseTime, threshold),
		Metric:    "average_response_time_ms",
		Value:     m.AverageResponseTime,
		Threshold: threshold,
	}
}

func budgetAlert(m Metrics, sev Severity, threshold float64) AlertData {
	return AlertData{
		Severity:  sev,
		Title:     "Monthly budget threshold exceeded",
		Message:   fmt.Sprintf("Monthly cost %.2f is %.1f%% of budget", m.MonthlyCost, m.BudgetUtilization*100),
		Metric:    "budget_utilization",
		Value:     m.BudgetUtilization,
		Threshold: threshold,
	}
}

func queueAlert(m Metrics, sev Severity, threshold int) AlertData {
	return AlertData{
		Severity:  sev,
		Title:     "Task queue backlog",
		Message:   fmt.Sprintf("%d tasks are waiting, above %d", m.QueueLength, threshold),
		Metric:    "queue_length",
		Value:     float64(m.QueueLength),
		Threshold: float64(threshold),
	}
}
