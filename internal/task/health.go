package task

import (
	"sort"
	"time"
)

// HealthTier is a coarse summary of provider availability.
type HealthTier string

// Health tiers, best first.
const (
	HealthExcellent HealthTier = "excellent"
	HealthGood      HealthTier = "good"
	HealthFair      HealthTier = "fair"
	HealthPoor      HealthTier = "poor"
)

// ProviderState is the availability of a single provider.
type ProviderState string

// Provider states.
const (
	ProviderOnline   ProviderState = "online"
	ProviderOffline  ProviderState = "offline"
	ProviderDegraded ProviderState = "degraded"
)

const (
	degradedSuccessRate  = 0.8
	degradedMinRequests  = 5
	excellentOnlineRatio = 0.9
	goodOnlineRatio      = 0.7
	fairOnlineRatio      = 0.5
)

// ProviderHealth describes one provider in a Health snapshot.
type ProviderHealth struct {
	Name        string        `json:"name"`
	State       ProviderState `json:"state"`
	Requests    int64         `json:"requests"`
	SuccessRate float64       `json:"success_rate"`
}

// Health is a point-in-time view of the scheduler.
type Health struct {
	Tier            HealthTier       `json:"tier"`
	Providers       []ProviderHealth `json:"providers"`
	ProvidersOnline int              `json:"providers_online"`
	ProvidersTotal  int              `json:"providers_total"`
	System          SystemGauges     `json:"system"`
	ActiveTasks     int              `json:"active_tasks"`
	QueueLength     int              `json:"queue_length"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (h Health) clone() Health {
	c := h
	c.Providers = make([]ProviderHealth, len(h.Providers))
	copy(c.Providers, h.Providers)
	return c
}

// computeHealth derives a Health snapshot from provider status flags and
// statistics. Degraded providers count as online.
func computeHealth(statuses map[string]bool, stats Statistics, gauges SystemGauges, now time.Time) Health {
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	h := Health{
		Providers:      make([]ProviderHealth, 0, len(names)),
		ProvidersTotal: len(names),
		System:         gauges,
		UpdatedAt:      now,
	}

	for _, name := range names {
		usage := stats.Providers[name]
		ph := ProviderHealth{
			Name:        name,
			State:       ProviderOffline,
			Requests:    usage.Requests,
			SuccessRate: usage.SuccessRate,
		}
		if statuses[name] {
			h.ProvidersOnline++
			ph.State = ProviderOnline
			if usage.Requests >= degradedMinRequests && usage.SuccessRate < degradedSuccessRate {
				ph.State = ProviderDegraded
			}
		}
		h.Providers = append(h.Providers, ph)
	}

	h.Tier = tierFor(h.ProvidersOnline, h.ProvidersTotal)
	return h
}

func tierFor(online, total int) HealthTier {
	if total == 0 {
		return HealthPoor
	}
	ratio := float64(online) / float64(total)
	switch {
	case ratio >= excellentOnlineRatio:
		return HealthExcellent
	case ratio >= goodOnlineRatio:
		return HealthGood
	case ratio >= fairOnlineRatio:
		return HealthFair
	default:
		return HealthPoor
	}
}
