package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
)

// Config holds configuration for the Monitor
type Config struct {
	CollectionInterval time.Duration
	AlertInterval      time.Duration
	HistorySize        int
	MaxAlerts          int
	MonthlyBudget      float64
	CostAlertThreshold float64
	TrendPoints        int
	DashboardAlerts    int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		CollectionInterval: 30 * time.Second,
		AlertInterval:      60 * time.Second,
		HistorySize:        1000,
		MaxAlerts:          1000,
		MonthlyBudget:      1000,
		CostAlertThreshold: 0.8,
		TrendPoints:        20,
		DashboardAlerts:    10,
	}
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now for sample and alert timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithReportSink archives every generated report.
func WithReportSink(sink ReportSink) Option {
	return func(m *Monitor) { m.sink = sink }
}

// Monitor samples a Source and raises alerts from the samples.
type Monitor struct {
	source Source
	config Config
	logger *slog.Logger
	now    func() time.Time
	sink   ReportSink

	lifecycle sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu       sync.RWMutex
	history  []Metrics
	alerts   []Alert
	handlers []AlertHandler
}

// NewMonitor creates a stopped Monitor.
func NewMonitor(source Source, config Config, logger *slog.Logger, opts ...Option) *Monitor {
	defaults := DefaultConfig()
	if config.CollectionInterval <= 0 {
		config.CollectionInterval = defaults.CollectionInterval
	}
	if config.AlertInterval <= 0 {
		config.AlertInterval = defaults.AlertInterval
	}
	if config.HistorySize <= 0 {
		config.HistorySize = defaults.HistorySize
	}
	if config.MaxAlerts <= 0 {
		config.MaxAlerts = defaults.MaxAlerts
	}
	if config.CostAlertThreshold <= 0 {
		config.CostAlertThreshold = defaults.CostAlertThreshold
	}
	if config.TrendPoints <= 0 {
		config.TrendPoints = defaults.TrendPoints
	}
	if config.DashboardAlerts <= 0 {
		config.DashboardAlerts = defaults.DashboardAlerts
	}

	m := &Monitor{
		source: source,
		config: config,
		logger: logger.With("component", "monitor"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterAlertHandler appends a handler. Handlers run in registration order.
func (m *Monitor) RegisterAlertHandler(h AlertHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// StartMonitoring takes a first sample and starts the collection and alert
// loops. It fails only if that first sample cannot be taken. Starting a
// running monitor is a no-op.
func (m *Monitor) StartMonitoring(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.running {
		m.logger.Info("monitoring already running")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.CollectMetrics(); err != nil {
		return fmt.Errorf("initial metrics collection failed: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go m.collectLoop(loopCtx)
	go m.alertLoop(loopCtx)

	m.logger.Info("monitoring started",
		"collection_interval", m.config.CollectionInterval,
		"alert_interval", m.config.AlertInterval)
	return nil
}

// StopMonitoring stops both loops and waits for them. Stopping a stopped
// monitor is a no-op.
func (m *Monitor) StopMonitoring() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if !m.running {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.running = false
	m.logger.Info("monitoring stopped")
}

// IsMonitoring reports whether the loops are running.
func (m *Monitor) IsMonitoring() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.running
}

func (m *Monitor) collectLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.CollectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.CollectMetrics(); err != nil {
				m.logger.Warn("metrics collection failed", "error", err)
			}
		}
	}
}

func (m *Monitor) alertLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.AlertInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvaluateAlerts(ctx)
		}
	}
}

// CollectMetrics takes one sample and appends it to the history, evicting
// the oldest samples beyond HistorySize.
func (m *Monitor) CollectMetrics() (Metrics, error) {
	health := m.source.GetHealth()
	if health.UpdatedAt.IsZero() {
		return Metrics{}, ErrSourceNotReady
	}
	stats := m.source.GetStats()
	active := len(m.source.GetActiveTasks())
	queued := len(m.source.GetQueuedTasks())
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	sample := buildMetrics(stats, health, active, queued, m.history, m.config.MonthlyBudget, now)
	m.history = append(m.history, sample)
	if over := len(m.history) - m.config.HistorySize; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}

	m.logger.Debug("metrics collected",
		"success_rate", sample.SuccessRate,
		"queue_length", sample.QueueLength,
		"monthly_cost", sample.MonthlyCost)
	return sample, nil
}

// EvaluateAlerts checks the latest sample against the thresholds and raises
// one alert per breach. It returns the alerts raised.
func (m *Monitor) EvaluateAlerts(ctx context.Context) []Alert {
	latest, ok := m.GetMetrics()
	if !ok {
		return nil
	}

	breaches := EvaluateThresholds(latest, m.config.CostAlertThreshold)
	raised := make([]Alert, 0, len(breaches))
	for _, data := range breaches {
		raised = append(raised, m.CreateAlert(ctx, data))
	}
	return raised
}

// CreateAlert records an alert and runs every handler synchronously in
// registration order. Handler failures are logged and do not stop the rest.
func (m *Monitor) CreateAlert(ctx context.Context, data AlertData) Alert {
	if data.Severity == "" {
		data.Severity = SeverityMedium
	}
	alert := Alert{
		ID:        uuid.NewString(),
		AlertData: data,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	if over := len(m.alerts) - m.config.MaxAlerts; over > 0 {
		m.alerts = append(m.alerts[:0:0], m.alerts[over:]...)
	}
	handlers := make([]AlertHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	m.logger.Warn("alert raised",
		"alert_id", alert.ID,
		"severity", alert.Severity,
		"title", alert.Title)

	for i, h := range handlers {
		if err := runHandler(ctx, h, alert); err != nil {
			herr := &HandlerError{Index: i, AlertID: alert.ID, Err: err}
			m.logger.Error("alert handler failed",
				"alert_id", alert.ID,
				"handler_index", i,
				"error", redact.Error(herr))
		}
	}
	return alert
}

func runHandler(ctx context.Context, h AlertHandler, alert Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.HandleAlert(ctx, alert)
}

// AcknowledgeAlert marks an unacknowledged alert as acknowledged by by.
// It returns false if the alert is unknown or already acknowledged.
func (m *Monitor) AcknowledgeAlert(id, by string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.alerts {
		if m.alerts[i].ID != id {
			continue
		}
		if m.alerts[i].Acknowledged {
			return false
		}
		now := m.now()
		m.alerts[i].Acknowledged = true
		m.alerts[i].AcknowledgedBy = by
		m.alerts[i].AcknowledgedAt = &now
		return true
	}
	return false
}

// GetAlert returns a copy of the identified alert.
func (m *Monitor) GetAlert(id string) (Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.alerts {
		if a.ID == id {
			return a.clone(), nil
		}
	}
	return Alert{}, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

// GetAlerts returns copies of all retained alerts, oldest first.
func (m *Monitor) GetAlerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, len(m.alerts))
	for i, a := range m.alerts {
		out[i] = a.clone()
	}
	return out
}

// GetMetrics returns the latest sample. ok is false before the first collection.
func (m *Monitor) GetMetrics() (Metrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return Metrics{}, false
	}
	return m.history[len(m.history)-1], true
}

// GetPerformanceHistory returns a copy of the retained samples, oldest first.
func (m *Monitor) GetPerformanceHistory() []Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Metrics, len(m.history))
	copy(out, m.history)
	return out
}

// unacknowledgedAlerts returns up to limit unacknowledged alerts, newest first.
func (m *Monitor) unacknowledgedAlerts(limit int) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, 0, limit)
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if !m.alerts[i].Acknowledged {
			out = append(out, m.alerts[i].clone())
		}
	}
	return out
}

// alertsBetween returns copies of alerts created within [start, end].
func (m *Monitor) alertsBetween(start, end time.Time) []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Alert
	for _, a := range m.alerts {
		if !a.CreatedAt.Before(start) && !a.CreatedAt.After(end) {
			out = append(out, a.clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
