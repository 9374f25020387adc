package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/star64ccs/CardStrategy-sub008/internal/api"
	"github.com/star64ccs/CardStrategy-sub008/internal/config"
	"github.com/star64ccs/CardStrategy-sub008/internal/events"
	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/platform/gemini"
	"github.com/star64ccs/CardStrategy-sub008/internal/platform/kafka"
	"github.com/star64ccs/CardStrategy-sub008/internal/platform/postgres"
	"github.com/star64ccs/CardStrategy-sub008/internal/provider"
	"github.com/star64ccs/CardStrategy-sub008/internal/task"
)

// taskEventLogger logs task lifecycle events at debug level.
type taskEventLogger struct {
	logger *slog.Logger
}

func (h *taskEventLogger) HandleEvent(ctx context.Context, event *events.Event) error {
	h.logger.DebugContext(ctx, "task event",
		"event_type", event.Type,
		"task_id", event.Subject,
		"event_id", event.ID)
	return nil
}

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	providers *provider.Router
	emitter   *events.InMemoryEventEmitter
	scheduler *task.Scheduler
	monitor   *monitor.Monitor

	// optional
	archive   *postgres.Archive
	publisher *kafka.Publisher
}

// buildProviders registers every configured AI provider on a router.
func buildProviders(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*provider.Router, error) {
	if cfg.DefaultProvider != gemini.ProviderName {
		return nil, fmt.Errorf("%w: default provider %q is not configured", provider.ErrUnknownProvider, cfg.DefaultProvider)
	}

	exec, err := gemini.NewExecutor(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini executor: %w", err)
	}

	router := provider.NewRouter(cfg.DefaultProvider, logger)
	router.Register(gemini.ProviderName, exec)
	return router, nil
}

// newApplication wires the scheduler, monitor and optional archive and
// publisher around providers. db may be nil.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, providers *provider.Router) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		providers: providers,
		emitter:   events.NewInMemoryEventEmitter(logger),
	}

	app.emitter.RegisterHandler(&taskEventLogger{logger: logger.With("component", "task_events")})

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.Kafka, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize kafka publisher: %w", err)
		}
		app.publisher = publisher
		if publisher.PublishesEvents() {
			app.emitter.RegisterHandler(publisher,
				events.TypeTaskCompleted,
				events.TypeTaskFailed,
				events.TypeTaskCancelled)
		}
	}

	app.scheduler = task.NewScheduler(providers, providers, schedulerConfig(cfg.Scheduler), logger,
		task.WithEventEmitter(app.emitter))

	var monitorOpts []monitor.Option
	if db != nil {
		app.archive = postgres.NewArchive(db, logger)
		monitorOpts = append(monitorOpts, monitor.WithReportSink(app.archive))
	}
	app.monitor = monitor.NewMonitor(app.scheduler, monitorConfig(cfg.Monitor), logger, monitorOpts...)

	if app.archive != nil {
		app.monitor.RegisterAlertHandler(app.archive)
	}
	if app.publisher != nil {
		app.monitor.RegisterAlertHandler(app.publisher)
	}

	logger.Info("application initialized",
		"archive", app.archive != nil,
		"publisher", app.publisher != nil)
	return app, nil
}

func schedulerConfig(c config.SchedulerConfig) task.SchedulerConfig {
	return task.SchedulerConfig{
		MaxConcurrent:    c.MaxConcurrent,
		MaxQueueSize:     c.MaxQueueSize,
		DispatchInterval: c.DispatchInterval,
		HealthInterval:   c.HealthInterval,
		TaskTimeout:      c.TaskTimeout,
		ResultRetention:  c.ResultRetention,
	}
}

func monitorConfig(c config.MonitorConfig) monitor.Config {
	return monitor.Config{
		CollectionInterval: c.CollectionInterval,
		AlertInterval:      c.AlertInterval,
		HistorySize:        c.HistorySize,
		MaxAlerts:          c.MaxAlerts,
		MonthlyBudget:      c.MonthlyBudget,
		CostAlertThreshold: c.CostAlertThreshold,
		TrendPoints:        c.TrendPoints,
		DashboardAlerts:    c.DashboardAlerts,
	}
}

// start initializes the scheduler, then starts monitoring, which needs the
// scheduler's first health snapshot.
func (app *application) start(ctx context.Context) error {
	if err := app.scheduler.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	if err := app.monitor.StartMonitoring(ctx); err != nil {
		return fmt.Errorf("failed to start monitoring: %w", err)
	}
	return nil
}

// routes builds the HTTP handler.
func (app *application) routes() http.Handler {
	var archive api.Archive
	if app.archive != nil {
		archive = app.archive
	}
	return api.NewRouter(app.logger,
		api.NewTaskHandler(app.scheduler),
		api.NewMonitorHandler(app.monitor, archive),
		api.NewProviderHandler(app.providers),
	)
}

// Run starts background work and serves HTTP until ctx ends or a shutdown
// signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(ctx); err != nil {
		app.cleanup()
		return err
	}
	if err := app.startHTTPServer(ctx, app.routes()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops monitoring before the scheduler, then releases external
// connections. It is safe to call after a partial start.
func (app *application) cleanup() {
	app.monitor.StopMonitoring()
	app.scheduler.Stop()

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("error closing kafka publisher", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
