package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/redact"
	"github.com/star64ccs/CardStrategy-sub008/internal/store"
)

// Archive stores alerts and reports. It satisfies store.AlertStore,
// store.ReportStore, monitor.AlertHandler and monitor.ReportSink.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ store.AlertStore     = (*Archive)(nil)
	_ store.ReportStore    = (*Archive)(nil)
	_ monitor.AlertHandler = (*Archive)(nil)
	_ monitor.ReportSink   = (*Archive)(nil)
)

// NewArchive creates an Archive over db.
func NewArchive(db *sql.DB, logger *slog.Logger) *Archive {
	return &Archive{db: db, logger: logger.With("component", "archive")}
}

// HandleAlert archives a freshly raised alert.
func (a *Archive) HandleAlert(ctx context.Context, alert monitor.Alert) error {
	return a.SaveAlert(ctx, alert)
}

// SaveAlert inserts an alert row.
func (a *Archive) SaveAlert(ctx context.Context, alert monitor.Alert) error {
	return a.saveAlert(ctx, a.db, alert)
}

func (a *Archive) saveAlert(ctx context.Context, db store.DBTX, alert monitor.Alert) error {
	query := `
		INSERT INTO monitor_alerts (id, severity, title, message, metric, value, threshold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := db.ExecContext(ctx, query,
		alert.ID,
		string(alert.Severity),
		alert.Title,
		alert.Message,
		alert.Metric,
		alert.Value,
		alert.Threshold,
		alert.CreatedAt.UTC(),
	)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to archive alert",
			"alert_id", alert.ID,
			"error", redact.Error(err))
		return store.NewStoreError("alert", "save", MapError(err))
	}
	return nil
}

// ListAlerts returns up to limit archived alerts created at or after since,
// newest first. A non-positive limit returns every match.
func (a *Archive) ListAlerts(ctx context.Context, since time.Time, limit int) ([]monitor.Alert, error) {
	query := `
		SELECT id, severity, title, message, metric, value, threshold, created_at
		FROM monitor_alerts
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`
	args := []any{since.UTC()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("alert", "list", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var alerts []monitor.Alert
	for rows.Next() {
		var (
			alert    monitor.Alert
			severity string
		)
		if err := rows.Scan(
			&alert.ID,
			&severity,
			&alert.Title,
			&alert.Message,
			&alert.Metric,
			&alert.Value,
			&alert.Threshold,
			&alert.CreatedAt,
		); err != nil {
			return nil, store.NewStoreError("alert", "list", MapError(err))
		}
		alert.Severity = monitor.Severity(severity)
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("alert", "list", MapError(err))
	}
	return alerts, nil
}

// SaveReport stores the report body and links the alerts it covers, in one
// transaction.
func (a *Archive) SaveReport(ctx context.Context, report monitor.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	err = store.RunInTransaction(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO monitor_reports (id, report_type, window_start, window_end, generated_at, body)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			report.ID,
			string(report.Type),
			report.Start.UTC(),
			report.End.UTC(),
			report.GeneratedAt.UTC(),
			body,
		)
		if err != nil {
			return MapError(err)
		}

		for _, alert := range report.Alerts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO monitor_report_alerts (report_id, alert_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				report.ID, alert.ID,
			); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to archive report",
			"report_id", report.ID,
			"error", redact.Error(err))
		return store.NewStoreError("report", "save", err)
	}

	a.logger.DebugContext(ctx, "report archived",
		"report_id", report.ID,
		"type", report.Type,
		"alerts", len(report.Alerts))
	return nil
}

// GetReport loads an archived report.
func (a *Archive) GetReport(ctx context.Context, id string) (monitor.Report, error) {
	var body []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT body FROM monitor_reports WHERE id = $1`, id,
	).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return monitor.Report{}, fmt.Errorf("%w: %s", store.ErrReportNotFound, id)
		}
		return monitor.Report{}, store.NewStoreError("report", "get", MapError(err))
	}

	var report monitor.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return monitor.Report{}, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return report, nil
}
