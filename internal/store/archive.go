package store

import (
	"context"
	"time"

	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
)

// AlertStore archives raised alerts.
type AlertStore interface {
	// SaveAlert inserts a, failing with ErrDuplicate when its id is already archived.
	SaveAlert(ctx context.Context, a monitor.Alert) error

	// ListAlerts returns up to limit alerts created at or after since, newest first.
	ListAlerts(ctx context.Context, since time.Time, limit int) ([]monitor.Alert, error)
}

// ReportStore archives generated performance reports.
type ReportStore interface {
	SaveReport(ctx context.Context, r monitor.Report) error

	// GetReport returns ErrReportNotFound for an unknown id.
	GetReport(ctx context.Context, id string) (monitor.Report, error)
}
