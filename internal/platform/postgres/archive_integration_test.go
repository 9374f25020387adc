//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star64ccs/CardStrategy-sub008/internal/monitor"
	"github.com/star64ccs/CardStrategy-sub008/internal/store"
	"github.com/star64ccs/CardStrategy-sub008/internal/testdb"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := testdb.DatabaseURL(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	db, err := Open(ctx, url, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, logger))
	return db
}

func testAlert(severity monitor.Severity, at time.Time) monitor.Alert {
	return monitor.Alert{
		ID: uuid.NewString(),
		AlertData: monitor.AlertData{
			Severity:  severity,
			Title:     "Low success rate",
			Message:   "success rate 0.70 below 0.80",
			Metric:    "success_rate",
			Value:     0.7,
			Threshold: 0.8,
		},
		CreatedAt: at,
	}
}

func TestArchive_Alerts(t *testing.T) {
	db := openTestDB(t)
	archive := NewArchive(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	older := testAlert(monitor.SeverityMedium, base.Add(-time.Hour))
	newer := testAlert(monitor.SeverityHigh, base)

	require.NoError(t, archive.HandleAlert(ctx, older))
	require.NoError(t, archive.SaveAlert(ctx, newer))

	err := archive.SaveAlert(ctx, newer)
	assert.True(t, store.IsDuplicateError(err))

	alerts, err := archive.ListAlerts(ctx, base.Add(-2*time.Hour), 0)
	require.NoError(t, err)
	var ids []string
	for _, a := range alerts {
		if a.ID == older.ID || a.ID == newer.ID {
			ids = append(ids, a.ID)
		}
	}
	assert.Equal(t, []string{newer.ID, older.ID}, ids)

	bad := testAlert("urgent", base)
	err = archive.SaveAlert(ctx, bad)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestArchive_Reports(t *testing.T) {
	db := openTestDB(t)
	archive := NewArchive(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	alert := testAlert(monitor.SeverityHigh, now)
	report := monitor.Report{
		ID:               uuid.NewString(),
		Type:             monitor.ReportDaily,
		Start:            now.Add(-24 * time.Hour),
		End:              now,
		GeneratedAt:      now,
		Samples:          3,
		AlertsBySeverity: map[monitor.Severity]int{monitor.SeverityHigh: 1},
		Alerts:           []monitor.Alert{alert},
		Recommendations:  []string{"System is operating normally."},
	}

	require.NoError(t, archive.SaveReport(ctx, report))

	got, err := archive.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, report.Samples, got.Samples)
	assert.Equal(t, report.Recommendations, got.Recommendations)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, alert.ID, got.Alerts[0].ID)

	var linked int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM monitor_report_alerts WHERE report_id = $1`, report.ID).Scan(&linked))
	assert.Equal(t, 1, linked)

	_, err = archive.GetReport(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrReportNotFound)

	err = archive.SaveReport(ctx, report)
	assert.True(t, store.IsDuplicateError(err), "a rolled back duplicate keeps the original")
}

func TestArchive_SaveAlertRolledBack(t *testing.T) {
	db := openTestDB(t)
	archive := NewArchive(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	alert := testAlert(monitor.SeverityLow, time.Now().UTC().Truncate(time.Microsecond))

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		require.NoError(t, archive.saveAlert(ctx, tx, alert))

		var n int
		require.NoError(t, tx.QueryRowContext(ctx,
			`SELECT count(*) FROM monitor_alerts WHERE id = $1`, alert.ID).Scan(&n))
		assert.Equal(t, 1, n)
	})

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM monitor_alerts WHERE id = $1`, alert.ID).Scan(&n))
	assert.Zero(t, n)
}
