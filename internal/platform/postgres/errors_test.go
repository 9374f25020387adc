package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/star64ccs/CardStrategy-sub008/internal/store"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected error
		contains string
	}{
		{name: "no rows", err: sql.ErrNoRows, expected: store.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, expected: store.ErrDuplicate},
		{
			name:     "foreign key violation",
			err:      &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "monitor_report_alerts_report_id_fkey"},
			expected: store.ErrInvalidEntity,
			contains: "monitor_report_alerts_report_id_fkey",
		},
		{
			name:     "check violation",
			err:      &pgconn.PgError{Code: checkViolationCode, ConstraintName: "monitor_alerts_severity_check"},
			expected: store.ErrInvalidEntity,
			contains: "monitor_alerts_severity_check",
		},
		{
			name:     "not null violation",
			err:      fmt.Errorf("insert: %w", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "title"}),
			expected: store.ErrInvalidEntity,
			contains: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.ErrorIs(t, got, tt.expected)
			if tt.contains != "" {
				assert.Contains(t, got.Error(), tt.contains)
			}
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	t.Parallel()

	assert.NoError(t, MapError(nil))

	plain := errors.New("connection reset")
	assert.Same(t, plain, MapError(plain))

	other := &pgconn.PgError{Code: "40001"}
	assert.Equal(t, error(other), MapError(other))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("x")))
}

func TestMigrationsEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
