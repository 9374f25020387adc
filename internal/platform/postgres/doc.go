// Package postgres archives monitor alerts and reports in PostgreSQL through
// database/sql with the pgx stdlib driver. Schema changes ship as embedded
// goose migrations applied by Migrate.
package postgres
