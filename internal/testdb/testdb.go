// Package testdb locates and isolates the PostgreSQL database used by
// integration tests.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"os"
	"testing"
	"time"
)

const (
	// EnvTestDBURL is the preferred variable for the integration database.
	EnvTestDBURL = "CARDSTRATEGY_TEST_DB_URL"

	// EnvDatabaseURL is read when EnvTestDBURL is unset.
	EnvDatabaseURL = "DATABASE_URL"
)

var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsCI reports whether the tests run under a CI system.
func IsCI() bool {
	for _, name := range ciVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// GetTestDatabaseURL returns the first non-empty of EnvTestDBURL and
// EnvDatabaseURL, or "".
func GetTestDatabaseURL() string {
	if v := os.Getenv(EnvTestDBURL); v != "" {
		return v
	}
	return os.Getenv(EnvDatabaseURL)
}

// DatabaseURL returns the integration database URL. Without one the test is
// skipped locally and fails in CI, where a missing database is a setup bug.
func DatabaseURL(t *testing.T) string {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		if IsCI() {
			t.Fatalf("%s or %s must be set in CI", EnvTestDBURL, EnvDatabaseURL)
		}
		t.Skipf("%s not set, skipping integration test", EnvTestDBURL)
	}
	return dbURL
}

// MaskURL hides the password of a database URL for logs.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}

// WithTx runs fn inside a transaction that is always rolled back, so the
// test leaves no rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction on %s: %v", MaskURL(GetTestDatabaseURL()), err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
