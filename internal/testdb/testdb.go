// Package testdb provides utilities for database integration tests. It
// depends only on store interfaces and standard database packages, not
// on specific implementations.
package testdb

import (
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"github.com/seagrid/asyncmedia/migrations"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// IsIntegrationTestEnvironment returns true if a test database URL is
// configured, indicating that integration tests can run.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// GetTestDatabaseURL returns the database URL for tests. It checks
// DATABASE_URL and ASYNCMEDIA_TEST_DB_URL in that order.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("ASYNCMEDIA_TEST_DB_URL")
}

// Open connects to the test database, applies migrations, and registers
// cleanup that truncates the tables it created. Tests call
// testdb.Open(t) at the top and skip when no database is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	if !IsIntegrationTestEnvironment() {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", GetTestDatabaseURL())
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, db.Ping(), "failed to ping test database")

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"), "failed to set goose dialect")
	require.NoError(t, goose.Up(db, "."), "failed to apply migrations")

	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE media_jobs, media_images`)
		_ = db.Close()
	})

	return db
}
