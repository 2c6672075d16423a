package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/onnwee/matchsync/db"
)

// SetupTestDB connects to TEST_PG_DSN, runs migrations and empties the cache
// table. It skips the test when TEST_PG_DSN is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping postgres test")
	}
	database, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	if _, err := database.ExecContext(context.Background(), `TRUNCATE cache_entries`); err != nil {
		t.Fatalf("failed to reset cache_entries: %v", err)
	}
	return database
}
