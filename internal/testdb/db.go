// Package testdb provides database helpers for integration tests. Tests get
// a shared migrated connection and run inside rolled-back transactions so
// they stay isolated from each other.
package testdb

import (
	"database/sql"
	"os"
	"sync"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/taskdeck/taskdeck-api/internal/platform/postgres"
)

var (
	dbOnce   sync.Once
	sharedDB *sql.DB
	dbErr    error
)

// GetTestDBWithT returns a migrated database connection for integration
// tests. The test is skipped when DATABASE_URL is not set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	dbOnce.Do(func() {
		sharedDB, dbErr = open(url)
	})
	if dbErr != nil {
		t.Fatalf("failed to set up test database: %v", dbErr)
	}
	return sharedDB
}

func open(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	goose.SetBaseFS(postgres.MigrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, err
	}
	return db, nil
}
