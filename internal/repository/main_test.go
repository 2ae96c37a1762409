package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// testDB is nil when no Docker environment is available; tests that need a
// database call requireDB and skip in that case.
var testDB *sql.DB

func requireDB(t *testing.T) *sql.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("no database available (Docker required for repository tests)")
	}
	return testDB
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("merchbase_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Printf("skipping repository integration tests: %v", err)
		os.Exit(m.Run())
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("failed to get connection string: %v", err)
		container.Terminate(ctx)
		os.Exit(1)
	}

	testDB, err = sql.Open("pgx", dsn)
	if err != nil {
		log.Printf("failed to open test database: %v", err)
		container.Terminate(ctx)
		os.Exit(1)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		log.Printf("failed to set goose dialect: %v", err)
		container.Terminate(ctx)
		os.Exit(1)
	}
	if err := goose.Up(testDB, "../../migrations"); err != nil {
		log.Printf("failed to migrate test database: %v", err)
		container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	container.Terminate(ctx)
	os.Exit(code)
}

// resetCatalog empties the catalog tables between tests.
func resetCatalog(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{"product_images", "variants", "products", "sync_runs"} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("failed to reset table %s: %v", table, err)
		}
	}
}
