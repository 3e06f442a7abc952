// Package testutil opens a migrated Postgres pool for adapter tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/eilgug/profile-api/internal/adapters/postgres"
	"github.com/eilgug/profile-api/internal/adapters/postgres/migrations"
)

// OpenMigratedPool connects to TEST_DATABASE_URL and applies all migrations.
// The test is skipped when the variable is unset.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, url, 4)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	m, err := migrations.New(pool, nil)
	if err != nil {
		t.Fatalf("migrations.New: %v", err)
	}
	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("migrations Up: %v", err)
	}
	return pool
}
