//go:build integration

package store

import (
	"context"
	"os"
	"testing"
)

func setupTestDB(t *testing.T) Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	truncate := func() {
		// Truncate in dependency order
		_, _ = s.pool.Exec(ctx, "TRUNCATE concord_task_events CASCADE")
		_, _ = s.pool.Exec(ctx, "TRUNCATE concord_tasks CASCADE")
		_, _ = s.pool.Exec(ctx, "TRUNCATE concord_members CASCADE")
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		s.Close()
	})

	return s
}

func TestPostgresStore(t *testing.T) {
	runStoreSuite(t, setupTestDB)
}

func TestPostgresMigrateIdempotent(t *testing.T) {
	s := setupTestDB(t).(*PostgresStore)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second migrate failed: %v", err)
	}
}
