// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MaddisonM79/market-planner/internal/database"
	"github.com/MaddisonM79/market-planner/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "market_planner")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "market_planner")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database, runs migrations and the
// system-default seed. If the database is unavailable, the test is skipped.
// A cleanup function is registered to close the connection when the test
// finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := testDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	if err := database.Seed(db); err != nil {
		db.Close()
		t.Fatalf("failed to seed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testTenant inserts a throwaway tenant and registers a cleanup that removes
// everything the test created under it, dependents first.
func testTenant(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := db.Exec(`INSERT INTO tenants (id, name) VALUES ($1, $2)`, id, "test-tenant-"+id.String()[:8]); err != nil {
		t.Fatalf("create test tenant: %v", err)
	}
	t.Cleanup(func() { cleanTenant(t, db, id) })
	return id
}

// cleanTenant removes all rows a test created under a tenant. Call in
// t.Cleanup().
func cleanTenant(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()
	db.Exec("DELETE FROM audit_logs WHERE tenant_id = $1", id)
	db.Exec("DELETE FROM products WHERE tenant_id = $1", id)
	db.Exec("DELETE FROM materials WHERE tenant_id = $1", id)
	db.Exec("DELETE FROM categories WHERE tenant_id = $1", id)
	db.Exec("DELETE FROM tenants WHERE id = $1", id)
}

// testCategory creates a tenant-scoped category via the store, failing the
// test on error.
func testCategory(t *testing.T, s *CategoryStore, typeName string, tenantID uuid.UUID, name string, parentID *uuid.UUID) *models.Category {
	t.Helper()
	c, err := s.CreateCustom(CreateCustomParams{
		TypeName: typeName,
		TenantID: tenantID,
		Name:     name,
		ParentID: parentID,
	})
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

// categoryState reads path, level and is_active straight from the table.
func categoryState(t *testing.T, db *sql.DB, id uuid.UUID) (path string, level int, active bool) {
	t.Helper()
	if err := db.QueryRow(`SELECT path, level, is_active FROM categories WHERE id = $1`, id).
		Scan(&path, &level, &active); err != nil {
		t.Fatalf("read category %s: %v", id, err)
	}
	return path, level, active
}

// usageCount reads a category's usage counter.
func usageCount(t *testing.T, db *sql.DB, id uuid.UUID) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT usage_count FROM categories WHERE id = $1`, id).Scan(&n); err != nil {
		t.Fatalf("read usage_count %s: %v", id, err)
	}
	return n
}
