// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL is unavailable; the tree cache is
// left nil so Valkey is never required here.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MaddisonM79/market-planner/internal/database"
	"github.com/MaddisonM79/market-planner/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL, runs migrations and the
// system-default seed.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "market_planner")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "market_planner")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	if err := database.Seed(db); err != nil {
		db.Close()
		t.Fatalf("seed: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testEnv holds the handler group and its dependencies.
type testEnv struct {
	DB         *sql.DB
	Categories *store.CategoryStore
	Paths      *store.PathStore
	Handler    *Categories
}

// newTestEnv wires a complete handler group against the test database. The
// tree cache stays nil; cached and uncached reads share the same code path
// up to the store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	categories := store.NewCategoryStore(db)
	paths := store.NewPathStore(db)
	maintenance := store.NewMaintenance(db, paths)
	refresher := store.NewRefresher(paths)

	h := NewCategories(categories, paths, maintenance, refresher, nil)
	return &testEnv{DB: db, Categories: categories, Paths: paths, Handler: h}
}

// testTenant inserts a throwaway tenant and registers cleanup of everything
// created under it, dependents first.
func testTenant(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := db.Exec(`INSERT INTO tenants (id, name) VALUES ($1, $2)`, id, "test-tenant-"+id.String()[:8]); err != nil {
		t.Fatalf("create test tenant: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM audit_logs WHERE tenant_id = $1", id)
		db.Exec("DELETE FROM products WHERE tenant_id = $1", id)
		db.Exec("DELETE FROM materials WHERE tenant_id = $1", id)
		db.Exec("DELETE FROM categories WHERE tenant_id = $1", id)
		db.Exec("DELETE FROM tenants WHERE id = $1", id)
	})
	return id
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
