// Package main is the entry point for the market planner category engine.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MaddisonM79/market-planner/internal/cache"
	"github.com/MaddisonM79/market-planner/internal/config"
	"github.com/MaddisonM79/market-planner/internal/database"
	"github.com/MaddisonM79/market-planner/internal/handlers"
	"github.com/MaddisonM79/market-planner/internal/middleware"
	"github.com/MaddisonM79/market-planner/internal/router"
	"github.com/MaddisonM79/market-planner/internal/store"
)

func main() {
	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the system-default category trees (no-op once present).
	if err := database.Seed(db); err != nil {
		slog.Error("failed to seed database", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (Redis-compatible cache for tree pages).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Initialize data stores.
	categoryStore := store.NewCategoryStore(db)
	pathStore := store.NewPathStore(db)
	maintenance := store.NewMaintenance(db, pathStore)

	// Tree pages are cached in Valkey and invalidated on every structural
	// mutation.
	treeCache := cache.NewTreeCache(valkeyClient, cfg.TreeCacheTTL)

	// Root context for background workers, cancelled on shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The refresher coalesces path cache rebuild requests from mutations.
	refresher := store.NewRefresher(pathStore)
	go refresher.Run(ctx)

	// Periodic housekeeping: orphan purge, usage recount, path refresh.
	go maintenance.RunPeriodic(ctx, cfg.MaintenanceInterval)
	slog.Info("maintenance scheduled", "interval", cfg.MaintenanceInterval)

	// Create handler groups with their dependencies.
	categoryHandlers := handlers.NewCategories(categoryStore, pathStore, maintenance, refresher, treeCache)

	// Per-tenant-per-IP rate limiting.
	limiter := middleware.NewRateLimiter(300, time.Minute)
	defer limiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(categoryHandlers, limiter)

	// Create the HTTP server with sensible timeouts. WriteTimeout covers the
	// synchronous maintenance endpoint, which refreshes the materialized view.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Stop background workers, then give active requests time to complete.
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
