// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Maintenance runs the periodic housekeeping tasks of the category engine:
// purging data of tenants that no longer exist, repairing drifted usage
// counters and keeping the path cache fresh.
type Maintenance struct {
	db    *sql.DB
	paths *PathStore
}

// NewMaintenance returns a Maintenance runner.
func NewMaintenance(db *sql.DB, paths *PathStore) *Maintenance {
	return &Maintenance{db: db, paths: paths}
}

// TaskReport is the outcome of one maintenance task.
type TaskReport struct {
	Task     string `json:"task"`
	Affected int    `json:"affected"`
	Error    string `json:"error,omitempty"`
}

// Run executes all maintenance tasks in order and reports each outcome. A
// failing task is reported and the rest still run.
func (m *Maintenance) Run() []TaskReport {
	reports := make([]TaskReport, 0, 4)

	n, err := m.PurgeOrphans()
	reports = append(reports, report("purge_orphan_tenants", n, err))

	n, err = RecountUsage(m.db)
	reports = append(reports, report("recount_usage", n, err))

	err = m.paths.Refresh()
	reports = append(reports, report("refresh_paths", 0, err))

	cached, live, err := m.paths.Staleness()
	r := report("check_staleness", live-cached, err)
	reports = append(reports, r)

	return reports
}

func report(task string, affected int, err error) TaskReport {
	r := TaskReport{Task: task, Affected: affected}
	if err != nil {
		r.Error = err.Error()
		slog.Error("maintenance task failed", "task", task, "error", err)
	} else {
		slog.Info("maintenance task done", "task", task, "affected", affected)
	}
	return r
}

// PurgeOrphans hard-deletes categories (and their dependent rows) belonging
// to tenants that are gone from the tenant registry. Dependents go first so
// the category deletes never trip foreign keys; everything in one
// transaction so a partial purge can't survive.
func (m *Maintenance) PurgeOrphans() (int, error) {
	tx, err := m.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin purge tx: %w", err)
	}
	defer tx.Rollback()

	const orphanTenants = `SELECT tenant_id FROM categories
		WHERE tenant_id IS NOT NULL
		  AND tenant_id NOT IN (SELECT id FROM tenants)`

	if _, err := tx.Exec(`DELETE FROM products WHERE tenant_id IN (` + orphanTenants + `)`); err != nil {
		return 0, fmt.Errorf("purge orphan products: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM materials WHERE tenant_id IN (` + orphanTenants + `)`); err != nil {
		return 0, fmt.Errorf("purge orphan materials: %w", err)
	}
	res, err := tx.Exec(`
		DELETE FROM categories
		WHERE tenant_id IS NOT NULL
		  AND tenant_id NOT IN (SELECT id FROM tenants)
	`)
	if err != nil {
		return 0, fmt.Errorf("purge orphan categories: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge tx: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// RunPeriodic runs maintenance on the given interval until the context is
// cancelled. Meant to be started as a goroutine at boot.
func (m *Maintenance) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Run()
		}
	}
}
