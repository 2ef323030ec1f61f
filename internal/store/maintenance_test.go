package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestPurgeOrphans(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	deps := NewDependentStore(db)
	m := NewMaintenance(db, NewPathStore(db))

	// A tenant that will vanish from the registry.
	ghost := uuid.New()
	if _, err := db.Exec(`INSERT INTO tenants (id, name) VALUES ($1, 'ghost-tenant')`, ghost); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	t.Cleanup(func() { cleanTenant(t, db, ghost) })

	cat := testCategory(t, s, "product_categories", ghost, "Ghost Category", nil)
	if _, err := deps.CreateProduct(ghost, "Ghost Product", CategoryRefs{CategoryID: &cat.ID}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := db.Exec(`DELETE FROM tenants WHERE id = $1`, ghost); err != nil {
		t.Fatalf("drop tenant: %v", err)
	}

	purged, err := m.PurgeOrphans()
	if err != nil {
		t.Fatalf("PurgeOrphans: %v", err)
	}
	if purged < 1 {
		t.Errorf("purged: got %d, want at least 1", purged)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM categories WHERE tenant_id = $1`, ghost).Scan(&n)
	if n != 0 {
		t.Errorf("orphan categories left: %d", n)
	}
	db.QueryRow(`SELECT COUNT(*) FROM products WHERE tenant_id = $1`, ghost).Scan(&n)
	if n != 0 {
		t.Errorf("orphan products left: %d", n)
	}
}

func TestPurgeOrphansKeepsLiveTenants(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	m := NewMaintenance(db, NewPathStore(db))
	tenant := testTenant(t, db)

	cat := testCategory(t, s, "product_categories", tenant, "Survivor", nil)

	if _, err := m.PurgeOrphans(); err != nil {
		t.Fatalf("PurgeOrphans: %v", err)
	}

	found, err := s.FindByID(cat.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found == nil {
		t.Error("live tenant's category was purged")
	}
}

func TestMaintenanceRunReportsEveryTask(t *testing.T) {
	db := testDB(t)
	m := NewMaintenance(db, NewPathStore(db))

	reports := m.Run()
	want := []string{"purge_orphan_tenants", "recount_usage", "refresh_paths", "check_staleness"}
	if len(reports) != len(want) {
		t.Fatalf("reports: got %d, want %d", len(reports), len(want))
	}
	for i, r := range reports {
		if r.Task != want[i] {
			t.Errorf("task %d: got %q, want %q", i, r.Task, want[i])
		}
		if r.Error != "" {
			t.Errorf("task %q failed: %s", r.Task, r.Error)
		}
	}
}
