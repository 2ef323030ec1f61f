package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/hierarchy"
	"github.com/MaddisonM79/market-planner/internal/models"
)

func TestMoveSubtreeReparent(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	audits := NewAuditStore(db)
	tenant := testTenant(t, db)

	a := testCategory(t, s, "product_categories", tenant, "Spring Line", nil)
	b := testCategory(t, s, "product_categories", tenant, "Winter Line", nil)
	c := testCategory(t, s, "product_categories", tenant, "Shawls", &a.ID)
	d := testCategory(t, s, "product_categories", tenant, "Lace Shawls", &c.ID)

	actor := uuid.New()
	res, err := s.MoveSubtree(c.ID, &b.ID, &actor, "seasonal reshuffle")
	if err != nil {
		t.Fatalf("MoveSubtree: %v", err)
	}
	if res.CategoriesMoved != 2 {
		t.Errorf("categories moved: got %d, want 2", res.CategoriesMoved)
	}

	path, level, _ := categoryState(t, db, c.ID)
	if path != "/winter-line/shawls" || level != 1 {
		t.Errorf("moved node: got %q level %d", path, level)
	}
	path, level, _ = categoryState(t, db, d.ID)
	if path != "/winter-line/shawls/lace-shawls" || level != 2 {
		t.Errorf("descendant: got %q level %d", path, level)
	}

	recs, err := audits.FindByRecord("categories", c.ID)
	if err != nil {
		t.Fatalf("FindByRecord: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("audit records: got %d, want 1", len(recs))
	}
	if recs[0].Operation != models.AuditOpMove {
		t.Errorf("audit operation: got %q", recs[0].Operation)
	}
	if recs[0].OldValues["path"] != "/spring-line/shawls" {
		t.Errorf("audit old path: got %v", recs[0].OldValues["path"])
	}
	if recs[0].NewValues["path"] != "/winter-line/shawls" {
		t.Errorf("audit new path: got %v", recs[0].NewValues["path"])
	}
	if recs[0].BusinessReason != "seasonal reshuffle" {
		t.Errorf("audit reason: got %q", recs[0].BusinessReason)
	}
}

func TestMoveSubtreeToRoot(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	tenant := testTenant(t, db)

	a := testCategory(t, s, "product_categories", tenant, "Outer", nil)
	c := testCategory(t, s, "product_categories", tenant, "Inner", &a.ID)
	d := testCategory(t, s, "product_categories", tenant, "Deepest", &c.ID)

	res, err := s.MoveSubtree(c.ID, nil, nil, "")
	if err != nil {
		t.Fatalf("MoveSubtree to root: %v", err)
	}
	if res.CategoriesMoved != 2 {
		t.Errorf("categories moved: got %d, want 2", res.CategoriesMoved)
	}

	path, level, _ := categoryState(t, db, c.ID)
	if path != "/inner" || level != 0 {
		t.Errorf("promoted node: got %q level %d", path, level)
	}
	path, level, _ = categoryState(t, db, d.ID)
	if path != "/inner/deepest" || level != 1 {
		t.Errorf("descendant: got %q level %d", path, level)
	}
}

func TestMoveCycleRejected(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	tenant := testTenant(t, db)

	a := testCategory(t, s, "product_categories", tenant, "Grandparent", nil)
	b := testCategory(t, s, "product_categories", tenant, "Parent", &a.ID)
	c := testCategory(t, s, "product_categories", tenant, "Child", &b.ID)

	// Into own descendant.
	if _, err := s.MoveSubtree(a.ID, &c.ID, nil, ""); !errors.Is(err, hierarchy.ErrCycle) {
		t.Errorf("move under descendant: got %v, want ErrCycle", err)
	}
	// Into itself.
	if _, err := s.MoveSubtree(a.ID, &a.ID, nil, ""); !errors.Is(err, hierarchy.ErrCycle) {
		t.Errorf("move under self: got %v, want ErrCycle", err)
	}

	// Nothing changed.
	path, _, _ := categoryState(t, db, a.ID)
	if path != "/grandparent" {
		t.Errorf("node mutated by rejected move: %q", path)
	}
}

func TestMoveRejectsPathCollision(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	tenant := testTenant(t, db)

	occupied := testCategory(t, s, "product_categories", tenant, "Woven Hats", nil)
	storage := testCategory(t, s, "product_categories", tenant, "Back Room", nil)
	stashed := testCategory(t, s, "product_categories", tenant, "Woven Hats!", &storage.ID)
	deep := testCategory(t, s, "product_categories", tenant, "Berets", &stashed.ID)

	// Promoting "/back-room/woven-hats" to a root would collide with the
	// existing "/woven-hats" and let later prefix queries graft one tree
	// onto the other.
	if _, err := s.MoveSubtree(stashed.ID, nil, nil, ""); !errors.Is(err, ErrPathConflict) {
		t.Errorf("colliding move: got %v, want ErrPathConflict", err)
	}

	// The rejected move wrote nothing: both trees keep their paths.
	path, level, _ := categoryState(t, db, stashed.ID)
	if path != "/back-room/woven-hats" || level != 1 {
		t.Errorf("rejected node mutated: %q level %d", path, level)
	}
	path, _, _ = categoryState(t, db, deep.ID)
	if path != "/back-room/woven-hats/berets" {
		t.Errorf("descendant mutated: %q", path)
	}
	path, level, _ = categoryState(t, db, occupied.ID)
	if path != "/woven-hats" || level != 0 {
		t.Errorf("occupying tree mutated: %q level %d", path, level)
	}

	// With the occupant soft-deleted the same move goes through.
	db.Exec(`UPDATE categories SET is_active = false, deleted_at = NOW() WHERE id = $1`, occupied.ID)
	res, err := s.MoveSubtree(stashed.ID, nil, nil, "")
	if err != nil {
		t.Fatalf("move after occupant deleted: %v", err)
	}
	if res.CategoriesMoved != 2 {
		t.Errorf("categories moved: got %d, want 2", res.CategoriesMoved)
	}
	path, _, _ = categoryState(t, db, deep.ID)
	if path != "/woven-hats/berets" {
		t.Errorf("descendant after move: %q", path)
	}
}

func TestMoveScopeChecks(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	tenant := testTenant(t, db)
	other := testTenant(t, db)

	node := testCategory(t, s, "product_categories", tenant, "Movable", nil)
	materialParent := testCategory(t, s, "material_categories", tenant, "Wrong Namespace", nil)
	foreignParent := testCategory(t, s, "product_categories", other, "Foreign Parent", nil)

	if _, err := s.MoveSubtree(node.ID, &materialParent.ID, nil, ""); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("cross-type move: got %v, want ErrTypeMismatch", err)
	}
	if _, err := s.MoveSubtree(node.ID, &foreignParent.ID, nil, ""); !errors.Is(err, ErrTenantMismatch) {
		t.Errorf("cross-tenant move: got %v, want ErrTenantMismatch", err)
	}
}

func TestMoveMissingOrDeleted(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	tenant := testTenant(t, db)

	if _, err := s.MoveSubtree(uuid.New(), nil, nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing node: got %v, want ErrNotFound", err)
	}

	gone := testCategory(t, s, "product_categories", tenant, "Gone", nil)
	db.Exec(`UPDATE categories SET is_active = false, deleted_at = NOW() WHERE id = $1`, gone.ID)
	if _, err := s.MoveSubtree(gone.ID, nil, nil, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted node: got %v, want ErrNotFound", err)
	}
}

func TestBatchMoveContinuesOnError(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	tenant := testTenant(t, db)

	a := testCategory(t, s, "product_categories", tenant, "Batch A", nil)
	b := testCategory(t, s, "product_categories", tenant, "Batch B", nil)

	results := s.BatchMove([]BatchMoveItem{
		{CategoryID: uuid.New(), NewParentID: &b.ID}, // missing
		{CategoryID: a.ID, NewParentID: &b.ID},       // fine
	}, nil, "bulk cleanup")

	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].Status != "error" || results[0].Error == "" {
		t.Errorf("first item: got %+v, want error status", results[0])
	}
	if results[1].Status != "moved" || results[1].CategoriesMoved != 1 {
		t.Errorf("second item: got %+v, want moved", results[1])
	}

	path, _, _ := categoryState(t, db, a.ID)
	if path != "/batch-b/batch-a" {
		t.Errorf("moved path: got %q", path)
	}
}
