// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/hierarchy"
	"github.com/MaddisonM79/market-planner/internal/models"
)

// MoveResult aggregates the effects of one subtree move.
type MoveResult struct {
	CategoryID        uuid.UUID `json:"category_id"`
	CategoriesMoved   int       `json:"categories_moved"`
	ProductsAffected  int       `json:"products_affected"`
	MaterialsAffected int       `json:"materials_affected"`
}

// MoveSubtree reparents a category and rewrites the path and level of its
// entire subtree in one transaction. A nil newParentID promotes the node to
// a root. All validation (existence, type/tenant scope, cycle check) happens
// before the first write; any failure afterwards rolls everything back,
// including the audit entry.
func (s *CategoryStore) MoveSubtree(categoryID uuid.UUID, newParentID, actorID *uuid.UUID, reason string) (*MoveResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin move tx: %w", err)
	}
	defer tx.Rollback()

	node, err := lockCategory(tx, categoryID)
	if err != nil {
		return nil, err
	}

	oldPath, oldLevel := node.Path, node.Level

	newPath, newLevel := hierarchy.ComputePath(node.Name, "", 0)
	if newParentID != nil {
		parent, err := lockCategory(tx, *newParentID)
		if err != nil {
			return nil, err
		}
		if parent.CategoryTypeID != node.CategoryTypeID {
			return nil, fmt.Errorf("%w: parent belongs to a different category type", ErrTypeMismatch)
		}
		// A tenant-scoped parent only accepts nodes of the same tenant;
		// system defaults never move under a tenant's custom category.
		if parent.TenantID != nil && (node.TenantID == nil || *node.TenantID != *parent.TenantID) {
			return nil, fmt.Errorf("%w: parent is owned by another tenant", ErrTenantMismatch)
		}
		if err := hierarchy.CheckMove(oldPath, parent.Path); err != nil {
			return nil, err
		}
		newPath, newLevel = hierarchy.ComputePath(node.Name, parent.Path, parent.Level)
	}

	// The destination path must not collide with another active row of the
	// type: rewriteDescendants and the cycle check resolve subtrees purely
	// by path prefix, so a duplicate would graft a foreign tree onto this
	// move. Descendant paths stay collision-free by induction once the
	// subtree root's path is.
	taken, err := pathInUse(tx, node.CategoryTypeID, newPath, node.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %q", ErrPathConflict, newPath)
	}

	// Audit before mutating so the old snapshot is accurate. Same tx: an
	// audit failure aborts the move.
	err = insertAudit(tx, &models.AuditRecord{
		TenantID:  node.TenantID,
		TableName: "categories",
		RecordID:  node.ID,
		Operation: models.AuditOpMove,
		OldValues: map[string]any{
			"parent_id": node.ParentID, "path": oldPath, "level": oldLevel,
		},
		NewValues: map[string]any{
			"parent_id": newParentID, "path": newPath, "level": newLevel,
		},
		UserID:         actorID,
		BusinessReason: reason,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE categories SET parent_id = $1, path = $2, level = $3, updated_at = $4, updated_by = $5
		WHERE id = $6
	`, newParentID, newPath, newLevel, now, actorID, node.ID)
	if err != nil {
		return nil, fmt.Errorf("move category %s: %w", node.ID, err)
	}

	moved, err := rewriteDescendants(tx, node.CategoryTypeID, oldPath, newPath, newLevel-oldLevel, now, actorID)
	if err != nil {
		return nil, err
	}

	products, materials, err := countDependentsUnder(tx, node.CategoryTypeID, newPath)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit move tx: %w", err)
	}

	return &MoveResult{
		CategoryID:        node.ID,
		CategoriesMoved:   1 + moved,
		ProductsAffected:  products,
		MaterialsAffected: materials,
	}, nil
}

// rewriteDescendants rewrites path and level for every active descendant of
// the moved node. Rows are taken level-ascending then path-ascending so a
// parent is always rewritten before its children, and each new path stays a
// pure suffix substitution against the already-final subtree root.
func rewriteDescendants(tx dbtx, typeID uuid.UUID, oldPath, newPath string, levelDelta int, now time.Time, actorID *uuid.UUID) (int, error) {
	rows, err := tx.Query(`
		SELECT id, path, level FROM categories
		WHERE category_type_id = $1 AND path LIKE $2 AND is_active
		ORDER BY level, path
		FOR UPDATE
	`, typeID, oldPath+hierarchy.Separator+"%")
	if err != nil {
		return 0, fmt.Errorf("select descendants: %w", err)
	}
	defer rows.Close()

	type descendant struct {
		id    uuid.UUID
		path  string
		level int
	}
	var descendants []descendant
	for rows.Next() {
		var d descendant
		if err := rows.Scan(&d.id, &d.path, &d.level); err != nil {
			return 0, fmt.Errorf("scan descendant: %w", err)
		}
		descendants = append(descendants, d)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate descendants: %w", err)
	}
	rows.Close()

	for _, d := range descendants {
		rewritten := hierarchy.RewritePath(d.path, oldPath, newPath)
		_, err := tx.Exec(`
			UPDATE categories SET path = $1, level = $2, updated_at = $3, updated_by = $4
			WHERE id = $5
		`, rewritten, d.level+levelDelta, now, actorID, d.id)
		if err != nil {
			return 0, fmt.Errorf("rewrite descendant %s: %w", d.id, err)
		}
	}

	return len(descendants), nil
}

// countDependentsUnder counts live products and materials whose main or
// subcategory reference lands anywhere in the subtree rooted at path.
func countDependentsUnder(q dbtx, typeID uuid.UUID, path string) (products, materials int, err error) {
	const inSubtree = `
		SELECT id FROM categories
		WHERE category_type_id = $1 AND (path = $2 OR path LIKE $2 || '/%')`

	err = q.QueryRow(`
		SELECT COUNT(*) FROM products
		WHERE deleted_at IS NULL
		  AND (category_id IN (`+inSubtree+`) OR subcategory_id IN (`+inSubtree+`))
	`, typeID, path).Scan(&products)
	if err != nil {
		return 0, 0, fmt.Errorf("count affected products: %w", err)
	}

	err = q.QueryRow(`
		SELECT COUNT(*) FROM materials
		WHERE deleted_at IS NULL
		  AND (category_id IN (`+inSubtree+`) OR subcategory_id IN (`+inSubtree+`))
	`, typeID, path).Scan(&materials)
	if err != nil {
		return 0, 0, fmt.Errorf("count affected materials: %w", err)
	}

	return products, materials, nil
}

// BatchMoveItem is one requested move in a batch.
type BatchMoveItem struct {
	CategoryID  uuid.UUID  `json:"category_id"`
	NewParentID *uuid.UUID `json:"new_parent_id"`
}

// BatchMoveResult reports the outcome of one batch item: either counts or
// an error message, never both.
type BatchMoveResult struct {
	CategoryID        uuid.UUID `json:"category_id"`
	Status            string    `json:"status"`
	Error             string    `json:"error,omitempty"`
	CategoriesMoved   int       `json:"categories_moved,omitempty"`
	ProductsAffected  int       `json:"products_affected,omitempty"`
	MaterialsAffected int       `json:"materials_affected,omitempty"`
}

// BatchMove applies moves in order, one transaction per item. A failing item
// is recorded and skipped; later items still run — bulk reorganizations are
// deliberately not all-or-nothing, since completed items are already sound.
func (s *CategoryStore) BatchMove(items []BatchMoveItem, actorID *uuid.UUID, reason string) []BatchMoveResult {
	results := make([]BatchMoveResult, 0, len(items))
	for _, item := range items {
		res, err := s.MoveSubtree(item.CategoryID, item.NewParentID, actorID, reason)
		if err != nil {
			results = append(results, BatchMoveResult{
				CategoryID: item.CategoryID,
				Status:     "error",
				Error:      err.Error(),
			})
			continue
		}
		results = append(results, BatchMoveResult{
			CategoryID:        item.CategoryID,
			Status:            "moved",
			CategoriesMoved:   res.CategoriesMoved,
			ProductsAffected:  res.ProductsAffected,
			MaterialsAffected: res.MaterialsAffected,
		})
	}
	return results
}
