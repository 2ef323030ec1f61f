// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/models"
)

// DeletionStrategy selects how a deletion handles dependent entities.
// The set is closed; parseStrategy and the handler switch in DeleteCategory
// cover every variant.
type DeletionStrategy string

const (
	// StrategyAbort deletes only when the analyzer reports the category
	// safe; otherwise it returns the analyzer's guidance and writes
	// nothing.
	StrategyAbort DeletionStrategy = "abort"
	// StrategyReassign redirects dependents' main-category references to
	// a target category and clears their subcategory-style slots.
	StrategyReassign DeletionStrategy = "reassign"
	// StrategyArchiveItems soft-deletes every direct dependent.
	StrategyArchiveItems DeletionStrategy = "archive_items"
	// StrategyForceDelete is reserved. Its semantics were never defined
	// upstream; the engine rejects it rather than guess.
	StrategyForceDelete DeletionStrategy = "force_delete"
)

// ParseDeletionStrategy validates a caller-supplied strategy name.
func ParseDeletionStrategy(s string) (DeletionStrategy, error) {
	switch DeletionStrategy(s) {
	case StrategyAbort, StrategyReassign, StrategyArchiveItems, StrategyForceDelete:
		return DeletionStrategy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}

// ImpactReport is the read-only preview of what a deletion would touch.
type ImpactReport struct {
	CategoryID             uuid.UUID `json:"category_id"`
	CategoryName           string    `json:"category_name"`
	DirectProducts         int       `json:"direct_products"`
	DirectMaterials        int       `json:"direct_materials"`
	ChildCategories        int       `json:"child_categories"`
	TotalAffectedProducts  int       `json:"total_affected_products"`
	TotalAffectedMaterials int       `json:"total_affected_materials"`
	CanDeleteSafely        bool      `json:"can_delete_safely"`
	SuggestedAction        string    `json:"suggested_action"`
}

// AnalyzeDeletionImpact computes direct and transitive dependent counts for
// a category without writing anything, so UIs can preview a deletion before
// committing to a strategy.
func (s *CategoryStore) AnalyzeDeletionImpact(id uuid.UUID) (*ImpactReport, error) {
	return analyzeImpact(s.db, id)
}

func analyzeImpact(q dbtx, id uuid.UUID) (*ImpactReport, error) {
	var name string
	var active bool
	err := q.QueryRow(`SELECT name, is_active FROM categories WHERE id = $1`, id).Scan(&name, &active)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("analyze category %s: %w", id, err)
	}
	if !active {
		return nil, fmt.Errorf("%w: %s is already deleted", ErrNotFound, id)
	}

	report := &ImpactReport{CategoryID: id, CategoryName: name}

	// Direct counts: dependents referencing this exact id in any slot.
	err = q.QueryRow(`
		SELECT COUNT(*) FROM products
		WHERE deleted_at IS NULL
		  AND (category_id = $1 OR subcategory_id = $1 OR yarn_weight_id = $1
		       OR fiber_type_id = $1 OR difficulty_level_id = $1)
	`, id).Scan(&report.DirectProducts)
	if err != nil {
		return nil, fmt.Errorf("count direct products: %w", err)
	}

	err = q.QueryRow(`
		SELECT COUNT(*) FROM materials
		WHERE deleted_at IS NULL
		  AND (category_id = $1 OR subcategory_id = $1 OR yarn_weight_id = $1
		       OR fiber_type_id = $1)
	`, id).Scan(&report.DirectMaterials)
	if err != nil {
		return nil, fmt.Errorf("count direct materials: %w", err)
	}

	report.ChildCategories, err = activeChildCount(q, id)
	if err != nil {
		return nil, err
	}

	// Transitive counts: materialize the active descendant closure, then
	// count distinct dependents referencing any id in it.
	err = q.QueryRow(`
		WITH RECURSIVE closure AS (
			SELECT id FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id FROM categories c
			JOIN closure cl ON c.parent_id = cl.id
			WHERE c.is_active
		)
		SELECT
			(SELECT COUNT(*) FROM products p
			 WHERE p.deleted_at IS NULL
			   AND (p.category_id IN (SELECT id FROM closure)
			        OR p.subcategory_id IN (SELECT id FROM closure)
			        OR p.yarn_weight_id IN (SELECT id FROM closure)
			        OR p.fiber_type_id IN (SELECT id FROM closure)
			        OR p.difficulty_level_id IN (SELECT id FROM closure))),
			(SELECT COUNT(*) FROM materials m
			 WHERE m.deleted_at IS NULL
			   AND (m.category_id IN (SELECT id FROM closure)
			        OR m.subcategory_id IN (SELECT id FROM closure)
			        OR m.yarn_weight_id IN (SELECT id FROM closure)
			        OR m.fiber_type_id IN (SELECT id FROM closure)))
	`, id).Scan(&report.TotalAffectedProducts, &report.TotalAffectedMaterials)
	if err != nil {
		return nil, fmt.Errorf("count transitive dependents: %w", err)
	}

	// Safety policy. Children always block first: a deletion under a
	// populated subtree has to be untangled top-down.
	switch {
	case report.ChildCategories == 0 && report.TotalAffectedProducts == 0 && report.TotalAffectedMaterials == 0:
		report.CanDeleteSafely = true
		report.SuggestedAction = fmt.Sprintf("Category %q has no dependents and can be deleted safely.", name)
	case report.ChildCategories > 0:
		report.SuggestedAction = fmt.Sprintf(
			"Category %q has %d child categories. Move or delete the children first.",
			name, report.ChildCategories)
	default:
		report.SuggestedAction = fmt.Sprintf(
			"Category %q is referenced by %d products and %d materials. Reassign them to another category or archive them.",
			name, report.TotalAffectedProducts, report.TotalAffectedMaterials)
	}

	return report, nil
}

// DeletionResult reports a completed (or aborted) deletion.
type DeletionResult struct {
	Status              string `json:"status"`
	Message             string `json:"message"`
	ProductsReassigned  int    `json:"products_reassigned"`
	MaterialsReassigned int    `json:"materials_reassigned"`
	ProductsArchived    int    `json:"products_archived,omitempty"`
	MaterialsArchived   int    `json:"materials_archived,omitempty"`
	CategoriesDeleted   int    `json:"categories_deleted"`
}

// DeleteCategory soft-deletes a category after resolving its dependents with
// the chosen strategy. Dependent handling and the final soft-delete share one
// transaction; "aborted" results write nothing at all. The category row is
// never hard-deleted here — history stays queryable.
func (s *CategoryStore) DeleteCategory(id uuid.UUID, strategy DeletionStrategy, reassignTargetID, actorID *uuid.UUID, reason string) (*DeletionResult, error) {
	switch strategy {
	case StrategyAbort, StrategyReassign, StrategyArchiveItems:
	case StrategyForceDelete:
		return nil, fmt.Errorf("%w: force_delete", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	if strategy == StrategyReassign && reassignTargetID == nil {
		return nil, ErrReassignTargetRequired
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	node, err := lockCategory(tx, id)
	if err != nil {
		return nil, err
	}

	report, err := analyzeImpact(tx, id)
	if err != nil {
		return nil, err
	}

	// Live children block every strategy; the subtree has to be emptied
	// or moved first.
	if report.ChildCategories > 0 {
		return &DeletionResult{Status: "aborted", Message: report.SuggestedAction}, nil
	}

	result := &DeletionResult{}
	switch strategy {
	case StrategyAbort:
		if !report.CanDeleteSafely {
			return &DeletionResult{Status: "aborted", Message: report.SuggestedAction}, nil
		}
	case StrategyReassign:
		if err := s.reassignDependents(tx, node, *reassignTargetID, result); err != nil {
			return nil, err
		}
	case StrategyArchiveItems:
		if err := archiveDependents(tx, id, actorID, result); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE categories
		SET is_active = false, deleted_at = $1, deleted_by = $2, updated_at = $1, updated_by = $2
		WHERE id = $3
	`, now, actorID, id)
	if err != nil {
		return nil, fmt.Errorf("soft delete category %s: %w", id, err)
	}

	err = insertAudit(tx, &models.AuditRecord{
		TenantID:  node.TenantID,
		TableName: "categories",
		RecordID:  node.ID,
		Operation: models.AuditOpDelete,
		OldValues: map[string]any{"is_active": true, "path": node.Path},
		NewValues: map[string]any{
			"is_active":            false,
			"strategy":             strategy,
			"products_reassigned":  result.ProductsReassigned,
			"materials_reassigned": result.MaterialsReassigned,
			"products_archived":    result.ProductsArchived,
			"materials_archived":   result.MaterialsArchived,
		},
		UserID:         actorID,
		BusinessReason: reason,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete tx: %w", err)
	}

	result.Status = "deleted"
	result.Message = fmt.Sprintf("Category %q deleted.", node.Name)
	result.CategoriesDeleted = 1
	return result, nil
}

// reassignDependents redirects main-category references to the target and
// nulls subcategory-style slots. The asymmetry is intentional: a
// subcategory, yarn weight or fiber type chosen under the old main category
// may be semantically invalid under the new one.
func (s *CategoryStore) reassignDependents(tx dbtx, node *models.Category, targetID uuid.UUID, result *DeletionResult) error {
	if targetID == node.ID {
		return fmt.Errorf("%w: target is the category being deleted", ErrReassignTargetRequired)
	}

	var targetType uuid.UUID
	var targetActive bool
	err := tx.QueryRow(`SELECT category_type_id, is_active FROM categories WHERE id = $1 FOR UPDATE`, targetID).
		Scan(&targetType, &targetActive)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: reassign target %s", ErrNotFound, targetID)
	}
	if err != nil {
		return fmt.Errorf("lock reassign target: %w", err)
	}
	if !targetActive {
		return fmt.Errorf("%w: reassign target %s is deleted", ErrNotFound, targetID)
	}
	if targetType != node.CategoryTypeID {
		return fmt.Errorf("%w: reassign target belongs to a different category type", ErrTypeMismatch)
	}

	now := time.Now()

	res, err := tx.Exec(`
		UPDATE products SET category_id = $1, updated_at = $2
		WHERE category_id = $3 AND deleted_at IS NULL
	`, targetID, now, node.ID)
	if err != nil {
		return fmt.Errorf("reassign products: %w", err)
	}
	n, _ := res.RowsAffected()
	result.ProductsReassigned = int(n)

	res, err = tx.Exec(`
		UPDATE materials SET category_id = $1, updated_at = $2
		WHERE category_id = $3 AND deleted_at IS NULL
	`, targetID, now, node.ID)
	if err != nil {
		return fmt.Errorf("reassign materials: %w", err)
	}
	n, _ = res.RowsAffected()
	result.MaterialsReassigned = int(n)

	for _, slot := range []string{"subcategory_id", "yarn_weight_id", "fiber_type_id", "difficulty_level_id"} {
		_, err = tx.Exec(`
			UPDATE products SET `+slot+` = NULL, updated_at = $1
			WHERE `+slot+` = $2 AND deleted_at IS NULL
		`, now, node.ID)
		if err != nil {
			return fmt.Errorf("clear product %s: %w", slot, err)
		}
	}
	for _, slot := range []string{"subcategory_id", "yarn_weight_id", "fiber_type_id"} {
		_, err = tx.Exec(`
			UPDATE materials SET `+slot+` = NULL, updated_at = $1
			WHERE `+slot+` = $2 AND deleted_at IS NULL
		`, now, node.ID)
		if err != nil {
			return fmt.Errorf("clear material %s: %w", slot, err)
		}
	}

	return nil
}

// archiveDependents soft-deletes every live dependent that references the
// category in any slot.
func archiveDependents(tx dbtx, id uuid.UUID, actorID *uuid.UUID, result *DeletionResult) error {
	now := time.Now()

	res, err := tx.Exec(`
		UPDATE products SET deleted_at = $1, deleted_by = $2
		WHERE deleted_at IS NULL
		  AND (category_id = $3 OR subcategory_id = $3 OR yarn_weight_id = $3
		       OR fiber_type_id = $3 OR difficulty_level_id = $3)
	`, now, actorID, id)
	if err != nil {
		return fmt.Errorf("archive products: %w", err)
	}
	n, _ := res.RowsAffected()
	result.ProductsArchived = int(n)

	res, err = tx.Exec(`
		UPDATE materials SET deleted_at = $1, deleted_by = $2
		WHERE deleted_at IS NULL
		  AND (category_id = $3 OR subcategory_id = $3 OR yarn_weight_id = $3
		       OR fiber_type_id = $3)
	`, now, actorID, id)
	if err != nil {
		return fmt.Errorf("archive materials: %w", err)
	}
	n, _ = res.RowsAffected()
	result.MaterialsArchived = int(n)

	return nil
}
