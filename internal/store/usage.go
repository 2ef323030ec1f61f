// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// usage.go is the Go side of usage counting. The counters themselves are
// maintained by the database triggers installed in the migrations — every
// attach, detach, reassign or soft-delete of a dependent row adjusts
// usage_count atomically. This store writes the dependent rows and offers a
// full recount for drift repair.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/models"
)

// DependentStore writes product and material rows, the two dependent
// entities that reference categories.
type DependentStore struct {
	db *sql.DB
}

// NewDependentStore returns a new DependentStore.
func NewDependentStore(db *sql.DB) *DependentStore {
	return &DependentStore{db: db}
}

// CategoryRefs are the category reference slots of a dependent entity.
// DifficultyLevelID is ignored for materials.
type CategoryRefs struct {
	CategoryID        *uuid.UUID `json:"category_id"`
	SubcategoryID     *uuid.UUID `json:"subcategory_id"`
	YarnWeightID      *uuid.UUID `json:"yarn_weight_id"`
	FiberTypeID       *uuid.UUID `json:"fiber_type_id"`
	DifficultyLevelID *uuid.UUID `json:"difficulty_level_id"`
}

// CreateProduct inserts a product with its category references; the insert
// trigger increments every referenced counter.
func (s *DependentStore) CreateProduct(tenantID uuid.UUID, name string, refs CategoryRefs) (*models.Product, error) {
	p := &models.Product{}
	err := s.db.QueryRow(`
		INSERT INTO products (tenant_id, name, category_id, subcategory_id,
		                      yarn_weight_id, fiber_type_id, difficulty_level_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, tenant_id, name, category_id, subcategory_id, yarn_weight_id,
		          fiber_type_id, difficulty_level_id, created_at, updated_at, deleted_at, deleted_by
	`, tenantID, name, refs.CategoryID, refs.SubcategoryID,
		refs.YarnWeightID, refs.FiberTypeID, refs.DifficultyLevelID,
	).Scan(
		&p.ID, &p.TenantID, &p.Name, &p.CategoryID, &p.SubcategoryID, &p.YarnWeightID,
		&p.FiberTypeID, &p.DifficultyLevelID, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt, &p.DeletedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// SetProductRefs rewrites a product's category slots. The update trigger
// shifts counters only for slots whose value actually changed.
func (s *DependentStore) SetProductRefs(id uuid.UUID, refs CategoryRefs) error {
	res, err := s.db.Exec(`
		UPDATE products
		SET category_id = $1, subcategory_id = $2, yarn_weight_id = $3,
		    fiber_type_id = $4, difficulty_level_id = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`, refs.CategoryID, refs.SubcategoryID, refs.YarnWeightID,
		refs.FiberTypeID, refs.DifficultyLevelID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set product refs: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return nil
}

// SoftDeleteProduct marks a product deleted; the trigger releases its usage.
func (s *DependentStore) SoftDeleteProduct(id uuid.UUID, actorID *uuid.UUID) error {
	res, err := s.db.Exec(`
		UPDATE products SET deleted_at = $1, deleted_by = $2
		WHERE id = $3 AND deleted_at IS NULL
	`, time.Now(), actorID, id)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return nil
}

// CreateMaterial inserts a material with its category references.
func (s *DependentStore) CreateMaterial(tenantID uuid.UUID, name string, refs CategoryRefs) (*models.Material, error) {
	m := &models.Material{}
	err := s.db.QueryRow(`
		INSERT INTO materials (tenant_id, name, category_id, subcategory_id,
		                       yarn_weight_id, fiber_type_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, name, category_id, subcategory_id, yarn_weight_id,
		          fiber_type_id, created_at, updated_at, deleted_at, deleted_by
	`, tenantID, name, refs.CategoryID, refs.SubcategoryID,
		refs.YarnWeightID, refs.FiberTypeID,
	).Scan(
		&m.ID, &m.TenantID, &m.Name, &m.CategoryID, &m.SubcategoryID, &m.YarnWeightID,
		&m.FiberTypeID, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt, &m.DeletedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("create material: %w", err)
	}
	return m, nil
}

// SetMaterialRefs rewrites a material's category slots.
func (s *DependentStore) SetMaterialRefs(id uuid.UUID, refs CategoryRefs) error {
	res, err := s.db.Exec(`
		UPDATE materials
		SET category_id = $1, subcategory_id = $2, yarn_weight_id = $3,
		    fiber_type_id = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`, refs.CategoryID, refs.SubcategoryID, refs.YarnWeightID,
		refs.FiberTypeID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set material refs: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: material %s", ErrNotFound, id)
	}
	return nil
}

// SoftDeleteMaterial marks a material deleted.
func (s *DependentStore) SoftDeleteMaterial(id uuid.UUID, actorID *uuid.UUID) error {
	res, err := s.db.Exec(`
		UPDATE materials SET deleted_at = $1, deleted_by = $2
		WHERE id = $3 AND deleted_at IS NULL
	`, time.Now(), actorID, id)
	if err != nil {
		return fmt.Errorf("soft delete material: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: material %s", ErrNotFound, id)
	}
	return nil
}

// RecountUsage recomputes usage_count from the live dependents and fixes
// every drifted row. The triggers keep counters accurate in normal
// operation; this is the repair path for drift accumulated outside them.
// Returns the number of corrected categories.
func RecountUsage(db dbtx) (int, error) {
	res, err := db.Exec(`
		WITH live AS (
			SELECT ref AS category_id, COUNT(*) AS n FROM (
				SELECT category_id AS ref FROM products WHERE deleted_at IS NULL AND category_id IS NOT NULL
				UNION ALL SELECT subcategory_id FROM products WHERE deleted_at IS NULL AND subcategory_id IS NOT NULL
				UNION ALL SELECT yarn_weight_id FROM products WHERE deleted_at IS NULL AND yarn_weight_id IS NOT NULL
				UNION ALL SELECT fiber_type_id FROM products WHERE deleted_at IS NULL AND fiber_type_id IS NOT NULL
				UNION ALL SELECT difficulty_level_id FROM products WHERE deleted_at IS NULL AND difficulty_level_id IS NOT NULL
				UNION ALL SELECT category_id FROM materials WHERE deleted_at IS NULL AND category_id IS NOT NULL
				UNION ALL SELECT subcategory_id FROM materials WHERE deleted_at IS NULL AND subcategory_id IS NOT NULL
				UNION ALL SELECT yarn_weight_id FROM materials WHERE deleted_at IS NULL AND yarn_weight_id IS NOT NULL
				UNION ALL SELECT fiber_type_id FROM materials WHERE deleted_at IS NULL AND fiber_type_id IS NOT NULL
			) refs
			GROUP BY ref
		)
		UPDATE categories c
		SET usage_count = sub.n
		FROM (
			SELECT c2.id, COALESCE(l.n, 0)::int AS n
			FROM categories c2
			LEFT JOIN live l ON l.category_id = c2.id
		) sub
		WHERE sub.id = c.id AND c.usage_count <> sub.n
	`)
	if err != nil {
		return 0, fmt.Errorf("recount usage: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
