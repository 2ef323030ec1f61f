// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/hierarchy"
	"github.com/MaddisonM79/market-planner/internal/models"
)

// CategoryStore manages the category tree in the database. Structural
// mutations (move, delete) live in category_move.go and category_delete.go;
// this file holds lookups and custom-category creation.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, category_type_id, tenant_id, name, parent_id, level, path,
	sort_order, usage_count, is_active, created_at, updated_at, deleted_at,
	created_by, updated_by, deleted_by`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.CategoryTypeID, &c.TenantID, &c.Name, &c.ParentID, &c.Level, &c.Path,
		&c.SortOrder, &c.UsageCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
		&c.CreatedBy, &c.UpdatedBy, &c.DeletedBy,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
// Soft-deleted categories are still returned here — audit/history callers
// need them; tree operations do their own is_active filtering.
func (s *CategoryStore) FindByID(id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindTypeByName retrieves a category type by its unique name. Returns nil
// if not found.
func (s *CategoryStore) FindTypeByName(name string) (*models.CategoryType, error) {
	var t models.CategoryType
	err := s.db.QueryRow(`
		SELECT id, name, is_hierarchical, allows_custom, created_at
		FROM category_types WHERE name = $1
	`, name).Scan(&t.ID, &t.Name, &t.IsHierarchical, &t.AllowsCustom, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category type: %w", err)
	}
	return &t, nil
}

// TenantExists checks the tenant registry mirror.
func (s *CategoryStore) TenantExists(id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tenant exists: %w", err)
	}
	return exists, nil
}

// CreateCustomParams are the inputs for tenant-scoped category creation.
type CreateCustomParams struct {
	TypeName string
	TenantID uuid.UUID
	Name     string
	ParentID *uuid.UUID
	ActorID  *uuid.UUID
}

// CreateCustom inserts a tenant-scoped category under an optional parent.
// The name must survive slugging (no path separators), the type must allow
// custom categories, and the parent — when given — must be an active
// category of the same type visible to the tenant.
func (s *CategoryStore) CreateCustom(p CreateCustomParams) (*models.Category, error) {
	if err := hierarchy.ValidateName(p.Name); err != nil {
		return nil, err
	}

	ct, err := s.FindTypeByName(p.TypeName)
	if err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("%w: category type %q", ErrNotFound, p.TypeName)
	}
	if !ct.AllowsCustom {
		return nil, fmt.Errorf("%w: %q", ErrCustomNotAllowed, p.TypeName)
	}

	ok, err := s.TenantExists(p.TenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: tenant %s", ErrNotFound, p.TenantID)
	}

	parentPath := ""
	parentLevel := -1
	if p.ParentID != nil {
		parent, err := s.FindByID(*p.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || !parent.IsActive || !parent.VisibleTo(p.TenantID) {
			return nil, fmt.Errorf("%w: parent %s", ErrNotFound, *p.ParentID)
		}
		if parent.CategoryTypeID != ct.ID {
			return nil, fmt.Errorf("%w: parent belongs to a different category type", ErrTypeMismatch)
		}
		parentPath = parent.Path
		parentLevel = parent.Level
	}

	path, level := hierarchy.ComputePath(p.Name, parentPath, parentLevel)

	// Distinct names can slug to the same segment ("Wool" and "Wool!"),
	// and nothing stops two tenants from picking the same root name. An
	// active path must stay unique per type or every prefix query becomes
	// ambiguous; the partial unique index backstops this check.
	taken, err := pathInUse(s.db, ct.ID, path, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %q", ErrPathConflict, path)
	}

	sortOrder, err := s.nextSortOrder(ct.ID, p.ParentID)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(`
		INSERT INTO categories (category_type_id, tenant_id, name, parent_id, level, path,
		                        sort_order, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING `+categoryColumns,
		ct.ID, p.TenantID, p.Name, p.ParentID, level, path, sortOrder, p.ActorID,
	)
	c, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create custom category: %w", err)
	}
	return c, nil
}

// nextSortOrder returns the next sort_order among active siblings.
func (s *CategoryStore) nextSortOrder(typeID uuid.UUID, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRow(`
			SELECT MAX(sort_order) FROM categories
			WHERE category_type_id = $1 AND parent_id IS NULL AND is_active
		`, typeID).Scan(&maxOrder)
	} else {
		err = s.db.QueryRow(`
			SELECT MAX(sort_order) FROM categories
			WHERE parent_id = $1 AND is_active
		`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

// pathInUse reports whether an active category of the type already occupies
// the path. excludeID skips one row (the node being moved); pass uuid.Nil to
// exclude nothing.
func pathInUse(q dbtx, typeID uuid.UUID, path string, excludeID uuid.UUID) (bool, error) {
	var taken bool
	err := q.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE category_type_id = $1 AND path = $2 AND is_active AND id <> $3
		)
	`, typeID, path, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check path in use: %w", err)
	}
	return taken, nil
}

// ActiveChildCount returns the number of active direct children.
func (s *CategoryStore) ActiveChildCount(id uuid.UUID) (int, error) {
	return activeChildCount(s.db, id)
}

func activeChildCount(q dbtx, id uuid.UUID) (int, error) {
	var n int
	err := q.QueryRow(`
		SELECT COUNT(*) FROM categories WHERE parent_id = $1 AND is_active
	`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return n, nil
}

// lockCategory selects one active category FOR UPDATE inside a transaction,
// so concurrent structural mutations on the same rows serialize.
func lockCategory(tx *sql.Tx, id uuid.UUID) (*models.Category, error) {
	row := tx.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1 AND is_active FOR UPDATE`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock category: %w", err)
	}
	return c, nil
}
