// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// CategoryType defines a namespace of categories, e.g. "material_categories"
// or "yarn_weights". Types are created by the system seed and are effectively
// immutable afterwards.
type CategoryType struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	IsHierarchical bool      `json:"is_hierarchical"`
	AllowsCustom   bool      `json:"allows_custom"`
	CreatedAt      time.Time `json:"created_at"`
}

// Category is a node in a per-type, per-tenant category tree. The tree is
// stored as a materialized path: Path holds the full ancestry as
// "/"-separated slug segments (e.g. "/yarn/wool/merino") and Level is the
// depth, root = 0. A nil TenantID marks a system default visible to every
// tenant.
type Category struct {
	ID             uuid.UUID  `json:"id"`
	CategoryTypeID uuid.UUID  `json:"category_type_id"`
	TenantID       *uuid.UUID `json:"tenant_id"`
	Name           string     `json:"name"`
	ParentID       *uuid.UUID `json:"parent_id"`
	Level          int        `json:"level"`
	Path           string     `json:"path"`
	SortOrder      int        `json:"sort_order"`
	UsageCount     int        `json:"usage_count"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedBy      *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy      *uuid.UUID `json:"updated_by,omitempty"`
	DeletedBy      *uuid.UUID `json:"deleted_by,omitempty"`
}

// IsSystemDefault reports whether the category is a system default shared by
// all tenants rather than owned by one.
func (c *Category) IsSystemDefault() bool {
	return c.TenantID == nil
}

// VisibleTo reports whether the category can be seen by the given tenant.
// System defaults are visible everywhere; tenant-scoped categories only to
// their owner.
func (c *Category) VisibleTo(tenantID uuid.UUID) bool {
	return c.TenantID == nil || *c.TenantID == tenantID
}

// TreeNode is one row of the denormalized path cache, as served by tree
// listings and search. Breadcrumb fields come from the category_paths
// materialized view.
type TreeNode struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	ParentID      *uuid.UUID  `json:"parent_id"`
	TenantID      *uuid.UUID  `json:"tenant_id"`
	Path          string      `json:"path"`
	DisplayPath   string      `json:"display_path"`
	AncestorIDs   []uuid.UUID `json:"ancestor_ids"`
	AncestorNames []string    `json:"ancestor_names"`
	Depth         int         `json:"depth"`
	SortOrder     int         `json:"sort_order"`
	UsageCount    int         `json:"usage_count"`
	ChildCount    int         `json:"child_count"`
	// HasMore flags nodes sitting on the requested depth cap that still
	// have active children below it.
	HasMore bool `json:"has_more"`
	// Relevance is only populated by search results.
	Relevance int `json:"relevance,omitempty"`
}

// Tenant mirrors the external tenant registry. The engine only reads it, to
// validate scoping on create and to find orphaned categories during
// maintenance.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
