// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a dependent entity holding category references. Only the
// columns the engine reads or rewrites are modeled here; the rest of the
// product schema belongs to the surrounding application.
type Product struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	Name              string     `json:"name"`
	CategoryID        *uuid.UUID `json:"category_id"`
	SubcategoryID     *uuid.UUID `json:"subcategory_id"`
	YarnWeightID      *uuid.UUID `json:"yarn_weight_id"`
	FiberTypeID       *uuid.UUID `json:"fiber_type_id"`
	DifficultyLevelID *uuid.UUID `json:"difficulty_level_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	DeletedBy         *uuid.UUID `json:"deleted_by,omitempty"`
}

// Material is the second dependent entity. Materials have no difficulty
// slot; otherwise the reference columns mirror products.
type Material struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	Name          string     `json:"name"`
	CategoryID    *uuid.UUID `json:"category_id"`
	SubcategoryID *uuid.UUID `json:"subcategory_id"`
	YarnWeightID  *uuid.UUID `json:"yarn_weight_id"`
	FiberTypeID   *uuid.UUID `json:"fiber_type_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *uuid.UUID `json:"deleted_by,omitempty"`
}
