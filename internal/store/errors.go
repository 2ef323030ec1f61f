// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"errors"
)

// Sentinel errors for the category engine. Handlers map these onto HTTP
// statuses with errors.Is; everything else is treated as an internal store
// failure. Cycle violations are hierarchy.ErrCycle.
var (
	// ErrNotFound covers a missing category, parent, or reassignment
	// target — including rows that exist but are not visible to the
	// caller's tenant scope.
	ErrNotFound = errors.New("category not found")

	// ErrTypeMismatch is returned when a parent or reassignment target
	// belongs to a different category type than the node.
	ErrTypeMismatch = errors.New("category type mismatch")

	// ErrTenantMismatch is returned when a move would place a category
	// under another tenant's custom category.
	ErrTenantMismatch = errors.New("tenant scope mismatch")

	// ErrInvalidStrategy is returned for an unknown deletion strategy.
	ErrInvalidStrategy = errors.New("invalid deletion strategy")

	// ErrReassignTargetRequired is returned when the reassign strategy is
	// requested without a target, or with an unusable one.
	ErrReassignTargetRequired = errors.New("reassign strategy requires a valid target category")

	// ErrNotImplemented is returned for the reserved force_delete
	// strategy. Its semantics are an open product decision; rejecting is
	// safer than guessing a destructive default.
	ErrNotImplemented = errors.New("deletion strategy not implemented")

	// ErrCustomNotAllowed is returned when creating a custom category in
	// a type that does not allow them.
	ErrCustomNotAllowed = errors.New("category type does not allow custom categories")

	// ErrPathConflict is returned when a create or move would give a
	// category the same materialized path as another active category of
	// the type. Paths are the engine's descendant keys: every subtree
	// query filters by type + path prefix, so an active path must resolve
	// to exactly one row.
	ErrPathConflict = errors.New("category path already in use")
)

// dbtx is the subset of *sql.DB and *sql.Tx the store helpers need, so the
// same queries can run standalone or inside a transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
