// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hierarchy holds the pure tree math for the category engine:
// materialized-path and level calculation, cycle detection for moves, and
// descendant path rewriting. Nothing here touches the database — callers
// pass fresh snapshots of the rows involved.
package hierarchy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MaddisonM79/market-planner/internal/slug"
)

// Separator joins path segments. Segment slugs never contain it, so a
// descendant test is a plain prefix match on Path + Separator.
const Separator = "/"

// MaxDepth caps tree depth. The path cache rebuild stops recursing here;
// deeper structures are a modeling error, not a supported case.
const MaxDepth = 10

var (
	// ErrCycle is returned when a move would make a category its own
	// ancestor.
	ErrCycle = errors.New("cannot move a category under its own descendant")

	// ErrInvalidName is returned for names that produce no usable path
	// segment or contain the path separator.
	ErrInvalidName = errors.New("invalid category name")
)

// ValidateName rejects names that cannot become a path segment: empty or
// whitespace-only names, names containing the separator, and names whose
// slug collapses to nothing.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.Contains(trimmed, Separator) {
		return fmt.Errorf("%w: name %q contains %q", ErrInvalidName, name, Separator)
	}
	if slug.Generate(trimmed) == "" {
		return fmt.Errorf("%w: name %q has no usable characters", ErrInvalidName, name)
	}
	return nil
}

// ComputePath returns the materialized path and level for a category named
// name under the given parent path/level. A nil-parent call is expressed by
// parentPath == "" and yields a root: path "/<slug>", level 0.
func ComputePath(name, parentPath string, parentLevel int) (string, int) {
	segment := slug.Generate(name)
	if parentPath == "" {
		return Separator + segment, 0
	}
	return parentPath + Separator + segment, parentLevel + 1
}

// CheckMove verifies that reparenting the node at nodePath under the
// candidate parent would not create a cycle. The candidate is a descendant
// iff its path extends nodePath by at least one segment; moving a node under
// itself is the degenerate case. Returns ErrCycle on violation.
func CheckMove(nodePath, candidateParentPath string) error {
	if candidateParentPath == nodePath {
		return ErrCycle
	}
	if strings.HasPrefix(candidateParentPath, nodePath+Separator) {
		return ErrCycle
	}
	return nil
}

// RewritePath maps a descendant's path from the old subtree root to the new
// one: the suffix beyond oldRoot is reattached to newRoot. The caller must
// have verified the descendant actually lives under oldRoot.
func RewritePath(descendantPath, oldRoot, newRoot string) string {
	return newRoot + strings.TrimPrefix(descendantPath, oldRoot)
}

// IsDescendantPath reports whether path lives strictly below root.
func IsDescendantPath(path, root string) bool {
	return strings.HasPrefix(path, root+Separator)
}
