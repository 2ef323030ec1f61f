// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation limits. Structural rules (separators, slug survival, depth) are
// enforced in the hierarchy and store packages; these guard the HTTP surface.
const (
	maxNameLength   = 100
	maxReasonLength = 500
	maxTermLength   = 100
	maxBatchMoves   = 50
)

// validateCreate checks a creation request. Returns an error message, or
// empty string if valid.
func validateCreate(typeName, name string) string {
	if strings.TrimSpace(typeName) == "" {
		return "type is required"
	}
	if strings.TrimSpace(name) == "" {
		return "name is required"
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Sprintf("name must be at most %d characters", maxNameLength)
	}
	return ""
}

// validateReason checks an optional audit reason.
func validateReason(reason string) string {
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return fmt.Sprintf("reason must be at most %d characters", maxReasonLength)
	}
	return ""
}

// validateBatch checks a batch move request.
func validateBatch(moves int, reason string) string {
	if moves == 0 {
		return "moves must not be empty"
	}
	if moves > maxBatchMoves {
		return fmt.Sprintf("at most %d moves per batch", maxBatchMoves)
	}
	return validateReason(reason)
}

// validateSearchTerm checks a search term. Blank terms are valid and yield
// an empty result set.
func validateSearchTerm(term string) string {
	if utf8.RuneCountInString(term) > maxTermLength {
		return fmt.Sprintf("search term must be at most %d characters", maxTermLength)
	}
	return ""
}
