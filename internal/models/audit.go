// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit operation tags for structural category mutations.
const (
	AuditOpMove   = "MOVE"
	AuditOpDelete = "DELETE"
)

// AuditRecord is one append-only entry in the audit log. Old/NewValues carry
// JSON snapshots of the mutated row; the record is written in the same
// transaction as the mutation it describes.
type AuditRecord struct {
	ID             uuid.UUID      `json:"id"`
	TenantID       *uuid.UUID     `json:"tenant_id"`
	TableName      string         `json:"table_name"`
	RecordID       uuid.UUID      `json:"record_id"`
	Operation      string         `json:"operation"`
	OldValues      map[string]any `json:"old_values"`
	NewValues      map[string]any `json:"new_values"`
	UserID         *uuid.UUID     `json:"user_id"`
	BusinessReason string         `json:"business_reason"`
	CreatedAt      time.Time      `json:"created_at"`
}
