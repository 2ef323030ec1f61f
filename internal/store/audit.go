// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/models"
)

// AuditStore reads back audit entries. Writes happen through insertAudit
// inside the mutating transaction, so an audit failure rolls the whole
// mutation back.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore returns a new AuditStore.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// insertAudit appends one audit record. It runs against whatever dbtx the
// caller is in — for structural mutations that is always the mutation's own
// transaction.
func insertAudit(q dbtx, rec *models.AuditRecord) error {
	oldJSON, err := json.Marshal(rec.OldValues)
	if err != nil {
		return fmt.Errorf("marshal audit old values: %w", err)
	}
	newJSON, err := json.Marshal(rec.NewValues)
	if err != nil {
		return fmt.Errorf("marshal audit new values: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO audit_logs (tenant_id, table_name, record_id, operation,
		                        old_values, new_values, user_id, business_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.TenantID, rec.TableName, rec.RecordID, rec.Operation,
		oldJSON, newJSON, rec.UserID, rec.BusinessReason)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// FindByRecord returns all audit entries for one record, newest first.
func (s *AuditStore) FindByRecord(tableName string, recordID uuid.UUID) ([]models.AuditRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, table_name, record_id, operation,
		       old_values, new_values, user_id, business_reason, created_at
		FROM audit_logs
		WHERE table_name = $1 AND record_id = $2
		ORDER BY created_at DESC
	`, tableName, recordID)
	if err != nil {
		return nil, fmt.Errorf("find audit records: %w", err)
	}
	defer rows.Close()

	var items []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		var oldJSON, newJSON []byte
		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.TableName, &rec.RecordID, &rec.Operation,
			&oldJSON, &newJSON, &rec.UserID, &rec.BusinessReason, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &rec.OldValues); err != nil {
				return nil, fmt.Errorf("unmarshal audit old values: %w", err)
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &rec.NewValues); err != nil {
				return nil, fmt.Errorf("unmarshal audit new values: %w", err)
			}
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}
