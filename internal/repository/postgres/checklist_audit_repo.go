package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

type checklistAuditRepo struct {
	db *sqlx.DB
}

// NewChecklistAuditRepo creates a PostgreSQL-backed ChecklistAuditSink.
func NewChecklistAuditRepo(db *sqlx.DB) port.ChecklistAuditSink {
	return &checklistAuditRepo{db: db}
}

func (r *checklistAuditRepo) Append(ctx context.Context, record domain.ChecklistAuditRecord) error {
	decisions, err := json.Marshal(record.Decisions)
	if err != nil {
		return fmt.Errorf("checklistAuditRepo.Append: marshaling decisions: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO checklist_audit (correlation_id, resident_id, checklist_version, decisions, override_used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.CorrelationID, record.ResidentID, record.Version, decisions, record.OverrideUsed, record.Timestamp)
	if err != nil {
		return fmt.Errorf("checklistAuditRepo.Append: %w", err)
	}
	return nil
}
