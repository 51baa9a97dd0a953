package port

import (
	"context"

	"kakdoma/internal/domain"
)

// ChecklistAuditSink persists checklist decision records. Append-only.
type ChecklistAuditSink interface {
	Append(ctx context.Context, record domain.ChecklistAuditRecord) error
}
