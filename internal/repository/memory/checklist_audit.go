package memory

import (
	"context"
	"sync"

	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

type checklistAuditSink struct {
	mu      sync.Mutex
	records []domain.ChecklistAuditRecord
}

// NewChecklistAuditSink creates an in-memory ChecklistAuditSink.
func NewChecklistAuditSink() port.ChecklistAuditSink {
	return &checklistAuditSink{}
}

func (s *checklistAuditSink) Append(ctx context.Context, record domain.ChecklistAuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything appended so far. Test helper.
func (s *checklistAuditSink) Records() []domain.ChecklistAuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChecklistAuditRecord, len(s.records))
	copy(out, s.records)
	return out
}
