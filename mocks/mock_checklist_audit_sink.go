package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"kakdoma/internal/domain"
)

// MockChecklistAuditSink is a mock implementation of port.ChecklistAuditSink.
type MockChecklistAuditSink struct {
	mock.Mock
}

func (m *MockChecklistAuditSink) Append(ctx context.Context, record domain.ChecklistAuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
