package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"kakdoma/internal/domain"
)

// MockIntakeService is a mock implementation of orchestrator.Service.
type MockIntakeService struct {
	mock.Mock
}

func (m *MockIntakeService) Submit(ctx context.Context, correlationID, mediaRef string) (*domain.Job, error) {
	args := m.Called(ctx, correlationID, mediaRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockIntakeService) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockIntakeService) List(ctx context.Context, offset, limit int) ([]domain.Job, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Job), args.Int(1), args.Error(2)
}

func (m *MockIntakeService) ApplyCorrections(ctx context.Context, id uuid.UUID, fields map[string]string, actor string) (*domain.Job, error) {
	args := m.Called(ctx, id, fields, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}
