package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"kakdoma/internal/domain"
)

// MockCRMConnector is a mock implementation of port.CRMConnector.
type MockCRMConnector struct {
	mock.Mock
}

func (m *MockCRMConnector) CreateOrUpdateResident(ctx context.Context, profile domain.ResidentProfile) (*domain.CRMReceipt, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CRMReceipt), args.Error(1)
}

func (m *MockCRMConnector) AttachDocumentLinks(ctx context.Context, residentID string, links []string) error {
	args := m.Called(ctx, residentID, links)
	return args.Error(0)
}

func (m *MockCRMConnector) SendResult(ctx context.Context, n domain.ResultNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockCRMConnector) BlockStage(ctx context.Context, dealID, reason string) error {
	args := m.Called(ctx, dealID, reason)
	return args.Error(0)
}

func (m *MockCRMConnector) UnblockStage(ctx context.Context, dealID string) error {
	args := m.Called(ctx, dealID)
	return args.Error(0)
}

func (m *MockCRMConnector) WriteChecklistSnapshot(ctx context.Context, dealID string, result domain.ChecklistResult) error {
	args := m.Called(ctx, dealID, result)
	return args.Error(0)
}
