package port

import (
	"context"

	"kakdoma/internal/domain"
)

// CRMConnector abstracts the deal-management system consuming intake results.
// Implementations own their retry policy; callers treat errors as final.
type CRMConnector interface {
	CreateOrUpdateResident(ctx context.Context, profile domain.ResidentProfile) (*domain.CRMReceipt, error)
	AttachDocumentLinks(ctx context.Context, residentID string, links []string) error
	SendResult(ctx context.Context, n domain.ResultNotification) error
	BlockStage(ctx context.Context, dealID, reason string) error
	UnblockStage(ctx context.Context, dealID string) error
	WriteChecklistSnapshot(ctx context.Context, dealID string, result domain.ChecklistResult) error
}
