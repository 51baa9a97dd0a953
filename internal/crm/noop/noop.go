package noop

import (
	"context"
	"log"

	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

// Connector is a CRM connector that logs and discards everything. Used in
// development and when no CRM is wired up.
type Connector struct{}

// NewConnector creates a no-op CRM connector.
func NewConnector() port.CRMConnector {
	return &Connector{}
}

func (c *Connector) CreateOrUpdateResident(ctx context.Context, profile domain.ResidentProfile) (*domain.CRMReceipt, error) {
	log.Printf("noop.Connector: resident upsert %s", profile.ResidentID)
	return &domain.CRMReceipt{ResidentID: profile.ResidentID}, nil
}

func (c *Connector) AttachDocumentLinks(ctx context.Context, residentID string, links []string) error {
	log.Printf("noop.Connector: attach %d links to %s", len(links), residentID)
	return nil
}

func (c *Connector) SendResult(ctx context.Context, n domain.ResultNotification) error {
	log.Printf("noop.Connector: result %s for job %s", n.Status, n.JobID)
	return nil
}

func (c *Connector) BlockStage(ctx context.Context, dealID, reason string) error {
	log.Printf("noop.Connector: block stage %s: %s", dealID, reason)
	return nil
}

func (c *Connector) UnblockStage(ctx context.Context, dealID string) error {
	log.Printf("noop.Connector: unblock stage %s", dealID)
	return nil
}

func (c *Connector) WriteChecklistSnapshot(ctx context.Context, dealID string, result domain.ChecklistResult) error {
	log.Printf("noop.Connector: checklist snapshot for %s (satisfied=%v)", dealID, result.AllRequiredSatisfied)
	return nil
}
