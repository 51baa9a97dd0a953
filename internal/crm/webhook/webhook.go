package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"kakdoma/internal/config"
	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

// Connector is an HTTP CRM connector: every call posts a JSON envelope to the
// configured webhook. Deliveries retry with a flat delay up to MaxRetries;
// after that the error surfaces to the caller, who decides whether to care.
type Connector struct {
	url        string
	authToken  string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
}

// NewConnector creates a webhook CRM connector.
func NewConnector(cfg *config.CRMConfig) port.CRMConnector {
	timeout := cfg.SendTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 500 * time.Millisecond
	}
	return &Connector{
		url:        cfg.WebhookURL,
		authToken:  cfg.AuthToken,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		client:     &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

func (c *Connector) CreateOrUpdateResident(ctx context.Context, profile domain.ResidentProfile) (*domain.CRMReceipt, error) {
	if err := c.post(ctx, envelope{Event: "resident_upsert", Payload: profile}); err != nil {
		return nil, err
	}
	return &domain.CRMReceipt{ResidentID: profile.ResidentID}, nil
}

func (c *Connector) AttachDocumentLinks(ctx context.Context, residentID string, links []string) error {
	return c.post(ctx, envelope{Event: "attach_links", Payload: map[string]interface{}{
		"resident_id": residentID,
		"links":       links,
	}})
}

func (c *Connector) SendResult(ctx context.Context, n domain.ResultNotification) error {
	return c.post(ctx, envelope{Event: "ocr_result", Payload: n})
}

func (c *Connector) BlockStage(ctx context.Context, dealID, reason string) error {
	return c.post(ctx, envelope{Event: "block_stage", Payload: map[string]string{
		"deal_id": dealID,
		"reason":  reason,
	}})
}

func (c *Connector) UnblockStage(ctx context.Context, dealID string) error {
	return c.post(ctx, envelope{Event: "unblock_stage", Payload: map[string]string{
		"deal_id": dealID,
	}})
}

func (c *Connector) WriteChecklistSnapshot(ctx context.Context, dealID string, result domain.ChecklistResult) error {
	return c.post(ctx, envelope{Event: "checklist_snapshot", Payload: map[string]interface{}{
		"deal_id":   dealID,
		"checklist": result,
	}})
}

func (c *Connector) post(ctx context.Context, env envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("webhook.Connector: marshaling %s: %w", env.Event, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		lastErr = c.postOnce(ctx, env.Event, body)
		if lastErr == nil {
			return nil
		}
		log.Printf("webhook.Connector: %s attempt %d: %v", env.Event, attempt+1, lastErr)
	}
	return fmt.Errorf("webhook.Connector: %s exhausted retries: %w", env.Event, lastErr)
}

func (c *Connector) postOnce(ctx context.Context, event string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: status %d", event, resp.StatusCode)
	}
	return nil
}
