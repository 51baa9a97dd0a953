package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kakdoma/internal/checklist"
	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

// ChecklistHandler exposes checklist evaluation over HTTP.
type ChecklistHandler struct {
	engine *checklist.Engine
	crm    port.CRMConnector
}

// NewChecklistHandler creates a new ChecklistHandler.
func NewChecklistHandler(engine *checklist.Engine, crm port.CRMConnector) *ChecklistHandler {
	return &ChecklistHandler{engine: engine, crm: crm}
}

// EvaluateInput is the DTO for a single-resident checklist evaluation.
type EvaluateInput struct {
	CorrelationID   string                    `json:"correlation_id" binding:"required"`
	Resident        domain.ResidentProfile    `json:"resident" binding:"required"`
	Documents       []domain.ResidentDocument `json:"documents"`
	Override        *domain.OverrideRequest   `json:"override,omitempty"`
	OverrideAllowed bool                      `json:"override_allowed"`
	DealID          string                    `json:"deal_id,omitempty"`
}

// EvaluateOutput carries the FSM verdict alongside the detailed result.
type EvaluateOutput struct {
	Status  domain.FSMStatus        `json:"status"`
	AuditID string                  `json:"audit_id"`
	Result  *domain.ChecklistResult `json:"result"`
}

// EvaluateDealInput is the DTO for evaluating every resident on a deal.
type EvaluateDealInput struct {
	Residents []domain.ResidentProfile  `json:"residents" binding:"required"`
	Documents []domain.ResidentDocument `json:"documents"`
}

// Evaluate handles POST /api/v1/checklist/evaluate
func (h *ChecklistHandler) Evaluate(c *gin.Context) {
	var input EvaluateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	// Evaluate is deterministic for a fixed now, so the detailed result here
	// matches the one EvaluateForFSM audits below.
	result, err := h.engine.Evaluate(ctx, input.Resident, input.Documents, input.Override, now)
	if err != nil {
		HandleError(c, err)
		return
	}

	status, auditID, err := h.engine.EvaluateForFSM(ctx, input.CorrelationID, input.Resident, input.Documents, input.Override, input.OverrideAllowed, now)
	if err != nil {
		HandleError(c, err)
		return
	}

	if input.DealID != "" {
		// the CRM stage mirrors the verdict; a blocked stage is a normal
		// outcome here, not a request failure
		if err := h.engine.EnforceCRMStage(ctx, h.crm, input.DealID, result); err != nil {
			status2, code, msg := MapDomainError(err)
			if code != "CHECKLIST_BLOCKED" {
				RespondError(c, status2, code, msg)
				return
			}
		}
	}

	RespondOK(c, EvaluateOutput{Status: status, AuditID: auditID, Result: result})
}

// EvaluateDeal handles POST /api/v1/checklist/deals/evaluate
func (h *ChecklistHandler) EvaluateDeal(c *gin.Context) {
	var input EvaluateDealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	results, err := h.engine.EvaluateDeal(c.Request.Context(), input.Residents, input.Documents, time.Now())
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, results)
}
