package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"kakdoma/internal/domain"
	"kakdoma/internal/middleware"
)

// WebhookHandler receives result notifications posted back by downstream
// systems. Acknowledgement only; the payload is logged for reconciliation.
type WebhookHandler struct{}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{}
}

// ReceiveOCRResult handles POST /internal/webhooks/ocr-result
func (h *WebhookHandler) ReceiveOCRResult(c *gin.Context) {
	var n domain.ResultNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	log.Printf("handler.ReceiveOCRResult: [%s] job %s status %s duplicate=%v",
		c.GetString(middleware.ContextKeyRequestID), n.JobID, n.Status, n.DuplicateDetected)
	c.Status(http.StatusNoContent)
}
