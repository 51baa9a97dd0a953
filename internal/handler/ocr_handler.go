package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kakdoma/internal/export"
	"kakdoma/internal/middleware"
	"kakdoma/internal/orchestrator"
)

const exportBatchLimit = 10000

// OCRHandler exposes the document intake pipeline over HTTP.
type OCRHandler struct {
	svc orchestrator.Service
}

// NewOCRHandler creates a new OCRHandler.
func NewOCRHandler(svc orchestrator.Service) *OCRHandler {
	return &OCRHandler{svc: svc}
}

// SubmitInput is the DTO for job submission.
type SubmitInput struct {
	CorrelationID string `json:"correlation_id" binding:"required"`
	MediaRef      string `json:"media_ref" binding:"required"`
}

// CorrectionsInput is the DTO for manual review corrections.
type CorrectionsInput struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// Submit handles POST /api/v1/ocr/submit
func (h *OCRHandler) Submit(c *gin.Context) {
	var input SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	job, err := h.svc.Submit(c.Request.Context(), input.CorrelationID, input.MediaRef)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, job)
}

// Get handles GET /api/v1/ocr/jobs/:id
func (h *OCRHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid job id")
		return
	}

	job, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// List handles GET /api/v1/ocr/jobs
func (h *OCRHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	jobs, total, err := h.svc.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, jobs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// ApplyCorrections handles POST /api/v1/ocr/jobs/:id/corrections
func (h *OCRHandler) ApplyCorrections(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", "invalid job id")
		return
	}

	var input CorrectionsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	actor := middleware.GetOperatorID(c)
	job, err := h.svc.ApplyCorrections(c.Request.Context(), id, input.Fields, actor)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// Export handles GET /api/v1/ocr/jobs/export and streams the job ledger as an
// XLSX workbook.
func (h *OCRHandler) Export(c *gin.Context) {
	jobs, _, err := h.svc.List(c.Request.Context(), 0, exportBatchLimit)
	if err != nil {
		HandleError(c, err)
		return
	}

	data, err := export.JobsXLSX(jobs)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("jobs-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
