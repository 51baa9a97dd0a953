package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"kakdoma/internal/domain"
	"kakdoma/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "JOB_NOT_FOUND", "job not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", "invalid request input"
	case errors.Is(err, domain.ErrInvalidJobState):
		return http.StatusConflict, "INVALID_JOB_STATE", "job is not in a state that allows this action"
	case errors.Is(err, domain.ErrDuplicateDocument):
		return http.StatusConflict, "DUPLICATE_DOCUMENT", "document already registered"
	case errors.Is(err, domain.ErrNationalityRuleMissing):
		return http.StatusUnprocessableEntity, "NATIONALITY_RULE_MISSING", "no checklist rule for this nationality"
	case errors.Is(err, domain.ErrChecklistBlocked):
		return http.StatusConflict, "CHECKLIST_BLOCKED", "checklist requirements not satisfied"
	case errors.Is(err, domain.ErrConflictingDocuments):
		return http.StatusConflict, "CONFLICTING_DOCUMENTS", "document bundle contains conflicting documents"
	case errors.Is(err, domain.ErrMediaNotFound):
		return http.StatusUnprocessableEntity, "MEDIA_NOT_FOUND", "media reference could not be fetched"
	case errors.Is(err, domain.ErrMissingResult):
		return http.StatusConflict, "MISSING_RESULT", "job has no recognition result yet"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "forbidden"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		log.Printf("handler.HandleError: [%s] internal error: %v",
			c.GetString(middleware.ContextKeyRequestID), err)
	}
	RespondError(c, status, code, msg)
}
