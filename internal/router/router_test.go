package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kakdoma/internal/auth"
	"kakdoma/internal/checklist"
	"kakdoma/internal/config"
	"kakdoma/internal/domain"
	"kakdoma/internal/handler"
	"kakdoma/internal/metrics"
	"kakdoma/mocks"
)

func setupTestRouter(t *testing.T) (*gin.Engine, auth.TokenService, *mocks.MockIntakeService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", Issuer: "kakdoma"})

	svc := new(mocks.MockIntakeService)

	sink := new(mocks.MockChecklistAuditSink)
	sink.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()
	engine := checklist.NewEngine(checklist.Config{
		ConfidenceThreshold: 0.80,
		PrivilegedRole:      RoleSupervisor,
	}, checklist.DefaultRegistry(), checklist.NewAuditLogger(sink, "v1"))

	crm := new(mocks.MockCRMConnector)

	r := Setup(cfg, tokens,
		handler.NewOCRHandler(svc),
		handler.NewChecklistHandler(engine, crm),
		handler.NewWebhookHandler(),
		handler.NewHealthHandler(nil),
		metrics.New(),
	)
	return r, tokens, svc
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpointsOpen(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	assert.Equal(t, http.StatusOK, get(r, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/readyz", "").Code)
}

func TestMetricsEndpointOpen(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	w := get(r, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJobsRequireAuth(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/ocr/jobs", "").Code)
}

func TestJobsWithValidToken(t *testing.T) {
	r, tokens, svc := setupTestRouter(t)
	svc.On("List", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Job{}, 0, nil)

	token, err := tokens.Issue("op-1", RoleOperator, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/ocr/jobs", token).Code)
}

func TestCorrectionsRequireSupervisor(t *testing.T) {
	r, tokens, _ := setupTestRouter(t)
	token, err := tokens.Issue("op-1", RoleOperator, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/ocr/jobs/00000000-0000-0000-0000-000000000000/corrections",
		strings.NewReader(`{"fields":{"surname":"IVANOV"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookSinkAcceptsNotification(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/internal/webhooks/ocr-result",
		strings.NewReader(`{"job_id":"11111111-1111-1111-1111-111111111111","status":"auto_accepted"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
