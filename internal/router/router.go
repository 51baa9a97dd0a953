package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kakdoma/internal/auth"
	"kakdoma/internal/config"
	"kakdoma/internal/handler"
	"kakdoma/internal/metrics"
	"kakdoma/internal/middleware"
)

// Operator roles recognized by the API.
const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	tokens auth.TokenService,
	ocrH *handler.OCRHandler,
	checklistH *handler.ChecklistHandler,
	webhookH *handler.WebhookHandler,
	healthH *handler.HealthHandler,
	m *metrics.Metrics,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	// Inbound integrations, reachable only from the internal network
	r.POST("/internal/webhooks/ocr-result", webhookH.ReceiveOCRResult)

	v1 := r.Group("/api/v1")

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))

	// Intake pipeline
	ocr := protected.Group("/ocr")
	ocr.POST("/submit", ocrH.Submit)
	ocr.GET("/jobs", ocrH.List)
	ocr.GET("/jobs/export", ocrH.Export)
	ocr.GET("/jobs/:id", ocrH.Get)
	ocr.POST("/jobs/:id/corrections", middleware.RequireRole(RoleSupervisor), ocrH.ApplyCorrections)

	// Checklist evaluation
	checklist := protected.Group("/checklist")
	checklist.POST("/evaluate", checklistH.Evaluate)
	checklist.POST("/deals/evaluate", checklistH.EvaluateDeal)

	return r
}
