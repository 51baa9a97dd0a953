package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"kakdoma/internal/auth"
	"kakdoma/internal/checklist"
	"kakdoma/internal/config"
	"kakdoma/internal/crm/noop"
	"kakdoma/internal/crm/webhook"
	"kakdoma/internal/decision"
	"kakdoma/internal/handler"
	"kakdoma/internal/metrics"
	"kakdoma/internal/orchestrator"
	"kakdoma/internal/port"
	"kakdoma/internal/provider"
	_ "kakdoma/internal/provider/ocrspace"
	_ "kakdoma/internal/provider/yandex"
	"kakdoma/internal/quality"
	"kakdoma/internal/repository/memory"
	"kakdoma/internal/repository/postgres"
	"kakdoma/internal/router"
	"kakdoma/internal/storage/httpmedia"
	s3storage "kakdoma/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Persistence: in-memory by default, postgres when configured
	var (
		db        *sqlx.DB
		jobRepo   port.JobRepository
		hashIndex port.DocumentHashIndex
		auditSink port.ChecklistAuditSink
	)
	switch cfg.Repository.Driver {
	case "postgres":
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		jobRepo = postgres.NewJobRepo(db)
		hashIndex = postgres.NewHashIndex(db)
		auditSink = postgres.NewChecklistAuditRepo(db)
	case "memory", "":
		jobRepo = memory.NewJobRepo()
		hashIndex = memory.NewHashIndex()
		auditSink = memory.NewChecklistAuditSink()
	default:
		return fmt.Errorf("unknown repository driver: %s", cfg.Repository.Driver)
	}

	// Media storage
	var media port.MediaStorage
	switch cfg.Storage.Provider {
	case "s3":
		media, err = s3storage.NewStorage(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
	case "http", "":
		media = httpmedia.NewStorage(&cfg.Storage)
	default:
		return fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}

	// OCR providers
	local, err := provider.New(&cfg.Providers.Local)
	if err != nil {
		return fmt.Errorf("failed to initialize local provider: %w", err)
	}
	remote, err := provider.New(&cfg.Providers.Fallback)
	if err != nil {
		return fmt.Errorf("failed to initialize fallback provider: %w", err)
	}
	fallback := provider.NewFallback([]port.OCRProvider{remote})

	// CRM connector
	var crm port.CRMConnector
	switch cfg.CRM.Provider {
	case "webhook":
		crm = webhook.NewConnector(&cfg.CRM)
	case "noop", "":
		crm = noop.NewConnector()
	default:
		return fmt.Errorf("unknown crm provider: %s", cfg.CRM.Provider)
	}

	m := metrics.New()
	analyzer := quality.NewAnalyzer(cfg.Quality.BlurThreshold, cfg.Decision.FallbackThreshold)
	decider := decision.NewEngine(decision.Config{
		AutoAcceptConfidence:   cfg.Decision.AutoAcceptConfidence,
		FallbackThreshold:      cfg.Decision.FallbackThreshold,
		ManualAfterSecondCycle: cfg.Decision.ManualAfterSecondCycle,
	})

	orch := orchestrator.NewService(
		orchestrator.Config{
			LocalAttempts:    cfg.SLA.LocalAttempts,
			FallbackAttempts: cfg.SLA.FallbackAttempts,
			LocalTimeout:     cfg.SLA.LocalTimeout,
			FallbackTimeout:  cfg.SLA.FallbackTimeout,
			TotalTimeout:     cfg.SLA.TotalTimeout,
		},
		jobRepo, media, local, fallback, hashIndex, crm, analyzer, decider, m,
	)

	// Checklist engine
	auditLogger := checklist.NewAuditLogger(auditSink, cfg.Checklist.Version)
	engine := checklist.NewEngine(checklist.Config{
		ConfidenceThreshold: cfg.Checklist.ConfidenceThreshold,
		ExpiryGraceDays:     cfg.Checklist.ExpiryGraceDays,
		PrivilegedRole:      cfg.Checklist.PrivilegedRole,
	}, checklist.DefaultRegistry(), auditLogger)

	tokens := auth.NewTokenService(cfg.JWT)

	ocrH := handler.NewOCRHandler(orch)
	checklistH := handler.NewChecklistHandler(engine, crm)
	webhookH := handler.NewWebhookHandler()
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, tokens, ocrH, checklistH, webhookH, healthH, m)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
