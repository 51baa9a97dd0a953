package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"kakdoma/internal/decision"
	"kakdoma/internal/domain"
	"kakdoma/internal/metrics"
	"kakdoma/internal/mrz"
	"kakdoma/internal/port"
	"kakdoma/internal/quality"
)

// Config bounds the per-job processing budget.
type Config struct {
	LocalAttempts    int
	FallbackAttempts int
	LocalTimeout     time.Duration
	FallbackTimeout  time.Duration
	TotalTimeout     time.Duration
}

// Service drives intake jobs through the processing state machine.
type Service interface {
	Submit(ctx context.Context, correlationID, mediaRef string) (*domain.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, offset, limit int) ([]domain.Job, int, error)
	ApplyCorrections(ctx context.Context, id uuid.UUID, fields map[string]string, actor string) (*domain.Job, error)
}

type service struct {
	cfg      Config
	repo     port.JobRepository
	storage  port.MediaStorage
	local    port.OCRProvider
	fallback port.OCRProvider
	hashes   port.DocumentHashIndex
	crm      port.CRMConnector
	analyzer *quality.Analyzer
	decider  *decision.Engine
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates the job orchestrator.
func NewService(
	cfg Config,
	repo port.JobRepository,
	storage port.MediaStorage,
	local port.OCRProvider,
	fallback port.OCRProvider,
	hashes port.DocumentHashIndex,
	crm port.CRMConnector,
	analyzer *quality.Analyzer,
	decider *decision.Engine,
	m *metrics.Metrics,
) Service {
	return &service{
		cfg:      cfg,
		repo:     repo,
		storage:  storage,
		local:    local,
		fallback: fallback,
		hashes:   hashes,
		crm:      crm,
		analyzer: analyzer,
		decider:  decider,
		metrics:  m,
		now:      time.Now,
	}
}

// Submit registers a job and processes it to a terminal state within the
// configured budget. The returned job is terminal unless the context was
// cancelled mid-flight.
func (s *service) Submit(ctx context.Context, correlationID, mediaRef string) (*domain.Job, error) {
	if mediaRef == "" {
		return nil, fmt.Errorf("media ref is required: %w", domain.ErrInvalidInput)
	}

	now := s.now()
	job := &domain.Job{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		MediaRef:      mediaRef,
		Status:        domain.JobStatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.audit(job, "submitted", map[string]interface{}{"media_ref": mediaRef})
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("orchestrator.Submit: %w", err)
	}

	s.process(ctx, job)
	return job, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, offset, limit int) ([]domain.Job, int, error) {
	return s.repo.List(ctx, offset, limit)
}

// process runs the local and fallback phases and always leaves the job in a
// terminal state (cancellation settles as failed).
func (s *service) process(ctx context.Context, job *domain.Job) {
	start := s.now()

	job.Status = domain.JobStatusProcessing
	s.persist(ctx, job)

	payload, contentHash, err := s.storage.Fetch(ctx, job.MediaRef)
	if err != nil {
		log.Printf("orchestrator.process: fetch %s: %v", job.MediaRef, err)
		s.audit(job, "fetch_failed", map[string]interface{}{"error": err.Error()})
		s.finalize(ctx, job, domain.JobStatusFailed, nil, "fetch_failed", start)
		return
	}
	job.ContentHash = contentHash
	s.audit(job, "media_fetched", map[string]interface{}{"content_hash": contentHash})

	var last *domain.OCRResult

	// local phase
	for attempt := 0; attempt < s.cfg.LocalAttempts; attempt++ {
		if s.budgetExceeded(ctx, job, start) {
			s.settleExhausted(ctx, job, last, start)
			return
		}
		res, done := s.runCycle(ctx, job, s.local, payload, s.cfg.LocalTimeout, start)
		if done {
			return
		}
		if res != nil {
			last = res
		}
	}

	// fallback phase
	for attempt := 0; attempt < s.cfg.FallbackAttempts; attempt++ {
		if s.budgetExceeded(ctx, job, start) {
			s.settleExhausted(ctx, job, last, start)
			return
		}
		s.metrics.FallbackCalls.Inc()
		res, done := s.runCycle(ctx, job, s.fallback, payload, s.cfg.FallbackTimeout, start)
		if done {
			return
		}
		if res != nil {
			last = res
		}
	}

	s.audit(job, "sla_exhausted", map[string]interface{}{"cycles": job.CycleCount})
	s.settleExhausted(ctx, job, last, start)
}

// runCycle executes one extraction attempt end to end. done reports that the
// job reached a terminal state.
func (s *service) runCycle(ctx context.Context, job *domain.Job, provider port.OCRProvider, payload []byte, timeout time.Duration, start time.Time) (*domain.OCRResult, bool) {
	job.CycleCount++
	cycle := job.CycleCount
	fromFallback := provider == s.fallback

	out, err := s.extract(ctx, provider, payload, job.MediaRef, timeout)
	if err != nil {
		log.Printf("orchestrator.runCycle: job %s cycle %d: %s: %v", job.ID, cycle, provider.Name(), err)
		s.audit(job, "attempt_failed", map[string]interface{}{
			"cycle":    cycle,
			"provider": provider.Name(),
			"error":    err.Error(),
		})
		s.persist(ctx, job)
		return nil, false
	}

	rec := mrz.ParseText(out.Text, s.now())
	qual := s.analyzer.Analyze(payload, rec)
	needsRetry := s.analyzer.NeedsRetry(qual, rec)

	result := &domain.OCRResult{
		Quality: qual,
		MRZ:     rec,
		Text:    out.Text,
		Source:  out.Source,
	}

	d := s.decider.Decide(rec, qual, needsRetry, cycle)
	s.audit(job, "decision", map[string]interface{}{
		"cycle":       cycle,
		"provider":    provider.Name(),
		"branch":      string(d.Branch),
		"confidence":  qual.NormalizedConfidence,
		"checksum_ok": rec.ChecksumOK,
		"needs_retry": needsRetry,
	})

	switch d.Branch {
	case decision.BranchAutoAccept:
		s.settleAccepted(ctx, job, result, fromFallback, start)
		return result, true
	case decision.BranchManualReview:
		s.finalize(ctx, job, domain.JobStatusManualReview, result, "needs_operator", start)
		return result, true
	case decision.BranchPreview:
		if fromFallback {
			// the fallback provider is the end of the escalation chain; a
			// previewable result from it is as good as this job will get
			s.settleAccepted(ctx, job, result, true, start)
			return result, true
		}
		s.persist(ctx, job)
		return result, false
	default: // soft fail, keep escalating
		s.persist(ctx, job)
		return result, false
	}
}

// settleAccepted finishes a successful extraction: duplicate gate first, then
// hash registration and the terminal status.
func (s *service) settleAccepted(ctx context.Context, job *domain.Job, result *domain.OCRResult, fromFallback bool, start time.Time) {
	if result.MRZ.DocumentHash != "" {
		seen, err := s.hashes.Seen(ctx, result.MRZ.DocumentHash)
		if err != nil {
			log.Printf("orchestrator.settleAccepted: hash lookup for job %s: %v", job.ID, err)
		}
		if seen {
			result.DuplicateDetected = true
			s.audit(job, "duplicate_detected", map[string]interface{}{"content_hash": job.ContentHash})
			s.finalize(ctx, job, domain.JobStatusDuplicateDetected, result, "duplicate", start)
			return
		}
		if err := s.hashes.Register(ctx, result.MRZ.DocumentHash); err != nil {
			log.Printf("orchestrator.settleAccepted: hash register for job %s: %v", job.ID, err)
		}
	}

	status := domain.JobStatusAutoAccepted
	reason := ""
	if fromFallback {
		status = domain.JobStatusFallbackUsed
		reason = "fallback_provider"
	}
	s.finalize(ctx, job, status, result, reason, start)
}

// settleExhausted ends a job whose budget ran out: manual review when the
// cycle history allows it, failure otherwise.
func (s *service) settleExhausted(ctx context.Context, job *domain.Job, last *domain.OCRResult, start time.Time) {
	if s.decider.ManualEligible(job.CycleCount) {
		s.finalize(ctx, job, domain.JobStatusManualReview, last, "sla_exhausted", start)
		return
	}
	s.finalize(ctx, job, domain.JobStatusFailed, last, "sla_exhausted", start)
}

// budgetExceeded checks cancellation and the total budget at an iteration
// boundary, auditing a breach the first time it trips.
func (s *service) budgetExceeded(ctx context.Context, job *domain.Job, start time.Time) bool {
	if ctx.Err() != nil {
		s.audit(job, "cancelled", map[string]interface{}{"error": ctx.Err().Error()})
		return true
	}
	if s.cfg.TotalTimeout > 0 && s.now().Sub(start) > s.cfg.TotalTimeout {
		s.metrics.SLABreaches.Inc()
		s.audit(job, "sla_breach", map[string]interface{}{"elapsed": s.now().Sub(start).String()})
		return true
	}
	return false
}

// extract wraps one provider call in a per-attempt timeout. A timed-out call
// is abandoned, not cancelled: it runs to completion in the background and
// its result is discarded, so a slow provider cannot poison later cycles
// through a shared cancelled context.
func (s *service) extract(ctx context.Context, provider port.OCRProvider, payload []byte, mediaRef string, timeout time.Duration) (*port.ExtractOutput, error) {
	type extractResult struct {
		out *port.ExtractOutput
		err error
	}
	ch := make(chan extractResult, 1)
	go func() {
		out, err := provider.Extract(ctx, port.ExtractInput{Payload: payload, MediaRef: mediaRef})
		ch <- extractResult{out: out, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%s provider timed out after %s", provider.Name(), timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finalize records the terminal state, persists it and notifies the CRM.
// Connector failures are logged and never retried here; the webhook connector
// carries its own retry policy.
func (s *service) finalize(ctx context.Context, job *domain.Job, status domain.JobStatus, result *domain.OCRResult, reason string, start time.Time) {
	job.Status = status
	job.Result = result
	details := map[string]interface{}{"status": string(status)}
	if reason != "" {
		details["reason"] = reason
	}
	s.audit(job, "terminal", details)
	s.persist(ctx, job)

	s.metrics.JobCompleted(string(status), s.now().Sub(start).Seconds())
	s.notify(ctx, job, reason)
}

func (s *service) notify(ctx context.Context, job *domain.Job, reason string) {
	n := domain.ResultNotification{
		JobID:         job.ID,
		CorrelationID: job.CorrelationID,
		Status:        job.Status,
		Reason:        reason,
	}
	if job.Result != nil {
		n.DocumentHash = job.Result.MRZ.DocumentHash
		n.DuplicateDetected = job.Result.DuplicateDetected
	}

	if job.Status == domain.JobStatusAutoAccepted || job.Status == domain.JobStatusFallbackUsed {
		profile := domain.ResidentProfile{
			ResidentID:  job.CorrelationID,
			Nationality: job.Result.MRZ.Nationality,
		}
		if _, err := s.crm.CreateOrUpdateResident(ctx, profile); err != nil {
			log.Printf("orchestrator.notify: resident upsert for job %s: %v", job.ID, err)
		}
		if err := s.crm.AttachDocumentLinks(ctx, profile.ResidentID, []string{job.MediaRef}); err != nil {
			log.Printf("orchestrator.notify: attach links for job %s: %v", job.ID, err)
		}
	}

	if err := s.crm.SendResult(ctx, n); err != nil {
		log.Printf("orchestrator.notify: send result for job %s: %v", job.ID, err)
	}
}

// ApplyCorrections merges an operator's field-level patch into a job parked
// in manual review and re-runs the terminal bookkeeping. This is the only
// path that re-opens a terminal state.
func (s *service) ApplyCorrections(ctx context.Context, id uuid.UUID, fields map[string]string, actor string) (*domain.Job, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusManualReview {
		return nil, fmt.Errorf("job %s is %s: %w", id, job.Status, domain.ErrInvalidJobState)
	}
	if job.Result == nil {
		job.Result = &domain.OCRResult{}
	}

	applied := make([]string, 0, len(fields))
	for field, value := range fields {
		if applyField(&job.Result.MRZ, field, value) {
			applied = append(applied, field)
		} else {
			return nil, fmt.Errorf("unknown field %q: %w", field, domain.ErrInvalidInput)
		}
	}
	job.Result.Source = string(domain.SourceManual)
	job.Result.MRZ.Confidence = 1.0

	s.audit(job, "manual_review_applied", map[string]interface{}{
		"actor":  actor,
		"fields": applied,
	})

	if job.Result.MRZ.DocumentHash != "" {
		if err := s.hashes.Register(ctx, job.Result.MRZ.DocumentHash); err != nil {
			log.Printf("orchestrator.ApplyCorrections: hash register for job %s: %v", job.ID, err)
		}
	}

	job.Status = domain.JobStatusAutoAccepted
	s.audit(job, "terminal", map[string]interface{}{"status": string(job.Status), "reason": "corrections_applied"})
	s.persist(ctx, job)
	s.notify(ctx, job, "corrections_applied")
	return job, nil
}

func applyField(rec *domain.MRZRecord, field, value string) bool {
	switch field {
	case "document_type":
		rec.DocumentType = value
	case "issuing_country":
		rec.IssuingCountry = value
	case "surname":
		rec.Surname = value
	case "given_names":
		rec.GivenNames = value
	case "nationality":
		rec.Nationality = value
	case "birth_date":
		rec.BirthDate = value
	case "sex":
		rec.Sex = value
	case "expiry_date":
		rec.ExpiryDate = value
	default:
		return false
	}
	return true
}

func (s *service) audit(job *domain.Job, event string, details map[string]interface{}) {
	job.AuditTrail = append(job.AuditTrail, domain.AuditEntry{
		Timestamp: s.now(),
		Event:     event,
		Details:   details,
	})
	job.UpdatedAt = s.now()
}

func (s *service) persist(ctx context.Context, job *domain.Job) {
	if err := s.repo.Update(ctx, job); err != nil {
		log.Printf("orchestrator.persist: job %s: %v", job.ID, err)
	}
}
