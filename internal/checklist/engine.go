package checklist

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"kakdoma/internal/domain"
	"kakdoma/internal/mrz"
	"kakdoma/internal/port"
)

const minOverrideReasonLen = 3

// Trace decision labels.
const (
	traceRequiredDocPresent = "required_doc_present"
	traceDocSatisfied       = "doc_satisfied"
	traceLowOCRNoManual     = "low_ocr_no_manual_verification"
	traceChecksumFail       = "mrz_checksum_fail"
	traceDocExpired         = "doc_expired"
	traceOverrideUsed       = "override_used"
	traceOverrideApproved   = "override_approved"
	traceOverrideDeniedRole = "override_denied_role"
	traceOverrideDeniedRsn  = "override_denied_reason"
)

// Config holds checklist engine settings.
type Config struct {
	ConfidenceThreshold float64
	ExpiryGraceDays     int
	PrivilegedRole      string
}

// Engine evaluates a resident's documents against the nationality rule set.
// Stateless apart from its immutable configuration; safe for concurrent use.
type Engine struct {
	cfg      Config
	registry *Registry
	audit    *AuditLogger
}

// NewEngine creates a checklist engine over a populated registry.
func NewEngine(cfg Config, registry *Registry, audit *AuditLogger) *Engine {
	return &Engine{cfg: cfg, registry: registry, audit: audit}
}

// Evaluate computes the checklist outcome for one resident. Missing or
// ineligible documents are normal outcomes carried in the result; errors are
// reserved for broken input (duplicate hashes, unknown nationality).
func (e *Engine) Evaluate(ctx context.Context, profile domain.ResidentProfile, docs []domain.ResidentDocument, override *domain.OverrideRequest, now time.Time) (*domain.ChecklistResult, error) {
	if err := rejectDuplicateHashes(docs); err != nil {
		return nil, err
	}

	rule, err := e.registry.Lookup(profile.Nationality)
	if err != nil {
		return nil, err
	}

	result := &domain.ChecklistResult{}
	items := rule.Items()

	for i := range items {
		item := &items[i]
		docType := strings.TrimPrefix(item.Code, "doc::")

		candidates := docsOfType(docs, docType)
		if len(candidates) == 0 {
			result.DecisionTrace = append(result.DecisionTrace, domain.DecisionTraceEntry{
				Rule:      rule.Name,
				Input:     map[string]string{"doc_type": docType},
				Decision:  traceRequiredDocPresent + "=false",
				Timestamp: now,
			})
			result.MissingItems = append(result.MissingItems, *item)
			result.BlockingItems = append(result.BlockingItems, *item)
			continue
		}

		for _, doc := range candidates {
			verdict := e.eligible(doc)
			result.DecisionTrace = append(result.DecisionTrace, domain.DecisionTraceEntry{
				Rule: rule.Name,
				Input: map[string]string{
					"doc_type":      doc.DocType,
					"document_hash": doc.DocumentHash,
				},
				Decision:  verdict,
				Timestamp: now,
			})
			if verdict == traceDocSatisfied && !e.expired(doc, now) {
				item.Satisfied = true
				item.SatisfiedBy = doc.DocumentURL
				break
			}
			if verdict == traceDocSatisfied {
				result.DecisionTrace = append(result.DecisionTrace, domain.DecisionTraceEntry{
					Rule: rule.Name,
					Input: map[string]string{
						"doc_type":      doc.DocType,
						"document_hash": doc.DocumentHash,
						"expiry_date":   doc.ExpiryDate,
					},
					Decision:  traceDocExpired,
					Timestamp: now,
				})
			}
		}

		if item.Satisfied {
			result.SatisfiedItems = append(result.SatisfiedItems, *item)
		} else {
			result.BlockingItems = append(result.BlockingItems, *item)
		}
	}

	result.AllRequiredSatisfied = len(result.BlockingItems) == 0

	if !result.AllRequiredSatisfied && override != nil {
		e.applyOverride(result, override, now)
	}

	return result, nil
}

// eligible classifies one document against the confidence and checksum gates.
// Manual verification lifts the confidence gate only; a broken zone checksum
// always blocks.
func (e *Engine) eligible(doc domain.ResidentDocument) string {
	if doc.OCRConfidence < e.cfg.ConfidenceThreshold && !doc.Verified {
		return traceLowOCRNoManual
	}
	if !doc.MRZChecksumOK {
		return traceChecksumFail
	}
	return traceDocSatisfied
}

func (e *Engine) expired(doc domain.ResidentDocument, now time.Time) bool {
	if doc.ExpiryDate == "" {
		return false
	}
	expiry, ok := mrz.DecodeExpiryDate(doc.ExpiryDate)
	if !ok {
		return false
	}
	grace := time.Duration(e.cfg.ExpiryGraceDays) * 24 * time.Hour
	return expiry.Add(grace).Before(now)
}

// applyOverride honors a manager override on a blocked checklist. Only the
// privileged role with a substantive reason passes; denials leave a trace.
func (e *Engine) applyOverride(result *domain.ChecklistResult, override *domain.OverrideRequest, now time.Time) {
	if override.ManagerRole != e.cfg.PrivilegedRole {
		result.DecisionTrace = append(result.DecisionTrace, domain.DecisionTraceEntry{
			Rule:      traceOverrideUsed,
			Input:     map[string]string{"role": override.ManagerRole},
			Decision:  traceOverrideDeniedRole,
			Timestamp: now,
		})
		return
	}
	if len(strings.TrimSpace(override.Reason)) < minOverrideReasonLen {
		result.DecisionTrace = append(result.DecisionTrace, domain.DecisionTraceEntry{
			Rule:      traceOverrideUsed,
			Input:     map[string]string{"role": override.ManagerRole},
			Decision:  traceOverrideDeniedRsn,
			Timestamp: now,
		})
		return
	}
	result.OverrideUsed = true
	result.AllRequiredSatisfied = true
	result.DecisionTrace = append(result.DecisionTrace, domain.DecisionTraceEntry{
		Rule:      traceOverrideUsed,
		Input:     map[string]string{"role": override.ManagerRole, "reason": override.Reason},
		Decision:  traceOverrideApproved,
		Timestamp: now,
	})
}

// EvaluateForFSM evaluates a resident and maps the result onto the tri-state
// consumed by workflow callers, persisting an audit record along the way.
// overrideAllowed signals that a manager could still unblock this checklist.
func (e *Engine) EvaluateForFSM(ctx context.Context, correlationID string, profile domain.ResidentProfile, docs []domain.ResidentDocument, override *domain.OverrideRequest, overrideAllowed bool, now time.Time) (domain.FSMStatus, string, error) {
	result, err := e.Evaluate(ctx, profile, docs, override, now)
	if err != nil {
		return "", "", err
	}

	auditID, err := e.audit.Record(ctx, correlationID, profile.ResidentID, result, now)
	if err != nil {
		// the decision stands even when the audit write fails
		log.Printf("checklist.Engine.EvaluateForFSM: audit append failed: %v", err)
	}

	switch {
	case result.AllRequiredSatisfied:
		return domain.FSMStatusOK, auditID, nil
	case overrideAllowed:
		return domain.FSMStatusNeedManager, auditID, nil
	default:
		return domain.FSMStatusBlocked, auditID, nil
	}
}

// EnforceCRMStage pushes the checklist outcome to the CRM: the snapshot is
// always written, then the deal stage is blocked or unblocked. Returns
// ErrChecklistBlocked when the stage ends up blocked.
func (e *Engine) EnforceCRMStage(ctx context.Context, crm port.CRMConnector, dealID string, result *domain.ChecklistResult) error {
	if err := crm.WriteChecklistSnapshot(ctx, dealID, *result); err != nil {
		return fmt.Errorf("checklist.Engine.EnforceCRMStage: snapshot: %w", err)
	}

	if result.AllRequiredSatisfied {
		if err := crm.UnblockStage(ctx, dealID); err != nil {
			return fmt.Errorf("checklist.Engine.EnforceCRMStage: unblock: %w", err)
		}
		return nil
	}

	reason := blockReason(result)
	if err := crm.BlockStage(ctx, dealID, reason); err != nil {
		return fmt.Errorf("checklist.Engine.EnforceCRMStage: block: %w", err)
	}
	return fmt.Errorf("deal %s: %w", dealID, domain.ErrChecklistBlocked)
}

func blockReason(result *domain.ChecklistResult) string {
	codes := make([]string, 0, len(result.BlockingItems))
	for _, item := range result.BlockingItems {
		codes = append(codes, item.Code)
	}
	return "missing: " + strings.Join(codes, ", ")
}

func rejectDuplicateHashes(docs []domain.ResidentDocument) error {
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc.DocumentHash == "" {
			continue
		}
		if _, ok := seen[doc.DocumentHash]; ok {
			return fmt.Errorf("document hash repeated in batch: %w", domain.ErrDuplicateDocument)
		}
		seen[doc.DocumentHash] = struct{}{}
	}
	return nil
}

func docsOfType(docs []domain.ResidentDocument, docType string) []domain.ResidentDocument {
	var out []domain.ResidentDocument
	for _, doc := range docs {
		if doc.DocType == docType {
			out = append(out, doc)
		}
	}
	return out
}
