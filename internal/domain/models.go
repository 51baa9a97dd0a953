package domain

import (
	"time"

	"github.com/google/uuid"
)

// MRZChecks holds the per-field checksum outcomes of one parse attempt.
// Composite is only evaluated for TD3; it stays false for TD1 records.
type MRZChecks struct {
	DocumentNumber bool `json:"document_number"`
	BirthDate      bool `json:"birth_date"`
	ExpiryDate     bool `json:"expiry_date"`
	Composite      bool `json:"composite"`
}

// MRZRecord is the structured identity record produced by one parse attempt.
// It carries the document-identity hash derived from the normalized document
// number, never the raw number itself. Immutable once produced.
type MRZRecord struct {
	Format         MRZFormat `json:"format"`
	DocumentType   string    `json:"document_type"`
	IssuingCountry string    `json:"issuing_country"`
	Surname        string    `json:"surname"`
	GivenNames     string    `json:"given_names"`
	Nationality    string    `json:"nationality"`
	BirthDate      string    `json:"birth_date"`  // YYMMDD as read from the zone
	Sex            string    `json:"sex"`
	ExpiryDate     string    `json:"expiry_date"` // YYMMDD as read from the zone
	DocumentHash   string    `json:"document_hash"`
	MRZHash        string    `json:"mrz_hash"`
	Checks         MRZChecks `json:"checks"`
	ChecksumOK     bool      `json:"checksum_ok"`
	Confidence     float64   `json:"confidence"` // weighted fraction of passed checks, [0,1]
}

// OCRQuality scores one image for blur and exposure. Computed once per image
// per attempt; never mutated.
type OCRQuality struct {
	BlurScore            float64 `json:"blur_score"`
	ExposureScore        float64 `json:"exposure_score"`
	LightingOK           bool    `json:"lighting_ok"`
	NormalizedConfidence float64 `json:"normalized_confidence"`
}

// OCRResult bundles the outcome of one extraction attempt.
type OCRResult struct {
	Quality           OCRQuality `json:"quality"`
	MRZ               MRZRecord  `json:"mrz"`
	Text              string     `json:"text"`
	Source            string     `json:"source"`
	DuplicateDetected bool       `json:"duplicate_detected"`
}

// AuditEntry is one append-only event on a job's audit trail.
type AuditEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Event     string                 `json:"event"`
	Details   map[string]interface{} `json:"details"`
}

// Job is one submission moving through the intake state machine. It is owned
// exclusively by the orchestrator for its lifetime.
type Job struct {
	ID            uuid.UUID    `db:"id" json:"job_id"`
	CorrelationID string       `db:"correlation_id" json:"correlation_id"`
	MediaRef      string       `db:"media_ref" json:"media_ref"`
	Status        JobStatus    `db:"status" json:"status"`
	CycleCount    int          `db:"cycle_count" json:"cycle_count"`
	Result        *OCRResult   `db:"-" json:"result,omitempty"`
	AuditTrail    []AuditEntry `db:"-" json:"audit_trail"`
	ContentHash   string       `db:"content_hash" json:"content_hash,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// ResidentDocument is one submitted document as seen by the checklist engine.
// Consumed read-only.
type ResidentDocument struct {
	ResidentID      string            `json:"resident_id"`
	DocType         string            `json:"doc_type"`
	CountryCode     string            `json:"country_code"`
	DocumentURL     string            `json:"document_url"`
	DocumentHash    string            `json:"document_hash"`
	MRZHash         string            `json:"mrz_hash"`
	ExtractedFields map[string]string `json:"extracted_fields"`
	OCRConfidence   float64           `json:"ocr_confidence"`
	MRZChecksumOK   bool              `json:"mrz_checksum_ok"`
	ExpiryDate      string            `json:"expiry_date,omitempty"` // YYMMDD, empty when unknown
	Verified        bool              `json:"verified"` // manual confirmation overriding low confidence
	Source          DocumentSource    `json:"source"`
}

// ResidentProfile identifies one resident within a deal.
type ResidentProfile struct {
	ResidentID  string `json:"resident_id"`
	Nationality string `json:"nationality"`
}

// ChecklistItem is one required-or-optional document slot with its computed
// satisfaction state. Built fresh per evaluation; never shared across residents.
type ChecklistItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Satisfied   bool   `json:"satisfied"`
	SatisfiedBy string `json:"satisfied_by,omitempty"`
	Blocking    bool   `json:"blocking"`
}

// DecisionTraceEntry records one rule firing during checklist evaluation.
type DecisionTraceEntry struct {
	Rule      string            `json:"rule"`
	Input     map[string]string `json:"input"`
	Decision  string            `json:"decision"`
	Timestamp time.Time         `json:"timestamp"`
}

// ChecklistResult is the aggregate outcome of one evaluation. Immutable.
type ChecklistResult struct {
	AllRequiredSatisfied bool                 `json:"all_required_satisfied"`
	BlockingItems        []ChecklistItem      `json:"blocking_items"`
	SatisfiedItems       []ChecklistItem      `json:"satisfied_items"`
	MissingItems         []ChecklistItem      `json:"missing_items"`
	OverrideUsed         bool                 `json:"override_used"`
	DecisionTrace        []DecisionTraceEntry `json:"decision_trace"`
}

// OverrideRequest asks the checklist engine to treat a blocked checklist as
// satisfied. Honored only for the privileged role with a non-trivial reason.
type OverrideRequest struct {
	ManagerRole string `json:"manager_role"`
	Reason      string `json:"reason"`
}

// ChecklistAuditRecord is one persisted checklist decision, trace included.
type ChecklistAuditRecord struct {
	CorrelationID string               `json:"correlation_id"`
	ResidentID    string               `json:"resident_id"`
	Version       string               `json:"checklist_version"`
	Decisions     []DecisionTraceEntry `json:"decisions"`
	OverrideUsed  bool                 `json:"override_used"`
	Timestamp     time.Time            `json:"timestamp"`
}

// ResultNotification is the payload sent to the CRM connector on every
// terminal job transition.
type ResultNotification struct {
	JobID             uuid.UUID `json:"job_id"`
	CorrelationID     string    `json:"correlation_id"`
	Status            JobStatus `json:"status"`
	DocumentHash      string    `json:"document_hash,omitempty"`
	DuplicateDetected bool      `json:"duplicate_detected"`
	Reason            string    `json:"reason,omitempty"`
}

// CRMReceipt acknowledges a resident create/update on the CRM side.
type CRMReceipt struct {
	ResidentID    string `json:"resident_id"`
	CorrelationID string `json:"correlation_id"`
}
