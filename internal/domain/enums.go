package domain

// JobStatus represents the lifecycle state of an OCR intake job.
type JobStatus string

const (
	JobStatusSubmitted         JobStatus = "submitted"
	JobStatusProcessing        JobStatus = "processing"
	JobStatusAutoAccepted      JobStatus = "auto_accepted"
	JobStatusFallbackUsed      JobStatus = "fallback_used"
	JobStatusManualReview      JobStatus = "manual_review"
	JobStatusDuplicateDetected JobStatus = "duplicate_detected"
	JobStatusFailed            JobStatus = "failed"
)

// IsTerminal reports whether the status ends the job's processing loop.
// manual_review is terminal for processing but may be re-opened once through
// the corrections path.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusAutoAccepted, JobStatusFallbackUsed, JobStatusManualReview,
		JobStatusDuplicateDetected, JobStatusFailed:
		return true
	}
	return false
}

// MRZFormat identifies the ICAO machine-readable zone layout.
type MRZFormat string

const (
	MRZFormatTD3 MRZFormat = "TD3" // two 44-character lines (passports)
	MRZFormatTD1 MRZFormat = "TD1" // three 30-character lines (ID cards)
)

// DocumentSource records how a resident document's data was produced.
type DocumentSource string

const (
	SourceOCR             DocumentSource = "ocr"
	SourceManual          DocumentSource = "manual"
	SourceManagerOverride DocumentSource = "manager_override"
)

// FSMStatus is the tri-state checklist outcome consumed by FSM-style callers.
type FSMStatus string

const (
	FSMStatusOK          FSMStatus = "OK"
	FSMStatusBlocked     FSMStatus = "BLOCKED"
	FSMStatusNeedManager FSMStatus = "NEED_MANAGER"
)
