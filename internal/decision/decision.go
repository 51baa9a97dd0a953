package decision

import "kakdoma/internal/domain"

// Branch is the routing outcome for one extraction attempt.
type Branch string

const (
	BranchAutoAccept   Branch = "auto_accept"
	BranchPreview      Branch = "preview"
	BranchManualReview Branch = "manual_review"
	BranchSoftFail     Branch = "soft_fail"
)

// Decision routes one attempt. UseFallback asks the orchestrator to escalate
// to the fallback provider chain if budget remains.
type Decision struct {
	Branch      Branch
	UseFallback bool
}

// Config holds the routing thresholds.
type Config struct {
	AutoAcceptConfidence   float64
	FallbackThreshold      float64
	ManualAfterSecondCycle bool
}

// Engine decides how one extraction attempt proceeds. Pure: no clocks, no
// I/O, no stored state between calls.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Decide routes an attempt from its parse record, quality verdict and the
// current cycle number (first cycle is 1). Rules apply in order; the first
// match wins, so escalation is monotonic in severity as inputs degrade.
func (e *Engine) Decide(rec domain.MRZRecord, q domain.OCRQuality, needsRetry bool, cycle int) Decision {
	if needsRetry {
		return Decision{Branch: BranchSoftFail, UseFallback: true}
	}
	if q.NormalizedConfidence >= e.cfg.AutoAcceptConfidence && rec.ChecksumOK {
		return Decision{Branch: BranchAutoAccept}
	}
	if q.NormalizedConfidence >= e.cfg.FallbackThreshold {
		if e.ManualEligible(cycle) {
			return Decision{Branch: BranchManualReview}
		}
		return Decision{Branch: BranchPreview, UseFallback: true}
	}
	if e.ManualEligible(cycle) {
		return Decision{Branch: BranchManualReview}
	}
	return Decision{Branch: BranchSoftFail, UseFallback: true}
}

// ManualEligible reports whether a job at the given cycle may settle into
// manual review instead of failing outright.
func (e *Engine) ManualEligible(cycle int) bool {
	return e.cfg.ManualAfterSecondCycle && cycle >= 2
}
