package checklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

const hashMask = "***"

// AuditLogger persists checklist decisions through a ChecklistAuditSink,
// masking document hashes before anything leaves the engine.
type AuditLogger struct {
	sink    port.ChecklistAuditSink
	version string
}

// NewAuditLogger creates an audit logger writing records tagged with the
// given checklist version.
func NewAuditLogger(sink port.ChecklistAuditSink, version string) *AuditLogger {
	return &AuditLogger{sink: sink, version: version}
}

// Record appends one audit record and returns its id. The id is derived from
// correlation id, resident id and timestamp, so replays of the same decision
// are idempotent on the sink side.
func (a *AuditLogger) Record(ctx context.Context, correlationID, residentID string, result *domain.ChecklistResult, now time.Time) (string, error) {
	record := domain.ChecklistAuditRecord{
		CorrelationID: correlationID,
		ResidentID:    residentID,
		Version:       a.version,
		Decisions:     maskTrace(result.DecisionTrace),
		OverrideUsed:  result.OverrideUsed,
		Timestamp:     now,
	}
	if err := a.sink.Append(ctx, record); err != nil {
		return "", fmt.Errorf("AuditLogger.Record: %w", err)
	}
	return auditID(correlationID, residentID, now), nil
}

func auditID(correlationID, residentID string, now time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", correlationID, residentID, now.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// maskTrace copies the trace with document hashes replaced by a mask. The
// audit store must never hold raw document identity hashes.
func maskTrace(trace []domain.DecisionTraceEntry) []domain.DecisionTraceEntry {
	out := make([]domain.DecisionTraceEntry, len(trace))
	for i, entry := range trace {
		masked := entry
		if entry.Input != nil {
			masked.Input = make(map[string]string, len(entry.Input))
			for k, v := range entry.Input {
				if k == "document_hash" || k == "passport_hash" {
					v = hashMask
				}
				masked.Input[k] = v
			}
		}
		out[i] = masked
	}
	return out
}
