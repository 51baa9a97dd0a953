package checklist

import (
	"context"
	"fmt"
	"time"

	"kakdoma/internal/domain"
)

// primaryDocTypes are document types that identify a person on their own.
var primaryDocTypes = map[string]struct{}{
	DocNationalPassport: {},
	DocForeignPassport:  {},
	DocNationalIDCard:   {},
}

// supportingDocTypes are everything else a bundle may legally carry.
var supportingDocTypes = map[string]struct{}{
	DocResidencyForm: {},
	DocMigrationCard: {},
	DocVisa:          {},
	DocEntryStamp:    {},
}

// Bundle is the set of documents one resident submitted for a deal.
type Bundle struct {
	ResidentID string
	Documents  []domain.ResidentDocument
}

// GroupByResident splits a deal's documents into per-resident bundles.
func GroupByResident(docs []domain.ResidentDocument) map[string]Bundle {
	bundles := make(map[string]Bundle)
	for _, doc := range docs {
		b := bundles[doc.ResidentID]
		b.ResidentID = doc.ResidentID
		b.Documents = append(b.Documents, doc)
		bundles[doc.ResidentID] = b
	}
	return bundles
}

// ValidateBundle checks the internal consistency of one resident's bundle.
// All primary documents must describe the same physical document: one
// document hash, one zone hash, one nationality.
func ValidateBundle(b Bundle) error {
	var primaries []domain.ResidentDocument
	for _, doc := range b.Documents {
		if _, ok := primaryDocTypes[doc.DocType]; ok {
			primaries = append(primaries, doc)
			continue
		}
		if _, ok := supportingDocTypes[doc.DocType]; !ok {
			return fmt.Errorf("resident %s: document type %q not allowed in a bundle: %w",
				b.ResidentID, doc.DocType, domain.ErrConflictingDocuments)
		}
	}

	if len(primaries) == 0 {
		return fmt.Errorf("resident %s: bundle has no primary identification: %w",
			b.ResidentID, domain.ErrConflictingDocuments)
	}

	docHashes := make(map[string]struct{})
	zoneHashes := make(map[string]struct{})
	nationality := ""
	for _, doc := range primaries {
		if doc.DocumentHash != "" {
			docHashes[doc.DocumentHash] = struct{}{}
		}
		if doc.MRZHash != "" {
			zoneHashes[doc.MRZHash] = struct{}{}
		}
		if doc.CountryCode == "" {
			continue
		}
		if nationality == "" {
			nationality = doc.CountryCode
		} else if nationality != doc.CountryCode {
			return fmt.Errorf("resident %s: primary documents disagree on nationality (%s vs %s): %w",
				b.ResidentID, nationality, doc.CountryCode, domain.ErrConflictingDocuments)
		}
	}
	if len(docHashes) > 1 {
		return fmt.Errorf("resident %s: primary documents carry %d distinct document hashes: %w",
			b.ResidentID, len(docHashes), domain.ErrConflictingDocuments)
	}
	if len(zoneHashes) > 1 {
		return fmt.Errorf("resident %s: primary documents carry %d distinct zone hashes: %w",
			b.ResidentID, len(zoneHashes), domain.ErrConflictingDocuments)
	}
	return nil
}

// EvaluateDeal validates and evaluates every resident's bundle for one deal.
// Each listed resident must have submitted at least one document.
func (e *Engine) EvaluateDeal(ctx context.Context, residents []domain.ResidentProfile, docs []domain.ResidentDocument, now time.Time) (map[string]*domain.ChecklistResult, error) {
	bundles := GroupByResident(docs)

	results := make(map[string]*domain.ChecklistResult, len(residents))
	for _, profile := range residents {
		bundle, ok := bundles[profile.ResidentID]
		if !ok {
			return nil, fmt.Errorf("resident %s has no document bundle: %w",
				profile.ResidentID, domain.ErrConflictingDocuments)
		}
		if err := ValidateBundle(bundle); err != nil {
			return nil, err
		}
		result, err := e.Evaluate(ctx, profile, bundle.Documents, nil, now)
		if err != nil {
			return nil, err
		}
		results[profile.ResidentID] = result
	}
	return results, nil
}
