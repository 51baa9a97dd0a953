package checklist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kakdoma/internal/domain"
	"kakdoma/mocks"
)

var testNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func testEngine(sink *mocks.MockChecklistAuditSink) *Engine {
	return NewEngine(
		Config{
			ConfidenceThreshold: 0.80,
			ExpiryGraceDays:     0,
			PrivilegedRole:      "supervisor",
		},
		DefaultRegistry(),
		NewAuditLogger(sink, "v1"),
	)
}

func goodDoc(residentID, docType, hash string) domain.ResidentDocument {
	return domain.ResidentDocument{
		ResidentID:    residentID,
		DocType:       docType,
		CountryCode:   "KZ",
		DocumentURL:   "s3://docs/" + hash + ".jpg",
		DocumentHash:  hash,
		MRZHash:       "zone-" + hash,
		OCRConfidence: 0.95,
		MRZChecksumOK: true,
		ExpiryDate:    "310101",
		Source:        domain.SourceOCR,
	}
}

func TestEvaluateAllSatisfied(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	docs := []domain.ResidentDocument{
		goodDoc("r1", DocNationalPassport, "h1"),
		goodDoc("r1", DocResidencyForm, "h2"),
	}

	result, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	require.NoError(t, err)
	assert.True(t, result.AllRequiredSatisfied)
	assert.Empty(t, result.BlockingItems)
	assert.Len(t, result.SatisfiedItems, 2)
	assert.False(t, result.OverrideUsed)
	assert.NotEmpty(t, result.DecisionTrace)
}

func TestEvaluateMissingDocumentBlocks(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	docs := []domain.ResidentDocument{goodDoc("r1", DocNationalPassport, "h1")}

	result, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	require.Len(t, result.BlockingItems, 1)
	assert.Equal(t, "doc::"+DocResidencyForm, result.BlockingItems[0].Code)
	require.Len(t, result.MissingItems, 1)
}

func TestEvaluateLowConfidenceNeedsManualVerification(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}

	low := goodDoc("r1", DocNationalPassport, "h1")
	low.OCRConfidence = 0.50
	docs := []domain.ResidentDocument{low, goodDoc("r1", DocResidencyForm, "h2")}

	result, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	assert.Contains(t, traceDecisions(result), traceLowOCRNoManual)

	// manual verification lifts the gate
	low.Verified = true
	result, err = e.Evaluate(context.Background(), profile, []domain.ResidentDocument{low, goodDoc("r1", DocResidencyForm, "h2")}, nil, testNow)
	require.NoError(t, err)
	assert.True(t, result.AllRequiredSatisfied)
}

func TestEvaluateChecksumFailureBlocks(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}

	bad := goodDoc("r1", DocNationalPassport, "h1")
	bad.MRZChecksumOK = false
	docs := []domain.ResidentDocument{bad, goodDoc("r1", DocResidencyForm, "h2")}

	result, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	assert.Contains(t, traceDecisions(result), traceChecksumFail)
}

func TestEvaluateChecksumFailureBlocksDespiteVerification(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}

	bad := goodDoc("r1", DocNationalPassport, "h1")
	bad.MRZChecksumOK = false
	bad.Verified = true
	docs := []domain.ResidentDocument{bad, goodDoc("r1", DocResidencyForm, "h2")}

	result, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	assert.Contains(t, traceDecisions(result), traceChecksumFail)
}

func TestEvaluateExpiredDocumentBlocks(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}

	expired := goodDoc("r1", DocNationalPassport, "h1")
	expired.ExpiryDate = "200101"
	docs := []domain.ResidentDocument{expired, goodDoc("r1", DocResidencyForm, "h2")}

	result, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	assert.Contains(t, traceDecisions(result), traceDocExpired)
}

func TestEvaluateDuplicateHashRejected(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	docs := []domain.ResidentDocument{
		goodDoc("r1", DocNationalPassport, "same"),
		goodDoc("r1", DocResidencyForm, "same"),
	}

	_, err := e.Evaluate(context.Background(), profile, docs, nil, testNow)
	assert.ErrorIs(t, err, domain.ErrDuplicateDocument)
}

func TestEvaluateVisaRequiredNationality(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "IN"}

	result, err := e.Evaluate(context.Background(), profile, nil, nil, testNow)
	require.NoError(t, err)
	require.Len(t, result.MissingItems, 3)
	codes := []string{result.MissingItems[0].Code, result.MissingItems[1].Code, result.MissingItems[2].Code}
	assert.ElementsMatch(t, []string{
		"doc::" + DocForeignPassport,
		"doc::" + DocVisa,
		"doc::" + DocEntryStamp,
	}, codes)
}

func TestEvaluateUnknownPlausibleNationalityFallsThrough(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "BRA"}

	result, err := e.Evaluate(context.Background(), profile, nil, nil, testNow)
	require.NoError(t, err)
	require.Len(t, result.MissingItems, 2)
	assert.Equal(t, "doc::"+DocForeignPassport, result.MissingItems[0].Code)
}

func TestEvaluateNationalityRuleMissing(t *testing.T) {
	registry := NewRegistry()
	e := NewEngine(Config{PrivilegedRole: "supervisor"}, registry, NewAuditLogger(nil, "v1"))
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "??"}

	_, err := e.Evaluate(context.Background(), profile, nil, nil, testNow)
	assert.ErrorIs(t, err, domain.ErrNationalityRuleMissing)
}

func TestOverrideHonoredForSupervisor(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	override := &domain.OverrideRequest{ManagerRole: "supervisor", Reason: "documents sighted in person"}

	result, err := e.Evaluate(context.Background(), profile, nil, override, testNow)
	require.NoError(t, err)
	assert.True(t, result.AllRequiredSatisfied)
	assert.True(t, result.OverrideUsed)
	assert.Contains(t, traceDecisions(result), traceOverrideApproved)
}

func TestOverrideDeniedForWrongRole(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	override := &domain.OverrideRequest{ManagerRole: "operator", Reason: "please"}

	result, err := e.Evaluate(context.Background(), profile, nil, override, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	assert.False(t, result.OverrideUsed)
	assert.Contains(t, traceDecisions(result), traceOverrideDeniedRole)
}

func TestOverrideDeniedForEmptyReason(t *testing.T) {
	e := testEngine(nil)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	override := &domain.OverrideRequest{ManagerRole: "supervisor", Reason: "  "}

	result, err := e.Evaluate(context.Background(), profile, nil, override, testNow)
	require.NoError(t, err)
	assert.False(t, result.AllRequiredSatisfied)
	assert.Contains(t, traceDecisions(result), traceOverrideDeniedRsn)
}

func TestEvaluateForFSM(t *testing.T) {
	sink := new(mocks.MockChecklistAuditSink)
	sink.On("Append", mock.Anything, mock.Anything).Return(nil)
	e := testEngine(sink)
	profile := domain.ResidentProfile{ResidentID: "r1", Nationality: "KZ"}
	docs := []domain.ResidentDocument{
		goodDoc("r1", DocNationalPassport, "h1"),
		goodDoc("r1", DocResidencyForm, "h2"),
	}

	status, auditID, err := e.EvaluateForFSM(context.Background(), "corr-1", profile, docs, nil, true, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.FSMStatusOK, status)
	assert.Len(t, auditID, 64)

	status, _, err = e.EvaluateForFSM(context.Background(), "corr-1", profile, docs[:1], nil, true, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.FSMStatusNeedManager, status)

	status, _, err = e.EvaluateForFSM(context.Background(), "corr-1", profile, docs[:1], nil, false, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.FSMStatusBlocked, status)

	sink.AssertExpectations(t)
}

func TestAuditRecordMasksHashes(t *testing.T) {
	sink := new(mocks.MockChecklistAuditSink)
	var captured domain.ChecklistAuditRecord
	sink.On("Append", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(domain.ChecklistAuditRecord)
		}).
		Return(nil)

	logger := NewAuditLogger(sink, "v1")
	result := &domain.ChecklistResult{
		DecisionTrace: []domain.DecisionTraceEntry{
			{
				Rule:     RuleVisaExempt,
				Input:    map[string]string{"doc_type": DocNationalPassport, "document_hash": "deadbeef"},
				Decision: traceDocSatisfied,
			},
		},
	}

	_, err := logger.Record(context.Background(), "corr-1", "r1", result, testNow)
	require.NoError(t, err)
	require.Len(t, captured.Decisions, 1)
	assert.Equal(t, "***", captured.Decisions[0].Input["document_hash"])
	assert.Equal(t, DocNationalPassport, captured.Decisions[0].Input["doc_type"])
	// the engine's own trace stays untouched
	assert.Equal(t, "deadbeef", result.DecisionTrace[0].Input["document_hash"])
}

func TestEnforceCRMStageBlocked(t *testing.T) {
	e := testEngine(nil)
	crm := new(mocks.MockCRMConnector)
	result := &domain.ChecklistResult{
		AllRequiredSatisfied: false,
		BlockingItems: []domain.ChecklistItem{
			{Code: "doc::" + DocResidencyForm, Required: true, Blocking: true},
		},
	}

	crm.On("WriteChecklistSnapshot", mock.Anything, "deal-1", *result).Return(nil)
	crm.On("BlockStage", mock.Anything, "deal-1", "missing: doc::residency_form").Return(nil)

	err := e.EnforceCRMStage(context.Background(), crm, "deal-1", result)
	assert.ErrorIs(t, err, domain.ErrChecklistBlocked)
	crm.AssertExpectations(t)
}

func TestEnforceCRMStageUnblocked(t *testing.T) {
	e := testEngine(nil)
	crm := new(mocks.MockCRMConnector)
	result := &domain.ChecklistResult{AllRequiredSatisfied: true}

	crm.On("WriteChecklistSnapshot", mock.Anything, "deal-1", *result).Return(nil)
	crm.On("UnblockStage", mock.Anything, "deal-1").Return(nil)

	err := e.EnforceCRMStage(context.Background(), crm, "deal-1", result)
	assert.NoError(t, err)
	crm.AssertExpectations(t)
}

func traceDecisions(result *domain.ChecklistResult) []string {
	out := make([]string, 0, len(result.DecisionTrace))
	for _, entry := range result.DecisionTrace {
		out = append(out, entry.Decision)
	}
	return out
}
