package checklist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakdoma/internal/domain"
)

func TestGroupByResident(t *testing.T) {
	docs := []domain.ResidentDocument{
		goodDoc("r1", DocNationalPassport, "h1"),
		goodDoc("r2", DocNationalPassport, "h2"),
		goodDoc("r1", DocResidencyForm, "h3"),
	}

	bundles := GroupByResident(docs)
	require.Len(t, bundles, 2)
	assert.Len(t, bundles["r1"].Documents, 2)
	assert.Len(t, bundles["r2"].Documents, 1)
}

func TestValidateBundleSinglePrimaryWithSupportAllowed(t *testing.T) {
	passport := goodDoc("r1", DocNationalPassport, "h1")
	form := goodDoc("r1", DocResidencyForm, "h2")
	card := goodDoc("r1", DocMigrationCard, "h3")

	err := ValidateBundle(Bundle{ResidentID: "r1", Documents: []domain.ResidentDocument{passport, form, card}})
	assert.NoError(t, err)
}

func TestValidateBundleTwoPassportHashesConflict(t *testing.T) {
	// two primaries with different document hashes cannot describe the
	// same physical document
	first := goodDoc("r1", DocNationalPassport, "h1")
	second := goodDoc("r1", DocForeignPassport, "h2")

	err := ValidateBundle(Bundle{ResidentID: "r1", Documents: []domain.ResidentDocument{first, second}})
	assert.ErrorIs(t, err, domain.ErrConflictingDocuments)
}

func TestValidateBundleNoPrimary(t *testing.T) {
	form := goodDoc("r1", DocResidencyForm, "h1")

	err := ValidateBundle(Bundle{ResidentID: "r1", Documents: []domain.ResidentDocument{form}})
	assert.ErrorIs(t, err, domain.ErrConflictingDocuments)
}

func TestValidateBundleConflictingNationalities(t *testing.T) {
	first := goodDoc("r1", DocNationalPassport, "h1")
	second := goodDoc("r1", DocForeignPassport, "h2")
	second.CountryCode = "DE"

	err := ValidateBundle(Bundle{ResidentID: "r1", Documents: []domain.ResidentDocument{first, second}})
	assert.ErrorIs(t, err, domain.ErrConflictingDocuments)
}

func TestValidateBundleMixedZoneHashes(t *testing.T) {
	first := goodDoc("r1", DocNationalPassport, "h1")
	second := goodDoc("r1", DocForeignPassport, "h1")
	second.MRZHash = "different-zone"

	err := ValidateBundle(Bundle{ResidentID: "r1", Documents: []domain.ResidentDocument{first, second}})
	assert.ErrorIs(t, err, domain.ErrConflictingDocuments)
}

func TestValidateBundleUnsupportedDocType(t *testing.T) {
	first := goodDoc("r1", DocNationalPassport, "h1")
	odd := goodDoc("r1", "library_card", "h2")

	err := ValidateBundle(Bundle{ResidentID: "r1", Documents: []domain.ResidentDocument{first, odd}})
	assert.ErrorIs(t, err, domain.ErrConflictingDocuments)
}

func TestEvaluateDeal(t *testing.T) {
	e := testEngine(nil)
	residents := []domain.ResidentProfile{
		{ResidentID: "r1", Nationality: "KZ"},
		{ResidentID: "r2", Nationality: "KZ"},
	}
	docs := []domain.ResidentDocument{
		goodDoc("r1", DocNationalPassport, "h1"),
		goodDoc("r1", DocResidencyForm, "h2"),
		goodDoc("r2", DocNationalPassport, "h3"),
	}

	results, err := e.EvaluateDeal(context.Background(), residents, docs, testNow)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results["r1"].AllRequiredSatisfied)
	assert.False(t, results["r2"].AllRequiredSatisfied)
}

func TestEvaluateDealResidentWithoutBundle(t *testing.T) {
	e := testEngine(nil)
	residents := []domain.ResidentProfile{{ResidentID: "r1", Nationality: "KZ"}}

	_, err := e.EvaluateDeal(context.Background(), residents, nil, testNow)
	assert.ErrorIs(t, err, domain.ErrConflictingDocuments)
}
