package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"kakdoma/internal/domain"
)

func TestJobsXLSX(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	jobs := []domain.Job{
		{
			ID:            uuid.New(),
			CorrelationID: "corr-1",
			MediaRef:      "s3://docs/a.jpg",
			Status:        domain.JobStatusAutoAccepted,
			CycleCount:    1,
			Result: &domain.OCRResult{
				MRZ: domain.MRZRecord{
					Surname:     "ERIKSSON",
					GivenNames:  "ANNA MARIA",
					Nationality: "UTO",
					Confidence:  1.0,
					ChecksumOK:  true,
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:            uuid.New(),
			CorrelationID: "corr-2",
			MediaRef:      "s3://docs/b.jpg",
			Status:        domain.JobStatusFailed,
			CycleCount:    3,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	data, err := JobsXLSX(jobs)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Jobs")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + two jobs

	assert.Equal(t, "Job ID", rows[0][0])
	assert.Equal(t, "ERIKSSON", rows[1][5])
	assert.Equal(t, "auto_accepted", rows[1][3])
	assert.Equal(t, "failed", rows[2][3])
}

func TestJobsXLSXEmpty(t *testing.T) {
	data, err := JobsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Jobs")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
