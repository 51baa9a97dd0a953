package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kakdoma/internal/domain"
)

func newJob(status domain.JobStatus, createdAt time.Time) *domain.Job {
	return &domain.Job{
		ID:            uuid.New(),
		CorrelationID: "corr-1",
		MediaRef:      "s3://bucket/key.jpg",
		Status:        status,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestJobRepoCreateGet(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()
	job := newJob(domain.JobStatusSubmitted, time.Now())

	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, domain.JobStatusSubmitted, got.Status)
}

func TestJobRepoGetNotFound(t *testing.T) {
	repo := NewJobRepo()

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRepoUpdate(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()
	job := newJob(domain.JobStatusSubmitted, time.Now())
	require.NoError(t, repo.Create(ctx, job))

	job.Status = domain.JobStatusAutoAccepted
	job.AuditTrail = append(job.AuditTrail, domain.AuditEntry{Event: "accepted", Timestamp: time.Now()})
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusAutoAccepted, got.Status)
	assert.Len(t, got.AuditTrail, 1)
}

func TestJobRepoUpdateMissing(t *testing.T) {
	repo := NewJobRepo()
	err := repo.Update(context.Background(), newJob(domain.JobStatusFailed, time.Now()))
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRepoReturnsCopies(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()
	job := newJob(domain.JobStatusSubmitted, time.Now())
	job.Result = &domain.OCRResult{Source: "text"}
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	got.Result.Source = "mutated"
	got.Status = domain.JobStatusFailed

	again, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "text", again.Result.Source)
	assert.Equal(t, domain.JobStatusSubmitted, again.Status)
}

func TestJobRepoListNewestFirst(t *testing.T) {
	repo := NewJobRepo()
	ctx := context.Background()
	base := time.Now()

	older := newJob(domain.JobStatusFailed, base.Add(-time.Hour))
	newer := newJob(domain.JobStatusAutoAccepted, base)
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	jobs, total, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, jobs, 2)
	assert.Equal(t, newer.ID, jobs[0].ID)

	page, total, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)
}

func TestHashIndex(t *testing.T) {
	idx := NewHashIndex()
	ctx := context.Background()

	seen, err := idx.Seen(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, idx.Register(ctx, "abc"))

	seen, err = idx.Seen(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestChecklistAuditSinkAppend(t *testing.T) {
	sink := NewChecklistAuditSink()
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, domain.ChecklistAuditRecord{ResidentID: "r1"}))
	require.NoError(t, sink.Append(ctx, domain.ChecklistAuditRecord{ResidentID: "r2"}))

	records := sink.(*checklistAuditSink).Records()
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ResidentID)
}
