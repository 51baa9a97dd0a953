package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

type jobRepo struct {
	db *sqlx.DB
}

// NewJobRepo creates a new PostgreSQL-backed JobRepository.
func NewJobRepo(db *sqlx.DB) port.JobRepository {
	return &jobRepo{db: db}
}

// jobRow maps the jobs table. Result and audit trail are stored as JSONB so
// the schema stays stable while the result shape evolves.
type jobRow struct {
	ID            uuid.UUID       `db:"id"`
	CorrelationID string          `db:"correlation_id"`
	MediaRef      string          `db:"media_ref"`
	Status        string          `db:"status"`
	CycleCount    int             `db:"cycle_count"`
	Result        json.RawMessage `db:"result"`
	AuditTrail    json.RawMessage `db:"audit_trail"`
	ContentHash   sql.NullString  `db:"content_hash"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toRow(job *domain.Job) (*jobRow, error) {
	row := &jobRow{
		ID:            job.ID,
		CorrelationID: job.CorrelationID,
		MediaRef:      job.MediaRef,
		Status:        string(job.Status),
		CycleCount:    job.CycleCount,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
	if job.ContentHash != "" {
		row.ContentHash = sql.NullString{String: job.ContentHash, Valid: true}
	}
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return nil, fmt.Errorf("marshaling result: %w", err)
		}
		row.Result = b
	}
	trail := job.AuditTrail
	if trail == nil {
		trail = []domain.AuditEntry{}
	}
	b, err := json.Marshal(trail)
	if err != nil {
		return nil, fmt.Errorf("marshaling audit trail: %w", err)
	}
	row.AuditTrail = b
	return row, nil
}

func (row *jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		ID:            row.ID,
		CorrelationID: row.CorrelationID,
		MediaRef:      row.MediaRef,
		Status:        domain.JobStatus(row.Status),
		CycleCount:    row.CycleCount,
		ContentHash:   row.ContentHash.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if len(row.Result) > 0 && string(row.Result) != "null" {
		var res domain.OCRResult
		if err := json.Unmarshal(row.Result, &res); err != nil {
			return nil, fmt.Errorf("unmarshaling result: %w", err)
		}
		job.Result = &res
	}
	if len(row.AuditTrail) > 0 {
		if err := json.Unmarshal(row.AuditTrail, &job.AuditTrail); err != nil {
			return nil, fmt.Errorf("unmarshaling audit trail: %w", err)
		}
	}
	return job, nil
}

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	row, err := toRow(job)
	if err != nil {
		return fmt.Errorf("jobRepo.Create: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, correlation_id, media_ref, status, cycle_count, result, audit_trail, content_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.CorrelationID, row.MediaRef, row.Status, row.CycleCount,
		row.Result, row.AuditTrail, row.ContentHash, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.Create: %w", err)
	}
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobRepo.Get: %w", err)
	}
	return row.toDomain()
}

func (r *jobRepo) Update(ctx context.Context, job *domain.Job) error {
	row, err := toRow(job)
	if err != nil {
		return fmt.Errorf("jobRepo.Update: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = $2, cycle_count = $3, result = $4, audit_trail = $5, content_hash = $6, updated_at = $7
		 WHERE id = $1`,
		row.ID, row.Status, row.CycleCount, row.Result, row.AuditTrail, row.ContentHash, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("jobRepo.Update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobRepo.Update: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) List(ctx context.Context, offset, limit int) ([]domain.Job, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM jobs`); err != nil {
		return nil, 0, fmt.Errorf("jobRepo.List count: %w", err)
	}

	if limit <= 0 {
		limit = 100
	}
	var rows []jobRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("jobRepo.List: %w", err)
	}

	jobs := make([]domain.Job, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("jobRepo.List: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, nil
}
