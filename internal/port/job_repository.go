package port

import (
	"context"

	"github.com/google/uuid"

	"kakdoma/internal/domain"
)

// JobRepository defines the contract for intake job persistence.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	List(ctx context.Context, offset, limit int) ([]domain.Job, int, error)
}
