package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"kakdoma/internal/domain"
	"kakdoma/internal/port"
)

type jobRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]domain.Job
}

// NewJobRepo creates an in-memory JobRepository. Intended for development and
// tests; state does not survive a restart.
func NewJobRepo() port.JobRepository {
	return &jobRepo{jobs: make(map[uuid.UUID]domain.Job)}
}

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	out := cloneJob(&job)
	return &out, nil
}

func (r *jobRepo) Update(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *jobRepo) List(ctx context.Context, offset, limit int) ([]domain.Job, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		all = append(all, cloneJob(&job))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []domain.Job{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// cloneJob returns a deep enough copy that callers cannot mutate stored state
// through shared slices or pointers.
func cloneJob(job *domain.Job) domain.Job {
	out := *job
	if job.Result != nil {
		res := *job.Result
		out.Result = &res
	}
	if job.AuditTrail != nil {
		out.AuditTrail = make([]domain.AuditEntry, len(job.AuditTrail))
		copy(out.AuditTrail, job.AuditTrail)
	}
	return out
}
